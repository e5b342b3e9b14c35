// Package pipeline runs one source document through OCR, extraction,
// schema validation and the review store.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/common"
	"github.com/joseph-ayodele/medscan/internal/extract"
	"github.com/joseph-ayodele/medscan/internal/repository"
)

// Failure stages reported to a Recorder.
const (
	StageOCR     = "ocr"
	StageExtract = "extract"
	StageStore   = "store"
)

// Store persists proposals. repository.ProposalRepository satisfies it.
type Store interface {
	SaveProposal(ctx context.Context, sourcePath string, result extract.Result) (*repository.Proposal, error)
}

// Recorder observes pipeline outcomes.
type Recorder interface {
	ObserveOCR(method string, d time.Duration)
	ObserveProposal(kind constants.DocumentKind, tier constants.Tier)
	ObserveFailure(stage string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOCR(string, time.Duration)                       {}
func (nopRecorder) ObserveProposal(constants.DocumentKind, constants.Tier) {}
func (nopRecorder) ObserveFailure(string)                                  {}

// Outcome is everything produced for one document.
type Outcome struct {
	Path     string
	HashHex  string
	OCR      extract.TextExtractionResult
	Result   extract.Result
	Proposal *repository.Proposal // nil without a store
}

// Processor coordinates OCR (text extract) then field extraction.
type Processor struct {
	logger   *slog.Logger
	ocr      *OCRStage
	parse    *ParseStage
	store    Store
	recorder Recorder
}

type Option func(*Processor)

// WithStore saves every result as a pending proposal.
func WithStore(s Store) Option {
	return func(p *Processor) { p.store = s }
}

func WithRecorder(r Recorder) Option {
	return func(p *Processor) {
		if r != nil {
			p.recorder = r
		}
	}
}

func NewProcessor(logger *slog.Logger, ocr *OCRStage, parse *ParseStage, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{logger: logger, ocr: ocr, parse: parse, recorder: nopRecorder{}}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ProcessFile transcribes path, extracts a result of the given kind (AUTO
// detects it) and, with a store configured, saves it for review.
func (p *Processor) ProcessFile(ctx context.Context, path string, kind constants.DocumentKind) (Outcome, error) {
	out := Outcome{Path: path}

	start := time.Now()
	hashHex, ocrRes, err := p.ocr.Run(ctx, path)
	out.HashHex, out.OCR = hashHex, ocrRes
	if err != nil {
		p.recorder.ObserveFailure(StageOCR)
		p.logger.Error("processor.ocr.failed", "path", path, "err", err)
		return out, err
	}
	p.recorder.ObserveOCR(ocrRes.Method, time.Since(start))
	p.logger.Info("processor.ocr.ok",
		"path", path,
		"method", ocrRes.Method,
		"pages", ocrRes.Pages,
		"confidence", ocrRes.Confidence,
	)

	return p.finish(ctx, out, ocrRes.Text, kind)
}

// ProcessText skips OCR for an already transcribed document. name is
// recorded as the proposal's source.
func (p *Processor) ProcessText(ctx context.Context, name, text string, kind constants.DocumentKind) (Outcome, error) {
	out := Outcome{Path: name, OCR: extract.TextExtractionResult{Text: text, SourceType: constants.TXT, Method: "text"}}
	return p.finish(ctx, out, text, kind)
}

func (p *Processor) finish(ctx context.Context, out Outcome, text string, kind constants.DocumentKind) (Outcome, error) {
	res, err := p.parse.Run(text, kind)
	if err != nil {
		p.recorder.ObserveFailure(StageExtract)
		p.logger.Error("processor.extract.failed", "path", out.Path, "err", err)
		return out, err
	}
	out.Result = res
	ctx = common.WithDocumentID(ctx, res.DocumentID())

	if p.store != nil {
		prop, err := p.store.SaveProposal(ctx, out.Path, res)
		if err != nil {
			p.recorder.ObserveFailure(StageStore)
			p.logger.Error("processor.store.failed", "path", out.Path, "document_id", res.DocumentID(), "err", err)
			return out, err
		}
		out.Proposal = prop
	}

	p.recorder.ObserveProposal(res.Kind, res.Confidence())
	p.logger.Info("processor.extract.ok",
		"path", out.Path,
		"kind", res.Kind,
		"document_id", res.DocumentID(),
		"confidence", res.Confidence(),
	)
	return out, nil
}
