// Package extract is the entry point of the extraction engine: it normalizes
// a transcript, resolves candidates and assembles the result record. Engine
// methods do no I/O beyond debug logging and are safe for concurrent use.
package extract

import (
	"log/slog"

	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/common"
	"github.com/joseph-ayodele/medscan/internal/fieldspec"
	"github.com/joseph-ayodele/medscan/internal/resolve"
	"github.com/joseph-ayodele/medscan/internal/textnorm"
)

// Engine holds read-only state only.
type Engine struct {
	logger *slog.Logger
	labs   fieldspec.Registry
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLabRegistry replaces the analyte table. An empty registry is ignored.
func WithLabRegistry(reg fieldspec.Registry) Option {
	return func(e *Engine) {
		if len(reg) > 0 {
			e.labs = reg
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger: slog.Default(),
		labs:   fieldspec.LabRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LabRegistry returns the analyte table the engine matches against.
func (e *Engine) LabRegistry() fieldspec.Registry { return e.labs }

// ExtractLab proposes lab values from a report transcript.
func (e *Engine) ExtractLab(text string) LabResult {
	return e.extractLab(textnorm.Normalize(text))
}

func (e *Engine) extractLab(doc textnorm.Document) LabResult {
	if doc.Sparse() {
		e.logger.Debug("extract.lab.sparse", "lines", doc.Len())
		return emptyLab(doc)
	}
	out := assembleLab(doc, resolve.Lab(doc, e.labs))
	e.logger.Debug("extract.lab.ok",
		"document_id", out.DocumentID,
		"candidates", len(out.Candidates),
		"dated", out.DetectedDate != nil,
		"confidence", out.Confidence,
	)
	return out
}

// ExtractMedicationLabel proposes a medication record from a label transcript.
func (e *Engine) ExtractMedicationLabel(text string) MedicationLabelResult {
	return e.extractMedication(textnorm.Normalize(text))
}

func (e *Engine) extractMedication(doc textnorm.Document) MedicationLabelResult {
	if doc.Sparse() {
		e.logger.Debug("extract.medication.sparse", "lines", doc.Len())
		return emptyMedication(doc)
	}
	out := assembleMedication(doc, resolve.Medication(doc))
	e.logger.Debug("extract.medication.ok",
		"document_id", out.DocumentID,
		"has_name", out.DisplayName != nil,
		"has_strength", out.Strength != nil,
		"has_directions", out.Directions != nil,
		"confidence", out.Confidence,
	)
	return out
}

// Extract runs the extractor for kind. AUTO picks one with DetectKind; any
// other kind is rejected with common.ErrInvalidInput.
func (e *Engine) Extract(kind constants.DocumentKind, text string) (Result, error) {
	doc := textnorm.Normalize(text)
	if kind == constants.KindAuto {
		kind = DetectKind(doc, e.labs)
		e.logger.Debug("extract.kind.detected", "kind", kind)
	}
	switch kind {
	case constants.KindLab:
		lab := e.extractLab(doc)
		return Result{Kind: kind, Lab: &lab}, nil
	case constants.KindMedication:
		med := e.extractMedication(doc)
		return Result{Kind: kind, Medication: &med}, nil
	default:
		return Result{}, common.InvalidInputErrorf("unknown document kind %q (want one of %v)", kind, constants.KindsAsStringSlice())
	}
}
