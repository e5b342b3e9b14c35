package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/extract"
	"github.com/joseph-ayodele/medscan/internal/schema"
)

// ParseStage turns a transcript into a proposal-ready result.
type ParseStage struct {
	Engine   *extract.Engine
	Validate bool
	Logger   *slog.Logger
}

func NewParseStage(engine *extract.Engine, validate bool, logger *slog.Logger) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = extract.NewEngine(extract.WithLogger(logger))
	}
	return &ParseStage{Engine: engine, Validate: validate, Logger: logger}
}

func (s *ParseStage) Run(text string, kind constants.DocumentKind) (extract.Result, error) {
	res, err := s.Engine.Extract(kind, text)
	if err != nil {
		return res, err
	}
	if s.Validate {
		if err := schema.ValidateResult(res); err != nil {
			return res, fmt.Errorf("result failed schema validation: %w", err)
		}
	}
	s.Logger.Debug("parse stage ok", "kind", res.Kind, "document_id", res.DocumentID(), "confidence", res.Confidence())
	return res, nil
}
