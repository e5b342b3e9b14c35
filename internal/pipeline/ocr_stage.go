package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/extract"
	"github.com/joseph-ayodele/medscan/internal/ingest"
	"github.com/joseph-ayodele/medscan/internal/ocr"
)

type OCRStage struct {
	TextExtractor extract.TextExtractor
	Logger        *slog.Logger
}

func NewOCRStage(tx extract.TextExtractor, logger *slog.Logger) *OCRStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRStage{TextExtractor: tx, Logger: logger}
}

// Run fingerprints the file and transcribes it. The content hash travels in
// ctx so converted HEIC artifacts are cached per content, not per path.
func (s *OCRStage) Run(ctx context.Context, path string) (string, extract.TextExtractionResult, error) {
	format := constants.MapExtToFormat(filepath.Ext(path))
	if format == "" {
		return "", extract.TextExtractionResult{}, fmt.Errorf("unsupported format: %s", filepath.Ext(path))
	}

	hashHex, _, err := ingest.HashFile(path)
	if err != nil {
		return "", extract.TextExtractionResult{}, err
	}
	ctx = ocr.WithContentHash(ctx, hashHex)

	res, err := s.TextExtractor.Extract(ctx, path)
	if err != nil {
		return hashHex, res, err
	}
	if format == constants.IMAGE && res.Confidence > 0 && res.Confidence < ocr.ImageConfidenceThreshold {
		s.Logger.Warn("image ocr confidence low", "path", path, "conf", res.Confidence)
	}
	s.Logger.Debug("ocr stage ok", "path", path, "method", res.Method, "pages", res.Pages)
	return hashHex, res, nil
}
