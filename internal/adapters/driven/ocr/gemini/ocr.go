// Package gemini is a placeholder OCR adapter. Text extraction is not yet
// wired to a real backend; ProcessDocument validates the input file and
// returns stand-in text so the rest of the pipeline can be exercised
// end to end.
package gemini

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/zcite-cli/internal/core/ports/driven"
	"github.com/custodia-labs/zcite-cli/internal/logger"
)

// Service implements driven.OCRService.
type Service struct {
	apiKey string
}

var _ driven.OCRService = (*Service)(nil)

// NewService creates a new OCR service.
func NewService(apiKey string) *Service {
	return &Service{apiKey: apiKey}
}

// ProcessDocument validates the PDF at path and returns placeholder text.
func (s *Service) ProcessDocument(_ context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("%s is empty", path)
	}

	logger.Debug("OCR placeholder used for %s (%d bytes)", path, info.Size())
	return fmt.Sprintf("[OCR pending for %s]", filepath.Base(path)), nil
}

// TestConnection reports whether the extraction backend is usable.
func (s *Service) TestConnection(_ context.Context) bool {
	return s.apiKey != ""
}
