package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Converter turns a rendered docx file into a PDF. Implementations return
// the PDF path, or an error describing why no PDF could be produced.
type Converter interface {
	Convert(ctx context.Context, docxPath string) (string, error)
}

// DefaultConvertTimeout bounds one external conversion run.
const DefaultConvertTimeout = 2 * time.Minute

// CommandConverter shells out to a headless office binary (LibreOffice's
// soffice by default) to produce the PDF next to the docx file.
type CommandConverter struct {
	Binary  string
	Timeout time.Duration
}

// NewCommandConverter creates a converter using the given binary; an empty
// binary selects "soffice".
func NewCommandConverter(binary string) *CommandConverter {
	if binary == "" {
		binary = "soffice"
	}
	return &CommandConverter{Binary: binary, Timeout: DefaultConvertTimeout}
}

// Convert runs the conversion, bounded by the configured timeout.
func (c *CommandConverter) Convert(ctx context.Context, docxPath string) (string, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultConvertTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outDir := filepath.Dir(docxPath)
	cmd := exec.CommandContext(ctx, c.Binary, "--headless", "--convert-to", "pdf", "--outdir", outDir, docxPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		slog.Error("CommandConverter run failed", "binary", c.Binary, "error", err, "output", strings.TrimSpace(string(output)))
		return "", fmt.Errorf("pdf conversion failed: %w", err)
	}

	pdfPath := strings.TrimSuffix(docxPath, filepath.Ext(docxPath)) + ".pdf"
	if _, err := os.Stat(pdfPath); err != nil {
		slog.Error("CommandConverter produced no output file", "expected", pdfPath)
		return "", errors.New("pdf file was not created")
	}
	slog.Debug("CommandConverter succeeded", "pdf", pdfPath)
	return pdfPath, nil
}

// NoopConverter never produces a PDF; callers fall back to the docx file.
// Useful on hosts without an office suite installed.
type NoopConverter struct{}

// Convert always reports that conversion is unavailable.
func (NoopConverter) Convert(ctx context.Context, docxPath string) (string, error) {
	return "", errors.New("pdf conversion is not configured")
}
