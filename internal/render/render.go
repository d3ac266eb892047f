// Package render fills docx templates from a collected record and converts
// the result to PDF through a pluggable converter backend.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BTreeMap/DocForge/internal/models"
	docx "github.com/lukasjarosch/go-docx"
)

// Result describes the files produced by one render. The paths live in a
// private temporary directory released by Cleanup.
type Result struct {
	DocxPath string
	PDFPath  string
	// ConvertErr holds the conversion failure text when PDFPath is empty.
	ConvertErr string

	dir string
}

// Cleanup removes the render's temporary directory.
func (r *Result) Cleanup() {
	if r.dir == "" {
		return
	}
	if err := os.RemoveAll(r.dir); err != nil {
		slog.Warn("Render cleanup failed", "dir", r.dir, "error", err)
	}
}

// Opts holds configuration options for the docx renderer.
type Opts struct {
	TemplatesDir string
	Converter    Converter
}

// Option defines a configuration option for the docx renderer.
type Option func(*Opts)

// WithTemplatesDir sets the directory holding the per-type docx templates.
func WithTemplatesDir(dir string) Option {
	return func(o *Opts) {
		o.TemplatesDir = dir
	}
}

// WithConverter sets the PDF conversion backend.
func WithConverter(c Converter) Option {
	return func(o *Opts) {
		o.Converter = c
	}
}

// DocxRenderer renders documents by placeholder replacement in docx
// templates named after the document type (contract.docx, act.docx,
// supplement.docx).
type DocxRenderer struct {
	templatesDir string
	converter    Converter
}

// NewDocxRenderer creates a renderer, applying any provided options.
func NewDocxRenderer(opts ...Option) *DocxRenderer {
	cfg := Opts{
		TemplatesDir: "templates",
		Converter:    NoopConverter{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Creating DocxRenderer", "templatesDir", cfg.TemplatesDir)
	return &DocxRenderer{templatesDir: cfg.TemplatesDir, converter: cfg.Converter}
}

// Render fills the template for dt with the record's values and attempts the
// PDF conversion. A conversion failure is not an error: the caller receives
// the docx path together with the failure text and decides how to degrade.
func (r *DocxRenderer) Render(ctx context.Context, dt models.DocType, rec models.Record) (*Result, error) {
	templatePath := filepath.Join(r.templatesDir, string(dt)+".docx")
	if _, err := os.Stat(templatePath); err != nil {
		slog.Error("Render template missing", "template", templatePath, "error", err)
		return nil, fmt.Errorf("template not found: %s", templatePath)
	}

	dir, err := os.MkdirTemp("", "docforge-")
	if err != nil {
		return nil, fmt.Errorf("failed to create render directory: %w", err)
	}
	res := &Result{dir: dir}

	doc, err := docx.Open(templatePath)
	if err != nil {
		res.Cleanup()
		return nil, fmt.Errorf("failed to open template %s: %w", templatePath, err)
	}
	if err := doc.ReplaceAll(BuildContext(dt, rec)); err != nil {
		res.Cleanup()
		return nil, fmt.Errorf("failed to fill template %s: %w", templatePath, err)
	}

	res.DocxPath = filepath.Join(dir, string(dt)+".docx")
	if err := doc.WriteToFile(res.DocxPath); err != nil {
		res.Cleanup()
		return nil, fmt.Errorf("failed to write rendered document: %w", err)
	}
	slog.Debug("Render docx written", "path", res.DocxPath, "docType", dt)

	pdfPath, err := r.converter.Convert(ctx, res.DocxPath)
	if err != nil {
		res.ConvertErr = err.Error()
		slog.Warn("Render PDF conversion failed", "docType", dt, "error", err)
		return res, nil
	}
	res.PDFPath = pdfPath
	slog.Debug("Render PDF written", "path", res.PDFPath, "docType", dt)
	return res, nil
}
