package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFTool is the PDF handling the intake and extraction stages rely on.
type PDFTool interface {
	// Optimize validates the document and returns an optimized copy and its
	// page count.
	Optimize(pdf []byte) ([]byte, int, error)
	// SplitPages returns one single-page document per page, page 1 first.
	SplitPages(pdf []byte) ([][]byte, error)
}

// PDFCPU implements PDFTool with pdfcpu working on temp files.
type PDFCPU struct{}

var _ PDFTool = PDFCPU{}

func (PDFCPU) Optimize(pdf []byte) ([]byte, int, error) {
	tempDir, err := os.MkdirTemp("", "pdf-optimize-*")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	source := filepath.Join(tempDir, "source.pdf")
	optimized := filepath.Join(tempDir, "optimized.pdf")
	if err := os.WriteFile(source, pdf, 0o600); err != nil {
		return nil, 0, fmt.Errorf("failed to stage source PDF: %w", err)
	}
	if err := optimizePDF(source, optimized); err != nil {
		return nil, 0, fmt.Errorf("failed to validate/optimize PDF: %w", err)
	}
	pageCount, err := api.PageCountFile(optimized)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get page count: %w", err)
	}
	out, err := os.ReadFile(optimized)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read optimized PDF: %w", err)
	}
	return out, pageCount, nil
}

func (PDFCPU) SplitPages(pdf []byte) ([][]byte, error) {
	tempDir, err := os.MkdirTemp("", "pdf-splitter-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	source := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(source, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("failed to stage source PDF: %w", err)
	}
	pageCount, err := api.PageCountFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if err := api.SplitFile(source, tempDir, 1, relaxedConfig()); err != nil {
		return nil, fmt.Errorf("failed to split PDF: %w", err)
	}

	base := strings.TrimSuffix(source, filepath.Ext(source))
	pages := make([][]byte, pageCount)
	for i := range pages {
		data, err := os.ReadFile(fmt.Sprintf("%s_%d.pdf", base, i+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read split page %d: %w", i+1, err)
		}
		pages[i] = data
	}
	return pages, nil
}

func relaxedConfig() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

func optimizePDF(inPath, outPath string) error {
	return api.OptimizeFile(inPath, outPath, relaxedConfig())
}
