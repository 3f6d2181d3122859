package ingestion

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/documentloaders"
)

// extractPDF reads a PDF file and returns the text of each page.
func extractPDF(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stating pdf: %w", err)
	}

	loader := documentloaders.NewPDF(f, info.Size())
	pages, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading pdf: %w", err)
	}

	texts := make([]string, len(pages))
	for i, page := range pages {
		texts[i] = page.PageContent
	}
	return texts, nil
}
