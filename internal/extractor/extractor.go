// Package extractor turns uploaded binaries into per-page plain text.
package extractor

import (
	"context"
	"fmt"

	"github.com/docstack/knowledge-backend/internal/entity"
)

// Page is one extraction unit. Page numbers are 1-based.
type Page struct {
	Number int
	Text   string
}

// Extractor extracts text from one supported file type.
type Extractor interface {
	Extract(ctx context.Context, content []byte) ([]Page, error)
}

// Registry dispatches on file extension.
type Registry struct {
	byExt map[string]Extractor
}

func NewRegistry() *Registry {
	return &Registry{
		byExt: map[string]Extractor{
			".txt": &TextExtractor{},
			".pdf": &PDFExtractor{},
		},
	}
}

// Extract runs the extractor registered for ext.
func (r *Registry) Extract(ctx context.Context, content []byte, ext string) ([]Page, error) {
	ex, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrInvalidExtension, ext)
	}
	return ex.Extract(ctx, content)
}
