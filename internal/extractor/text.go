package extractor

import (
	"context"
	"strings"
)

// TextExtractor treats form feeds as page separators; a plain file without
// them is a single page.
type TextExtractor struct{}

func (e *TextExtractor) Extract(_ context.Context, content []byte) ([]Page, error) {
	parts := strings.Split(string(content), "\f")

	pages := make([]Page, 0, len(parts))
	for i, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		pages = append(pages, Page{Number: i + 1, Text: part})
	}
	return pages, nil
}
