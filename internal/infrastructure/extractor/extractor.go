package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

// Router picks a concrete extractor per document: the PDF extractor for
// PDF uploads, the plain-text one for everything else.
type Router struct {
	pdf   ports.TextExtractor
	plain ports.TextExtractor
}

func NewRouter(pdf, plain ports.TextExtractor) *Router {
	return &Router{pdf: pdf, plain: plain}
}

func (r *Router) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	if isPDF(doc) {
		return r.pdf.Extract(ctx, doc)
	}
	return r.plain.Extract(ctx, doc)
}

func isPDF(doc *domain.Document) bool {
	if strings.EqualFold(strings.TrimSpace(doc.MimeType), "application/pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(doc.Filename), ".pdf")
}
