// Package extract reads book files into text carrying "--- Page N ---" markers.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

// Document is the extracted text of one file.
type Document struct {
	Title      string
	SourceFile string // base name of the file
	Path       string
	Text       string

	Pages        int
	PagesSkipped int
}

// Extractor turns files into Documents.
type Extractor struct {
	// PageDelay is slept between PDF pages.
	PageDelay time.Duration
}

// SupportedExt reports whether Extract can read files with this extension.
func SupportedExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}

// TitleFromPath returns the file name without its extension.
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Extract reads path. An empty title defaults to the file stem.
func (e *Extractor) Extract(ctx context.Context, path, title string) (*Document, error) {
	if title == "" {
		title = TitleFromPath(path)
	}
	doc := &Document{
		Title:      title,
		SourceFile: filepath.Base(path),
		Path:       path,
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		doc.Text = string(data)
	case ".pdf":
		if err := e.extractPDF(ctx, doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}

	return doc, nil
}

func (e *Extractor) extractPDF(ctx context.Context, doc *Document) error {
	f, r, err := pdf.Open(doc.Path)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return fmt.Errorf("failed to open pdf %s: %w", doc.Path, err)
	}
	defer f.Close()

	doc.Pages = r.NumPage()
	var b strings.Builder
	for i := 1; i <= doc.Pages; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			doc.PagesSkipped++
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Str("file", doc.SourceFile).Int("page", i).Msg("skipping unreadable page")
			doc.PagesSkipped++
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			doc.PagesSkipped++
			continue
		}
		fmt.Fprintf(&b, "\n\n--- Page %d ---\n\n%s", i, text)

		if e.PageDelay > 0 && i < doc.Pages {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.PageDelay):
			}
		}
	}

	doc.Text = b.String()
	return nil
}
