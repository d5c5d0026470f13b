// Package pdftext pulls the text layer out of born-digital ticket PDFs,
// one page per delivery ticket, preserving the row structure the parsing
// heuristics depend on.
package pdftext

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/devinhayward/concrete-tickets/internal/common"
)

// Page is the text layer of one PDF page.
type Page struct {
	Number int
	Text   string
}

type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// PageCount returns the number of pages in the PDF at path.
func (e *Extractor) PageCount(path string) (int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, common.WrapError(err, fmt.Sprintf("open pdf %s", path))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.logger.Warn("pdftext.close_error", "path", path, "error", cerr)
		}
	}()
	return r.NumPage(), nil
}

// Extract returns the text of the requested pages (1-based). A nil or empty
// pages slice means every page. Pages whose text layer is empty are returned
// with empty text rather than dropped, so page numbering stays aligned with
// the source file.
func (e *Extractor) Extract(path string, pages []int) ([]Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, common.WrapError(err, fmt.Sprintf("open pdf %s", path))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.logger.Warn("pdftext.close_error", "path", path, "error", cerr)
		}
	}()

	total := r.NumPage()
	if len(pages) == 0 {
		pages = make([]int, total)
		for i := range pages {
			pages[i] = i + 1
		}
	}

	out := make([]Page, 0, len(pages))
	for _, n := range pages {
		if n < 1 || n > total {
			return nil, common.NewAppError("PAGE_RANGE", fmt.Sprintf("page %d out of range 1..%d", n, total), nil)
		}
		text, err := pageText(r.Page(n))
		if err != nil {
			return nil, common.WrapError(err, fmt.Sprintf("page %d of %s", n, path))
		}
		if text == "" {
			e.logger.Warn("pdftext.empty_page", "path", path, "page", n)
		}
		out = append(out, Page{Number: n, Text: text})
	}

	e.logger.Info("pdftext.extract",
		"path", path,
		"pages", len(out),
		"total_pages", total,
	)
	return out, nil
}

// pageText rebuilds the page as newline-separated rows, words in reading
// order. Row grouping comes from the library; we only join and trim.
func pageText(p pdf.Page) (string, error) {
	if p.V.IsNull() {
		return "", nil
	}
	rows, err := p.GetTextByRow()
	if err != nil {
		return "", fmt.Errorf("read text rows: %w", err)
	}

	var b strings.Builder
	for _, row := range rows {
		var words []string
		for _, word := range row.Content {
			if s := strings.TrimSpace(word.S); s != "" {
				words = append(words, s)
			}
		}
		if len(words) == 0 {
			continue
		}
		b.WriteString(strings.Join(words, " "))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
