package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF parses the buffer page by page and joins the page texts with
// blank-line separators. Returns the text and the page count.
func extractPDF(buf []byte) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return "", 0, fmt.Errorf("%w: parsing pdf: %v", ErrEmptyExtraction, err)
	}

	pageCount := reader.NumPage()

	var pages []string
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		// Pages that fail text extraction (scanned images, exotic
		// encodings) are skipped rather than failing the whole document.
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, text)
	}

	return strings.Join(pages, "\n\n"), pageCount, nil
}
