package workflow

import (
	"bytes"

	"github.com/ledongthuc/pdf"
)

// ExtractPageText returns the plain text of one page (1-based) of a PDF held
// in memory. A malformed buffer or an out-of-range page yields ""; callers
// treat "no text" as a normal outcome and must not abort the batch over it.
// The reader lives only for this call; nothing is retained between pages.
func ExtractPageText(data []byte, pageNumber int) (text string) {
	// The parser panics on some corrupt cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	if len(data) == 0 || pageNumber < 1 {
		return ""
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	if pageNumber > reader.NumPage() {
		return ""
	}

	page := reader.Page(pageNumber)
	if page.V.IsNull() {
		return ""
	}

	content, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return content
}
