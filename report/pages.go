package report

import (
	"bytes"
	"fmt"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"
)

// CountPages reads the page tree of a rendered PDF.
func CountPages(data []byte) (int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("report: open pdf: %w", err)
	}
	n, err := pagetree.NumPages(r)
	if err != nil {
		return 0, fmt.Errorf("report: count pages: %w", err)
	}
	return n, nil
}
