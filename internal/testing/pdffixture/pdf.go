// Package pdffixture builds minimal valid PDF files for tests that stand in
// for Gotenberg.
package pdffixture

import (
	"bytes"
	"fmt"
	"strings"
)

// Build returns a PDF with the given number of blank A4 pages. padding grows
// the file past minimum size checks.
func Build(pages int, padding int) []byte {
	if pages < 1 {
		pages = 1
	}
	var objects []string
	kids := make([]string, 0, pages)
	for i := 0; i < pages; i++ {
		kids = append(kids, fmt.Sprintf("%d 0 R", i+3))
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages),
	)
	for i := 0; i < pages; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] >>")
	}

	buf := &bytes.Buffer{}
	buf.WriteString("%PDF-1.4\n")
	if padding > 0 {
		buf.WriteString("%" + strings.Repeat("x", padding) + "\n")
	}
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}
