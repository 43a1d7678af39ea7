package format

import "strings"

// PaperSize is a sheet size in pt (1" = 72pt).
type PaperSize struct {
	Name   string
	Width  float64
	Height float64
}

const ptPerMM = 72 / 25.4

var (
	A4Size     = PaperSize{Name: "A4", Width: 595.27559, Height: 841.88976} // 210mm x 297mm
	A5Size     = PaperSize{Name: "A5", Width: 419.52756, Height: 595.27559} // 148mm x 210mm
	A3Size     = PaperSize{Name: "A3", Width: 841.88976, Height: 1190.5512} // 297mm x 420mm
	LetterSize = PaperSize{Name: "Letter", Width: 612, Height: 792}         // 8.5" x 11"
	LegalSize  = PaperSize{Name: "Legal", Width: 612, Height: 1008}         // 8.5" x 14"
)

var papers = map[string]PaperSize{
	"a3":     A3Size,
	"a4":     A4Size,
	"a5":     A5Size,
	"letter": LetterSize,
	"legal":  LegalSize,
}

// LookupPaper returns the named size, A4 when unknown.
func LookupPaper(name string) PaperSize {
	if p, ok := papers[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	return A4Size
}

// WidthInches and HeightInches feed Gotenberg's paperWidth/paperHeight.
func (p PaperSize) WidthInches() float64  { return p.Width / 72 }
func (p PaperSize) HeightInches() float64 { return p.Height / 72 }

func (p PaperSize) WidthMM() float64  { return p.Width / ptPerMM }
func (p PaperSize) HeightMM() float64 { return p.Height / ptPerMM }
