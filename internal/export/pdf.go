package export

import (
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/cory-johannsen/powerforge/internal/catalog"
)

// PDF layout defaults, matching the documents players already print.
const (
	DefaultFontSize = 9.0
	DefaultColumns  = 2
	DefaultMargin   = 50.0

	leadingFactor = 1.2
)

type rgb struct{ r, g, b int }

var (
	black     = rgb{0, 0, 0}
	nameColor = map[catalog.Kind]rgb{
		catalog.KindPower: {255, 0, 0},
		catalog.KindTrait: {0, 0, 255},
	}
)

// PDF lays a Document out on US Letter pages in balanced-width columns.
// A record never straddles a column break unless it is taller than a whole
// column. Zero-valued fields take the package defaults.
type PDF struct {
	FontSize float64
	Columns  int
	Margin   float64
}

// Extension implements Exporter.
func (PDF) Extension() string { return "pdf" }

// Export implements Exporter.
func (p PDF) Export(doc Document, w io.Writer) error {
	p = p.withDefaults()

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(p.Margin, p.Margin, p.Margin)
	pdf.SetAutoPageBreak(false, p.Margin)
	pdf.SetTitle(doc.Title, true)

	l := newPDFLayout(pdf, p)
	l.addPage()
	if doc.Title != "" {
		l.title(doc.Title)
	}
	for _, sec := range doc.Sections {
		if sec.Title != "" {
			l.place(l.wrap(sec.Title, "B", black))
		}
		for _, e := range sec.Entries {
			block := l.wrap(e.Name, "B", nameColor[sec.Kind])
			for _, f := range e.Fields {
				block = append(block, l.wrap(f.Label+": "+f.Value, "", black)...)
			}
			l.place(block)
			l.y += l.leading / 2
		}
		l.y += l.leading / 2
	}
	return pdf.Output(w)
}

func (p PDF) withDefaults() PDF {
	if p.FontSize <= 0 {
		p.FontSize = DefaultFontSize
	}
	if p.Columns <= 0 {
		p.Columns = DefaultColumns
	}
	if p.Margin <= 0 {
		p.Margin = DefaultMargin
	}
	return p
}

type pdfLine struct {
	text  string
	style string
	color rgb
}

// pdfLayout tracks the cursor across columns and pages.
type pdfLayout struct {
	pdf      *fpdf.Fpdf
	tr       func(string) string
	size     float64
	leading  float64
	margin   float64
	colWidth float64
	gutter   float64
	columns  int
	bottom   float64

	col int
	top float64 // top of the columns on the current page
	y   float64
}

func newPDFLayout(pdf *fpdf.Fpdf, p PDF) *pdfLayout {
	pageW, pageH := pdf.GetPageSize()
	gutter := p.Margin / 2
	usable := pageW - 2*p.Margin - gutter*float64(p.Columns-1)
	return &pdfLayout{
		pdf:      pdf,
		tr:       pdf.UnicodeTranslatorFromDescriptor(""),
		size:     p.FontSize,
		leading:  p.FontSize * leadingFactor,
		margin:   p.Margin,
		colWidth: usable / float64(p.Columns),
		gutter:   gutter,
		columns:  p.Columns,
		bottom:   pageH - p.Margin,
	}
}

func (l *pdfLayout) addPage() {
	l.pdf.AddPage()
	l.col = 0
	l.top = l.margin
	l.y = l.top
}

func (l *pdfLayout) advance() {
	l.col++
	if l.col >= l.columns {
		l.addPage()
		return
	}
	l.y = l.top
}

// title spans every column at the top of the first page.
func (l *pdfLayout) title(s string) {
	size := l.size + 5
	l.pdf.SetFont("Helvetica", "B", size)
	l.pdf.SetTextColor(black.r, black.g, black.b)
	text := l.tr(s)
	width := l.pdf.GetStringWidth(text)
	pageW, _ := l.pdf.GetPageSize()
	l.pdf.Text((pageW-width)/2, l.y+size, text)
	l.top = l.y + size*leadingFactor*2
	l.y = l.top
}

// wrap splits s into lines that fit the column, measured in the font they
// will be drawn in. Text is translated to the core font's code page first,
// so splitting works on bytes.
func (l *pdfLayout) wrap(s, style string, color rgb) []pdfLine {
	l.pdf.SetFont("Helvetica", style, l.size)
	var out []pdfLine
	emit := func(text string) {
		out = append(out, pdfLine{text: text, style: style, color: color})
	}
	for _, para := range strings.Split(l.tr(s), "\n") {
		line := ""
		for _, word := range strings.Split(para, " ") {
			if word == "" {
				continue
			}
			if line == "" {
				line = word
				continue
			}
			if l.pdf.GetStringWidth(line+" "+word) > l.colWidth {
				emit(line)
				line = word
				continue
			}
			line += " " + word
		}
		if line != "" {
			emit(line)
		}
	}
	return out
}

// place draws block, first moving to the next column when the block would
// not fit in what remains of the current one.
func (l *pdfLayout) place(block []pdfLine) {
	height := float64(len(block)) * l.leading
	if l.y+height > l.bottom && l.y > l.top {
		l.advance()
	}
	for _, line := range block {
		if l.y+l.leading > l.bottom {
			l.advance()
		}
		x := l.margin + float64(l.col)*(l.colWidth+l.gutter)
		l.pdf.SetFont("Helvetica", line.style, l.size)
		l.pdf.SetTextColor(line.color.r, line.color.g, line.color.b)
		l.pdf.Text(x, l.y+l.size, line.text)
		l.y += l.leading
	}
}
