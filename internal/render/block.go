// Package render turns a lesson plan into an ordered list of abstract
// document blocks: styled paragraphs and tables with merged cells.
//
// The package knows nothing about any file format; internal/docx maps the
// blocks onto WordprocessingML.
package render

// Block is a renderable unit. The set of implementations is closed:
// *Paragraph and *Table.
type Block interface {
	block()
}

// HeadingLevel selects a paragraph heading style. Zero means body text.
type HeadingLevel int

const (
	HeadingNone HeadingLevel = iota
	Heading1
	Heading2
	Heading3
)

// Alignment is the horizontal alignment of a paragraph or cell.
type Alignment int

const (
	AlignNone Alignment = iota
	AlignCenter
)

// Spacing is measured in points; indentation in indent units (one unit is
// half an inch in the serialized document).
const (
	SpacingUnit = 12.0
	HalfSpacing = SpacingUnit / 2
	IndentUnit  = 1.0
	HalfIndent  = IndentUnit / 2
)

// NBSP is the placeholder text of an empty table cell. A cell with no runs
// loses its borders in some viewers.
const NBSP = "\u00a0"

// TextRun is a span of text with uniform character formatting.
type TextRun struct {
	Text   string
	Bold   bool
	Italic bool
}

// Paragraph is a block of runs with paragraph-level formatting. A paragraph
// without runs is an empty spacing line.
type Paragraph struct {
	Runs          []TextRun
	Heading       HeadingLevel
	Alignment     Alignment
	SpacingBefore float64
	SpacingAfter  float64
	IndentLeft    float64
}

func (*Paragraph) block() {}

// Text returns the concatenated run text.
func (p *Paragraph) Text() string {
	var n int
	for _, r := range p.Runs {
		n += len(r.Text)
	}
	b := make([]byte, 0, n)
	for _, r := range p.Runs {
		b = append(b, r.Text...)
	}
	return string(b)
}

// Table is a grid of rows. The first row is the header and fixes the column
// count; every row's spans add up to that count.
type Table struct {
	Rows []TableRow
}

func (*Table) block() {}

// Columns returns the column count fixed by the header row.
func (t *Table) Columns() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return t.Rows[0].Span()
}

// TableRow is one row of a table.
type TableRow struct {
	Cells []TableCell
}

// Span returns the number of grid columns the row covers.
func (r TableRow) Span() int {
	n := 0
	for _, c := range r.Cells {
		n += c.ColumnSpan
	}
	return n
}

// TableCell is a single cell. ColumnSpan is at least 1.
type TableCell struct {
	Text       string
	ColumnSpan int
	Bold       bool
	Alignment  Alignment
}

// spacer returns the empty paragraph used to separate blocks.
func spacer() *Paragraph {
	return &Paragraph{}
}
