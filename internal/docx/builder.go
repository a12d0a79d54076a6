// Package docx serializes render blocks into a Word (.docx) document and
// derives the download filename for a lesson plan.
package docx

import (
	"fmt"
	"math"
	"strings"
	"time"

	goword "github.com/VantageDataChat/GoWord"
	"github.com/VantageDataChat/GoWord/style"

	"giaoan/internal/render"
)

// ContentType is the MIME type of the produced document.
const ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Unit conversions into the native measurements of WordprocessingML.
const (
	twipsPerPoint      = 20  // spacing: points to twentieths of a point
	twipsPerIndentUnit = 720 // indentation: one unit is half an inch
	borderSize         = 4   // eighths of a point
	borderColor        = "000000"
	fullWidthPct       = 5000 // fiftieths of a percent
)

// A4 portrait with the 3 cm left margin customary for school documents.
const (
	pageWidth    = 11906
	pageHeight   = 16838
	marginTop    = 1134
	marginRight  = 1134
	marginBottom = 1134
	marginLeft   = 1701
	contentWidth = pageWidth - marginLeft - marginRight
)

// Body text is 13pt Times New Roman, the usual size for Vietnamese
// administrative documents.
const (
	fontName = "Times New Roman"
	fontSize = 13
)

// modTime is stamped into the core properties so identical blocks produce
// identical bytes.
var modTime = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// Builder serializes blocks. The zero value is ready to use.
type Builder struct {
	// Title and Creator go into the package's core properties.
	Title   string
	Creator string
}

// Build serializes blocks with an untitled Builder.
func Build(blocks []render.Block) ([]byte, error) {
	return (&Builder{}).Build(blocks)
}

// Build serializes blocks into a complete .docx package.
func (b *Builder) Build(blocks []render.Block) ([]byte, error) {
	doc := goword.New()
	doc.Properties.Title = b.Title
	doc.Properties.Creator = b.Creator
	doc.Properties.LastModifiedBy = b.Creator
	doc.Properties.Created = modTime
	doc.Properties.Modified = modTime
	doc.DefaultFont = style.FontStyle{Name: fontName, NameEastAsia: fontName, Size: fontSize}

	sec := doc.AddSectionWithStyle(style.SectionStyle{
		Orientation:  style.OrientPortrait,
		PageWidth:    pageWidth,
		PageHeight:   pageHeight,
		MarginTop:    marginTop,
		MarginRight:  marginRight,
		MarginBottom: marginBottom,
		MarginLeft:   marginLeft,
		HeaderHeight: 720,
		FooterHeight: 720,
		ColumnCount:  1,
	})

	for _, blk := range blocks {
		switch v := blk.(type) {
		case *render.Paragraph:
			addParagraph(sec, v)
		case *render.Table:
			addTable(sec, v)
		}
	}

	data, err := doc.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("write docx: %w", err)
	}
	return data, nil
}

func addParagraph(sec *goword.Section, p *render.Paragraph) {
	tr := sec.AddTextRun(&style.ParagraphStyle{
		Alignment:   alignment(p.Alignment),
		SpaceBefore: twips(p.SpacingBefore, twipsPerPoint),
		SpaceAfter:  twips(p.SpacingAfter, twipsPerPoint),
		Indent:      twips(p.IndentLeft, twipsPerIndentUnit),
	})
	if p.Heading != render.HeadingNone {
		tr.StyleName = fmt.Sprintf("Heading%d", int(p.Heading))
	}
	for _, r := range p.Runs {
		tr.AddText(r.Text, &style.FontStyle{Bold: r.Bold, Italic: r.Italic})
	}
}

func addTable(sec *goword.Section, t *render.Table) {
	cols := t.Columns()
	if cols <= 0 {
		return
	}
	ts := &style.TableStyle{Width: fullWidthPct, WidthType: "pct"}
	ts.SetAllBorders("single", borderSize, borderColor)
	tbl := sec.AddTable(ts)

	colWidth := contentWidth / cols
	tbl.Grid = make([]int, cols)
	for i := range tbl.Grid {
		tbl.Grid[i] = colWidth
	}

	for _, r := range t.Rows {
		row := tbl.AddRow(0, nil)
		for _, c := range r.Cells {
			span := c.ColumnSpan
			if span < 1 {
				span = 1
			}
			cell := row.AddCell(colWidth*span, &style.CellStyle{WidthType: "dxa", GridSpan: span})
			text := c.Text
			if strings.TrimSpace(text) == "" {
				text = render.NBSP
			}
			cell.AddText(text,
				&style.FontStyle{Bold: c.Bold && text != render.NBSP},
				&style.ParagraphStyle{Alignment: alignment(c.Alignment)})
		}
	}
}

func alignment(a render.Alignment) string {
	if a == render.AlignCenter {
		return style.AlignCenter
	}
	return style.AlignLeft
}

func twips(v float64, per int) int {
	return int(math.Round(v * float64(per)))
}
