package render

import (
	"fmt"
	"image/color"
	"io"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/i474232898/airline-rank-bot/internal/common"
	"github.com/i474232898/airline-rank-bot/internal/standings"
)

const (
	fontSize     = 20
	margin       = 10
	rowHeight    = 36
	cellPadding  = 32
	changeWidth  = 90
	arrowHalf    = 8
	changeColumn = 7
)

const (
	headerFill    = "#4a7ebb"
	referenceFill = "#ffe599"
	stripeFill    = "#f8f8f8"
	borderColor   = "#cccccc"
	upColor       = "#2e9e44"
	downColor     = "#d0312d"
)

// TableRenderer draws a snapshot as a PNG table.
type TableRenderer struct {
	regular font.Face
	bold    font.Face
}

// NewTableRenderer loads the embedded Go fonts.
func NewTableRenderer() (*TableRenderer, error) {
	regular, err := loadFace(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("render: load regular font: %w", err)
	}
	bold, err := loadFace(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("render: load bold font: %w", err)
	}
	return &TableRenderer{regular: regular, bold: bold}, nil
}

func loadFace(ttf []byte) (font.Face, error) {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: fontSize, DPI: 72}), nil
}

// Table is the textual content of the rendered image.
type Table struct {
	Header    []string
	Rows      [][]string
	Changes   []standings.RankChange
	Reference []bool
}

// BuildTable turns a snapshot into header and cell text. The change column is
// left blank; it is drawn as an arrow.
func BuildTable(snap standings.Snapshot) Table {
	refLabel := "Reference"
	if ref, ok := snap.Reference(); ok && ref.Abbr != "" {
		refLabel = ref.Abbr
	}

	t := Table{
		Header: []string{
			"Name", "ID", "CEO", "Pilots", "Total Flights", "Flights Last 30 Days",
			fmt.Sprintf("Estimated Time Until %s Passes", refLabel), "Change",
		},
	}
	for _, a := range snap.Airlines {
		days := a.DaysToPassStr
		if days == "" {
			days = standings.NotApplicable
		}
		t.Rows = append(t.Rows, []string{
			a.Name,
			a.Abbr,
			a.Owner,
			common.FormatCount(a.TotalPilots, standings.NotApplicable),
			common.FormatCount(a.TotalFlights, standings.NotApplicable),
			common.FormatCount(a.FlightsLast30Days, standings.NotApplicable),
			days,
			"",
		})
		t.Changes = append(t.Changes, a.Change)
		t.Reference = append(t.Reference, a.Reference || a.ID == snap.ReferenceID)
	}
	return t
}

// Render writes the snapshot as a PNG to w.
func (r *TableRenderer) Render(snap standings.Snapshot, w io.Writer) error {
	t := BuildTable(snap)
	widths := r.columnWidths(t)

	total := 0.0
	for _, cw := range widths {
		total += cw
	}
	width := int(total) + 2*margin
	height := rowHeight*(len(t.Rows)+1) + 2*margin

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()

	r.drawRow(dc, 0, t.Header, widths, headerFill, true, standings.ChangeUnknown)
	for i, row := range t.Rows {
		fill := "#ffffff"
		switch {
		case t.Reference[i]:
			fill = referenceFill
		case (i+1)%2 == 0:
			fill = stripeFill
		}
		r.drawRow(dc, i+1, row, widths, fill, false, t.Changes[i])
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("render: encode png: %w", err)
	}
	return nil
}

func (r *TableRenderer) columnWidths(t Table) []float64 {
	measure := gg.NewContext(1, 1)
	widths := make([]float64, len(t.Header))

	measure.SetFontFace(r.bold)
	for c, h := range t.Header {
		w, _ := measure.MeasureString(h)
		widths[c] = w
	}

	measure.SetFontFace(r.regular)
	for _, row := range t.Rows {
		for c, cell := range row {
			if w, _ := measure.MeasureString(cell); w > widths[c] {
				widths[c] = w
			}
		}
	}

	for c := range widths {
		widths[c] += cellPadding
	}
	if widths[changeColumn] < changeWidth {
		widths[changeColumn] = changeWidth
	}
	return widths
}

func (r *TableRenderer) drawRow(dc *gg.Context, row int, cells []string, widths []float64, fill string, header bool, change standings.RankChange) {
	y := float64(margin + row*rowHeight)
	x := float64(margin)

	for c, text := range cells {
		w := widths[c]

		dc.DrawRectangle(x, y, w, rowHeight)
		dc.SetHexColor(fill)
		dc.Fill()

		dc.DrawRectangle(x, y, w, rowHeight)
		dc.SetHexColor(borderColor)
		dc.SetLineWidth(1)
		dc.Stroke()

		cx, cy := x+w/2, y+rowHeight/2
		if !header && c == changeColumn {
			drawArrow(dc, cx, cy, change)
		} else {
			if header {
				dc.SetFontFace(r.bold)
				dc.SetColor(color.White)
			} else {
				dc.SetFontFace(r.regular)
				dc.SetColor(color.Black)
			}
			dc.DrawStringAnchored(text, cx, cy, 0.5, 0.35)
		}

		x += w
	}
}

func drawArrow(dc *gg.Context, cx, cy float64, change standings.RankChange) {
	switch change {
	case standings.ChangeUp:
		dc.MoveTo(cx, cy-arrowHalf)
		dc.LineTo(cx+arrowHalf, cy+arrowHalf)
		dc.LineTo(cx-arrowHalf, cy+arrowHalf)
		dc.SetHexColor(upColor)
	case standings.ChangeDown:
		dc.MoveTo(cx-arrowHalf, cy-arrowHalf)
		dc.LineTo(cx+arrowHalf, cy-arrowHalf)
		dc.LineTo(cx, cy+arrowHalf)
		dc.SetHexColor(downColor)
	default:
		return
	}
	dc.ClosePath()
	dc.Fill()
}
