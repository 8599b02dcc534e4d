// Package export renders boards to documents.
package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"

	"WhiteboardServer/internal/state"
)

const pageMargin = 10.0 // mm

// PDF draws the board's strokes on one A4 page, scaled to fit and in
// history order, and writes the document to w.
func PDF(w io.Writer, b state.BoardSnapshot) error {
	orientation := "P"
	if b.Width > b.Height {
		orientation = "L"
	}
	p := gofpdf.New(orientation, "mm", "A4", "")
	p.SetTitle(b.Name, true)
	p.SetCreator("WhiteboardServer", true)
	p.AddPage()

	pageW, pageH := p.GetPageSize()
	p.SetFont("Helvetica", "", 9)
	p.SetTextColor(90, 90, 90)
	p.Text(pageMargin, pageMargin-3, fmt.Sprintf("%s (%dx%d, %d strokes)", b.Name, b.Width, b.Height, len(b.Strokes)))

	scale := fitScale(b.Width, b.Height, pageW-2*pageMargin, pageH-2*pageMargin)
	p.SetDrawColor(200, 200, 200)
	p.SetLineWidth(0.2)
	p.Rect(pageMargin, pageMargin, float64(b.Width)*scale, float64(b.Height)*scale, "D")

	p.SetLineCapStyle("round")
	for _, st := range b.Strokes {
		p.SetDrawColor(clamp(st.R), clamp(st.G), clamp(st.B))
		p.SetAlpha(float64(clamp(st.A))/255, "Normal")
		p.SetLineWidth(max(float64(st.Thickness)*scale, 0.1))
		p.Line(
			pageMargin+float64(st.X1)*scale, pageMargin+float64(st.Y1)*scale,
			pageMargin+float64(st.X2)*scale, pageMargin+float64(st.Y2)*scale,
		)
	}
	p.SetAlpha(1, "Normal")

	if err := p.Output(w); err != nil {
		return errors.Wrapf(err, "render board %d", b.ID)
	}
	return nil
}

func fitScale(w, h int, availW, availH float64) float64 {
	if w <= 0 || h <= 0 {
		return 1
	}
	return min(availW/float64(w), availH/float64(h))
}

func clamp(c int) int {
	return min(max(c, 0), 255)
}
