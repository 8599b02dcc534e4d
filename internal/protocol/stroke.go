package protocol

import (
	"fmt"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"WhiteboardServer/internal/state"
)

// StrokeFields is the number of tokens in a serialized stroke.
const StrokeFields = 9

// FormatStroke renders x1 y1 x2 y2 thickness r g b a.
func FormatStroke(s state.Stroke) string {
	return fmt.Sprintf("%d %d %d %d %f %d %d %d %d",
		s.X1, s.Y1, s.X2, s.Y2, s.Thickness, s.R, s.G, s.B, s.A)
}

// ParseStroke reads exactly StrokeFields tokens. Integer fields accept decimal
// text, truncated toward zero.
func ParseStroke(tokens []string) (state.Stroke, error) {
	if len(tokens) != StrokeFields {
		return state.Stroke{}, errors.Errorf("stroke needs %d fields, got %d", StrokeFields, len(tokens))
	}

	ints := make([]int, 0, StrokeFields-1)
	var thickness float32
	for i, tok := range tokens {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsNaN(f) || math.Abs(f) > math.MaxInt32 {
			return state.Stroke{}, errors.Errorf("stroke field %d: bad number %q", i, tok)
		}
		if i == 4 {
			thickness = float32(f)
			continue
		}
		ints = append(ints, int(f))
	}

	return state.Stroke{
		X1: ints[0], Y1: ints[1], X2: ints[2], Y2: ints[3],
		Thickness: thickness,
		R:         ints[4], G: ints[5], B: ints[6], A: ints[7],
	}, nil
}

// ParseStrokes splits a flat token list into strokes.
func ParseStrokes(tokens []string) ([]state.Stroke, error) {
	if len(tokens)%StrokeFields != 0 {
		return nil, errors.Errorf("stroke list has %d tokens, not a multiple of %d", len(tokens), StrokeFields)
	}
	strokes := make([]state.Stroke, 0, len(tokens)/StrokeFields)
	for i := 0; i < len(tokens); i += StrokeFields {
		s, err := ParseStroke(tokens[i : i+StrokeFields])
		if err != nil {
			return nil, errors.Wrapf(err, "stroke %d", i/StrokeFields)
		}
		strokes = append(strokes, s)
	}
	return strokes, nil
}
