package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WhiteboardServer/internal/state"
)

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	err := PDF(&buf, state.BoardSnapshot{
		ID:     0,
		Name:   "Room",
		Width:  600,
		Height: 400,
		Strokes: []state.Stroke{
			{X1: 30, Y1: 60, X2: 90, Y2: 210, Thickness: 15, R: 125, G: 255, B: 0, A: 10},
			{X1: 0, Y1: 0, X2: 600, Y2: 400, Thickness: 1, R: 300, G: -4, B: 0, A: 255},
		},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestPDFEmptyBoard(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PDF(&buf, state.BoardSnapshot{Name: "Board", Width: 600, Height: 400}))
	assert.NotZero(t, buf.Len())
}

func TestFitScale(t *testing.T) {
	assert.Equal(t, 0.5, fitScale(600, 400, 300, 400))
	assert.Equal(t, 0.25, fitScale(600, 400, 300, 100))
	assert.Equal(t, 1.0, fitScale(0, 400, 300, 100))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, clamp(-3))
	assert.Equal(t, 255, clamp(999))
	assert.Equal(t, 17, clamp(17))
}
