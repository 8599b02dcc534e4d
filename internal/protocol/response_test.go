package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WhiteboardServer/internal/state"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		line string
		want Response
	}{
		{"welcome 3", Response{Kind: RespWelcome, UserID: 3}},
		{"current_board_id -1", Response{Kind: RespCurrentBoardID, BoardID: -1}},
		{"board_ids", Response{Kind: RespBoardIDs, IDs: []int{}}},
		{"board_ids 0 2", Response{Kind: RespBoardIDs, IDs: []int{0, 2}}},
		{"users_for_board_id 0 Bob Bob(1)", Response{Kind: RespUsersForBoard, BoardID: 0, Names: []string{"Bob", "Bob(1)"}}},
		{"users_for_board_id 4", Response{Kind: RespUsersForBoard, BoardID: 4, Names: []string{}}},
		{"done", Response{Kind: RespDone}},
		{"failed", Response{Kind: RespFailed}},
		{"logged_out", Response{Kind: RespLoggedOut}},
		{"board_lines", Response{Kind: RespBoardLines, Strokes: []state.Stroke{}}},
		{"draw 30 60 90 210 15.000000 125 255 0 10", Response{Kind: RespDraw, Strokes: []state.Stroke{
			{X1: 30, Y1: 60, X2: 90, Y2: 210, Thickness: 15, R: 125, G: 255, B: 0, A: 10},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseResponse(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseResponseErrors(t *testing.T) {
	for _, line := range []string{"", "hello", "welcome", "welcome x", "board_ids 1 x", "users_for_board_id", "draw 1 2"} {
		_, err := ParseResponse(line)
		assert.Error(t, err, "line %q", line)
	}
}

func TestRequestBuildersEscapeSpaces(t *testing.T) {
	assert.Equal(t, "set_username Big_Bob", SetUsername("Big Bob"))
	assert.Equal(t, "create_board My_Room", CreateBoard("My Room"))
	assert.Equal(t, "join_board_id 3", JoinBoard(3))
	assert.Equal(t, "get_users_for_board_id 2", GetUsersForBoard(2))
}
