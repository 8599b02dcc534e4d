// Package protocol implements the newline-delimited text protocol spoken
// between whiteboard clients and the server.
package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"WhiteboardServer/internal/state"
)

// Requests sent by clients.
const (
	ReqGetBoardIDs       = "get_board_ids"
	ReqSetUsername       = "set_username"
	ReqCreateBoard       = "create_board"
	ReqGetCurrentBoardID = "get_current_board_id"
	ReqGetUsersForBoard  = "get_users_for_board_id"
	ReqJoinBoard         = "join_board_id"
	ReqLogout            = "logout"
	ReqGetUsersInMyBoard = "get_users_in_my_board"
	ReqLeaveBoard        = "leave_board"
	ReqDraw              = "req_draw"
)

// Responses and broadcasts sent by the server.
const (
	RespWelcome        = "welcome"
	RespBoardIDs       = "board_ids"
	RespUsersForBoard  = "users_for_board_id"
	RespCurrentBoardID = "current_board_id"
	RespFailed         = "failed"
	RespDone           = "done"
	RespLoggedOut      = "logged_out"
	RespDraw           = "draw"
	RespBoardLines     = "board_lines"
)

// NoBoard is sent in current_board_id when the user is in no board.
const NoBoard = -1

// EscapeName replaces spaces so a name travels as a single token.
func EscapeName(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

// Welcome is the first line on every connection, carrying the user id.
func Welcome(userID int) string {
	return fmt.Sprintf("%s %d", RespWelcome, userID)
}

// Done, Failed and LoggedOut are the bare acknowledgement replies.
func Done() string      { return RespDone }
func Failed() string    { return RespFailed }
func LoggedOut() string { return RespLoggedOut }

// CurrentBoardID formats the reply to get_current_board_id; NoBoard when
// the user is in no board.
func CurrentBoardID(boardID int) string {
	return fmt.Sprintf("%s %d", RespCurrentBoardID, boardID)
}

// BoardIDs formats the list of every board id.
func BoardIDs(ids []int) string {
	var sb strings.Builder
	sb.WriteString(RespBoardIDs)
	for _, id := range ids {
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(id))
	}
	return sb.String()
}

// UsersForBoard formats a board id followed by its member names.
func UsersForBoard(boardID int, names []string) string {
	var sb strings.Builder
	sb.WriteString(RespUsersForBoard)
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(boardID))
	for _, name := range names {
		sb.WriteByte(' ')
		sb.WriteString(name)
	}
	return sb.String()
}

// DrawLine formats the broadcast for one new stroke.
func DrawLine(s state.Stroke) string {
	return RespDraw + " " + FormatStroke(s)
}

// BoardLines formats a board's full history, sent in reply to a join.
func BoardLines(strokes []state.Stroke) string {
	var sb strings.Builder
	sb.WriteString(RespBoardLines)
	for _, s := range strokes {
		sb.WriteByte(' ')
		sb.WriteString(FormatStroke(s))
	}
	return sb.String()
}

// Request builders used by clients.

// GetBoardIDs asks for the list of boards.
func GetBoardIDs() string { return ReqGetBoardIDs }

// SetUsername asks to rename the sender. Spaces become underscores.
func SetUsername(name string) string {
	return ReqSetUsername + " " + EscapeName(name)
}

// CreateBoard asks for a new board and moves the sender into it.
func CreateBoard(name string) string {
	return ReqCreateBoard + " " + EscapeName(name)
}

// GetCurrentBoardID asks which board the sender is in.
func GetCurrentBoardID() string { return ReqGetCurrentBoardID }

// GetUsersForBoard asks for the member names of a board.
func GetUsersForBoard(boardID int) string {
	return fmt.Sprintf("%s %d", ReqGetUsersForBoard, boardID)
}

// JoinBoard asks to move the sender into a board.
func JoinBoard(boardID int) string {
	return fmt.Sprintf("%s %d", ReqJoinBoard, boardID)
}

// Logout ends the session.
func Logout() string { return ReqLogout }

// GetUsersInMyBoard asks for the members of the sender's board.
func GetUsersInMyBoard() string { return ReqGetUsersInMyBoard }

// LeaveBoard asks to leave the current board.
func LeaveBoard() string { return ReqLeaveBoard }

// Draw asks to append a stroke to the sender's board.
func Draw(s state.Stroke) string {
	return ReqDraw + " " + FormatStroke(s)
}
