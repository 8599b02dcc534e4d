package protocol

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"WhiteboardServer/internal/state"
)

// Response is a parsed server line. Only the fields relevant to Kind are set.
type Response struct {
	Kind    string
	UserID  int
	BoardID int
	IDs     []int
	Names   []string
	Strokes []state.Stroke
}

// ParseResponse decodes one line received from the server.
func ParseResponse(line string) (Response, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Response{}, errors.New("empty response")
	}
	resp := Response{Kind: fields[0]}
	args := fields[1:]

	var err error
	switch resp.Kind {
	case RespWelcome:
		resp.UserID, err = singleInt(args)
	case RespCurrentBoardID:
		resp.BoardID, err = singleInt(args)
	case RespBoardIDs:
		resp.IDs, err = ints(args)
	case RespUsersForBoard:
		if len(args) == 0 {
			return Response{}, errors.Errorf("%s: missing board id", resp.Kind)
		}
		resp.BoardID, err = strconv.Atoi(args[0])
		resp.Names = append([]string{}, args[1:]...)
	case RespDraw:
		var s state.Stroke
		s, err = ParseStroke(args)
		resp.Strokes = []state.Stroke{s}
	case RespBoardLines:
		resp.Strokes, err = ParseStrokes(args)
	case RespDone, RespFailed, RespLoggedOut:
	default:
		return Response{}, errors.Errorf("unknown response %q", resp.Kind)
	}
	if err != nil {
		return Response{}, errors.Wrapf(err, "parse %s", resp.Kind)
	}
	return resp, nil
}

func singleInt(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.Errorf("want 1 argument, got %d", len(args))
	}
	return strconv.Atoi(args[0])
}

func ints(args []string) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
