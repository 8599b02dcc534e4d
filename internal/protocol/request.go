package protocol

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"WhiteboardServer/internal/state"
)

// ErrMalformed marks a request line that cannot be parsed. Such lines are
// dropped without a reply.
var ErrMalformed = errors.New("malformed request")

// Request is one parsed client line.
type Request struct {
	Command string
	Args    []string
}

// ParseRequest splits a line into its command and arguments. Runs of spaces
// and a trailing carriage return are tolerated.
func ParseRequest(line string) (Request, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Request{}, errors.Wrap(ErrMalformed, "empty line")
	}
	return Request{Command: fields[0], Args: fields[1:]}, nil
}

func (r Request) intArg(i int) (int, error) {
	if i >= len(r.Args) {
		return 0, errors.Wrapf(ErrMalformed, "%s: missing argument %d", r.Command, i+1)
	}
	n, err := strconv.Atoi(r.Args[i])
	if err != nil {
		return 0, errors.Wrapf(ErrMalformed, "%s: %q is not an integer", r.Command, r.Args[i])
	}
	return n, nil
}

func (r Request) nameArg() (string, error) {
	if len(r.Args) == 0 {
		return "", errors.Wrapf(ErrMalformed, "%s: missing name", r.Command)
	}
	return r.Args[0], nil
}

func (r Request) strokeArg() (state.Stroke, error) {
	s, err := ParseStroke(r.Args)
	if err != nil {
		return state.Stroke{}, errors.Wrapf(ErrMalformed, "%s: %v", r.Command, err)
	}
	return s, nil
}

var knownCommands = map[string]bool{
	ReqGetBoardIDs:       true,
	ReqSetUsername:       true,
	ReqCreateBoard:       true,
	ReqGetCurrentBoardID: true,
	ReqGetUsersForBoard:  true,
	ReqJoinBoard:         true,
	ReqLogout:            true,
	ReqGetUsersInMyBoard: true,
	ReqLeaveBoard:        true,
	ReqDraw:              true,
}

// CommandOf returns the command word of line, or "unknown" when it is not one
// the server understands. The result is safe to use as a metric label.
func CommandOf(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 || !knownCommands[fields[0]] {
		return "unknown"
	}
	return fields[0]
}
