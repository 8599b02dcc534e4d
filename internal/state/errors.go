package state

import "github.com/pkg/errors"

var (
	ErrUnknownUser  = errors.New("unknown user")
	ErrUnknownBoard = errors.New("unknown board")
	ErrNotInABoard  = errors.New("user is not in a board")
)

func unknownUser(id int) error {
	return errors.Wrapf(ErrUnknownUser, "user %d", id)
}

func unknownBoard(id int) error {
	return errors.Wrapf(ErrUnknownBoard, "board %d", id)
}
