package protocol

import (
	"github.com/pkg/errors"

	"WhiteboardServer/internal/state"
)

// Store is the part of the session store the handler drives.
type Store interface {
	BoardIDs() []int
	Rename(userID int, newName string) (string, *state.Members, error)
	CreateBoardAndJoin(userID int, opts state.BoardOptions) (int, []int, error)
	BoardThatUserIsIn(userID int) (int, bool)
	UserNamesForBoard(boardID int) ([]string, error)
	JoinBoard(userID, boardID int) (state.Members, []state.Stroke, error)
	LeaveBoard(userID int) (state.Members, bool, error)
	Draw(userID int, stroke state.Stroke) (state.Members, error)
	CurrentMembers(userID int) (state.Members, error)
	Logout(userID int) (state.Members, bool)
}

// Broadcast is a server-initiated message and who should get it. All means
// every live connection; otherwise Recipients lists user ids.
type Broadcast struct {
	Message    string
	Recipients []int
	All        bool
}

// Result is everything a request produces. Broadcasts are delivered before
// Reply. Err records why a request failed or was dropped, for logging only.
type Result struct {
	Reply      string
	Broadcasts []Broadcast
	Close      bool
	Err        error
}

// Handler turns request lines into store mutations and outgoing messages.
// It keeps no state of its own.
type Handler struct {
	store Store
	board state.BoardOptions
}

// NewHandler creates a handler over store. boardDefaults sizes boards made by
// create_board.
func NewHandler(store Store, boardDefaults state.BoardOptions) *Handler {
	return &Handler{store: store, board: boardDefaults}
}

// Handle processes one line from userID.
func (h *Handler) Handle(line string, userID int) Result {
	req, err := ParseRequest(line)
	if err != nil {
		return Result{Err: err}
	}

	switch req.Command {
	case ReqGetBoardIDs:
		return Result{Reply: BoardIDs(h.store.BoardIDs())}
	case ReqSetUsername:
		return h.setUsername(req, userID)
	case ReqCreateBoard:
		return h.createBoard(req, userID)
	case ReqGetCurrentBoardID:
		return h.currentBoard(userID)
	case ReqGetUsersForBoard:
		return h.usersForBoard(req)
	case ReqJoinBoard:
		return h.joinBoard(req, userID)
	case ReqLeaveBoard:
		return h.leaveBoard(userID)
	case ReqDraw:
		return h.draw(req, userID)
	case ReqLogout:
		return h.Logout(userID)
	case ReqGetUsersInMyBoard:
		return h.usersInMyBoard(userID)
	default:
		return Result{Err: errors.Wrapf(ErrMalformed, "unknown command %q", req.Command)}
	}
}

// Logout removes userID from the store. The connection layer also calls it
// directly when a socket ends without a logout request.
func (h *Handler) Logout(userID int) Result {
	res := Result{Reply: LoggedOut(), Close: true}
	if m, ok := h.store.Logout(userID); ok {
		res.Broadcasts = []Broadcast{membersChanged(m)}
	}
	return res
}

func (h *Handler) setUsername(req Request, userID int) Result {
	name, err := req.nameArg()
	if err != nil {
		return Result{Err: err}
	}
	_, members, err := h.store.Rename(userID, name)
	if err != nil {
		return Result{Reply: Failed(), Err: err}
	}
	res := Result{Reply: Done()}
	if members != nil {
		res.Broadcasts = []Broadcast{membersChanged(*members)}
	}
	return res
}

func (h *Handler) createBoard(req Request, userID int) Result {
	opts := h.board
	if len(req.Args) > 0 {
		opts.Name = req.Args[0]
	}
	_, ids, err := h.store.CreateBoardAndJoin(userID, opts)
	if err != nil {
		return Result{Reply: Failed(), Err: err}
	}
	return Result{
		Reply:      Done(),
		Broadcasts: []Broadcast{{Message: BoardIDs(ids), All: true}},
	}
}

func (h *Handler) currentBoard(userID int) Result {
	boardID, ok := h.store.BoardThatUserIsIn(userID)
	if !ok {
		boardID = NoBoard
	}
	return Result{Reply: CurrentBoardID(boardID)}
}

func (h *Handler) usersForBoard(req Request) Result {
	boardID, err := req.intArg(0)
	if err != nil {
		return Result{Err: err}
	}
	names, err := h.store.UserNamesForBoard(boardID)
	if err != nil {
		return Result{Reply: Failed(), Err: err}
	}
	return Result{Reply: UsersForBoard(boardID, names)}
}

func (h *Handler) joinBoard(req Request, userID int) Result {
	boardID, err := req.intArg(0)
	if err != nil {
		return Result{Err: err}
	}
	members, strokes, err := h.store.JoinBoard(userID, boardID)
	if err != nil {
		return Result{Reply: Failed(), Err: err}
	}
	return Result{
		Reply:      BoardLines(strokes),
		Broadcasts: []Broadcast{membersChanged(members)},
	}
}

func (h *Handler) leaveBoard(userID int) Result {
	members, ok, err := h.store.LeaveBoard(userID)
	if err != nil {
		return Result{Reply: Failed(), Err: err}
	}
	res := Result{Reply: Done()}
	if ok {
		res.Broadcasts = []Broadcast{membersChanged(members)}
	}
	return res
}

func (h *Handler) draw(req Request, userID int) Result {
	stroke, err := req.strokeArg()
	if err != nil {
		return Result{Err: err}
	}
	members, err := h.store.Draw(userID, stroke)
	if err != nil {
		return Result{Reply: Failed(), Err: err}
	}
	return Result{
		Reply:      Done(),
		Broadcasts: []Broadcast{{Message: DrawLine(stroke), Recipients: members.UserIDs}},
	}
}

func (h *Handler) usersInMyBoard(userID int) Result {
	members, err := h.store.CurrentMembers(userID)
	if err != nil {
		return Result{Reply: Failed(), Err: err}
	}
	return Result{Reply: UsersForBoard(members.BoardID, members.Names)}
}

func membersChanged(m state.Members) Broadcast {
	return Broadcast{Message: UsersForBoard(m.BoardID, m.Names), Recipients: m.UserIDs}
}
