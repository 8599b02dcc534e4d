package state

import (
	"fmt"
	"sort"
	"sync"
)

// Store is the authoritative holder of users, boards, board membership and
// stroke history. Every method takes the same mutex, reads included, so
// composite reads always see a consistent view of membership and users.
type Store struct {
	mu sync.Mutex

	users  map[int]*user
	boards map[int]*board
	// boardOf is the inverse of board.members.
	boardOf map[int]int

	userIDs  idClock
	boardIDs idClock
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:   make(map[int]*user),
		boards:  make(map[int]*board),
		boardOf: make(map[int]int),
	}
}

// AddUser registers a new user that is in no board. An empty name gets the
// default User<id>. The name is made unique before it is stored.
func (s *Store) AddUser(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.userIDs.Tick()
	if name == "" {
		name = fmt.Sprintf("User%d", id)
	}
	s.users[id] = &user{id: id, name: s.resolveUserName(name, -1)}
	return id
}

// ChangeUserName renames a user and returns the name actually stored, which
// differs from newName when another user already holds it.
func (s *Store) ChangeUserName(newName string, userID int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return "", unknownUser(userID)
	}
	u.name = s.resolveUserName(newName, userID)
	return u.name, nil
}

// UserName returns the current name of a user.
func (s *Store) UserName(userID int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return "", unknownUser(userID)
	}
	return u.name, nil
}

// AddBoard creates an empty board and returns its id.
func (s *Store) AddBoard(opts BoardOptions) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addBoard(opts)
}

func (s *Store) addBoard(opts BoardOptions) int {
	if opts.Name == "" {
		opts.Name = DefaultBoardName
	}
	if opts.Width <= 0 {
		opts.Width = DefaultBoardWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultBoardHeight
	}

	id := s.boardIDs.Tick()
	s.boards[id] = &board{
		id:      id,
		name:    s.resolveBoardName(opts.Name),
		width:   opts.Width,
		height:  opts.Height,
		members: make(map[int]struct{}),
	}
	return id
}

// UserJoinBoard moves a user into a board, leaving any previous board in the
// same critical section.
func (s *Store) UserJoinBoard(userID, boardID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return unknownUser(userID)
	}
	b, ok := s.boards[boardID]
	if !ok {
		return unknownBoard(boardID)
	}

	s.attach(userID, b)
	return nil
}

// UserLeaveBoard removes a user from a board. It is a no-op when the user is
// not a member of that board.
func (s *Store) UserLeaveBoard(userID, boardID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return unknownUser(userID)
	}
	if _, ok := s.boards[boardID]; !ok {
		return unknownBoard(boardID)
	}

	if current, ok := s.boardOf[userID]; ok && current == boardID {
		s.detach(userID)
	}
	return nil
}

// DeleteUser removes a user and every membership that references it.
// Deleting an unknown user does nothing.
func (s *Store) DeleteUser(userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.detach(userID)
	delete(s.users, userID)
}

// AddStroke appends a stroke to a board's history.
func (s *Store) AddStroke(stroke Stroke, boardID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boards[boardID]
	if !ok {
		return unknownBoard(boardID)
	}
	b.strokes = append(b.strokes, stroke)
	return nil
}

// BoardIDs returns every board id in ascending order.
func (s *Store) BoardIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sortedBoardIDs()
}

// UserNamesForBoard returns the names of a board's members ordered by user id.
func (s *Store) UserNamesForBoard(boardID int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boards[boardID]
	if !ok {
		return nil, unknownBoard(boardID)
	}
	return s.memberNames(b), nil
}

// UserIDsForBoard returns the ids of a board's members in ascending order.
func (s *Store) UserIDsForBoard(boardID int) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boards[boardID]
	if !ok {
		return nil, unknownBoard(boardID)
	}
	return sortedMembers(b), nil
}

// BoardThatUserIsIn reports the board a user is in, if any.
func (s *Store) BoardThatUserIsIn(userID int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.boardOf[userID]
	return id, ok
}

// UsersSharingBoardWith returns every member of the user's board, the user
// included. It is empty when the user is in no board.
func (s *Store) UsersSharingBoardWith(userID int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	boardID, ok := s.boardOf[userID]
	if !ok {
		return nil
	}
	return sortedMembers(s.boards[boardID])
}

// StrokesForBoard returns a copy of a board's history in append order.
func (s *Store) StrokesForBoard(boardID int) ([]Stroke, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boards[boardID]
	if !ok {
		return nil, unknownBoard(boardID)
	}
	return append([]Stroke(nil), b.strokes...), nil
}

// Boards returns a snapshot of every board without stroke data.
func (s *Store) Boards() []BoardSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.sortedBoardIDs()
	out := make([]BoardSnapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.snapshot(s.boards[id], false))
	}
	return out
}

// Board returns a snapshot of one board including its strokes.
func (s *Store) Board(boardID int) (BoardSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boards[boardID]
	if !ok {
		return BoardSnapshot{}, unknownBoard(boardID)
	}
	return s.snapshot(b, true), nil
}

// Stats returns counts of users, boards and strokes.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Users: len(s.users), Boards: len(s.boards)}
	for _, b := range s.boards {
		st.Strokes += len(b.strokes)
	}
	return st
}

// attach makes b the only board userID belongs to. Callers hold s.mu.
func (s *Store) attach(userID int, b *board) {
	s.detach(userID)
	b.members[userID] = struct{}{}
	s.boardOf[userID] = b.id
}

// detach removes userID from its current board. Callers hold s.mu.
func (s *Store) detach(userID int) {
	boardID, ok := s.boardOf[userID]
	if !ok {
		return
	}
	if b, ok := s.boards[boardID]; ok {
		delete(b.members, userID)
	}
	delete(s.boardOf, userID)
}

func (s *Store) resolveUserName(name string, self int) string {
	return uniqueName(name, func(candidate string) bool {
		for id, u := range s.users {
			if id != self && u.name == candidate {
				return true
			}
		}
		return false
	})
}

func (s *Store) resolveBoardName(name string) string {
	return uniqueName(name, func(candidate string) bool {
		for _, b := range s.boards {
			if b.name == candidate {
				return true
			}
		}
		return false
	})
}

func (s *Store) sortedBoardIDs() []int {
	ids := make([]int, 0, len(s.boards))
	for id := range s.boards {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (s *Store) memberNames(b *board) []string {
	ids := sortedMembers(b)
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, s.users[id].name)
	}
	return names
}

func (s *Store) snapshot(b *board, withStrokes bool) BoardSnapshot {
	snap := BoardSnapshot{
		ID:          b.id,
		Name:        b.name,
		Width:       b.width,
		Height:      b.height,
		Users:       s.memberNames(b),
		StrokeCount: len(b.strokes),
	}
	if withStrokes {
		snap.Strokes = append([]Stroke{}, b.strokes...)
	}
	return snap
}

func sortedMembers(b *board) []int {
	ids := make([]int, 0, len(b.members))
	for id := range b.members {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
