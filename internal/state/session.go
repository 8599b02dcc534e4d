package state

// Composite operations used by the protocol handler. Each one runs in a single
// critical section so the recipient set it returns matches the mutation it
// made.

// Members is the membership of one board captured at a single instant.
type Members struct {
	BoardID int
	UserIDs []int
	Names   []string
}

func (s *Store) members(boardID int) Members {
	b := s.boards[boardID]
	return Members{
		BoardID: boardID,
		UserIDs: sortedMembers(b),
		Names:   s.memberNames(b),
	}
}

// Rename changes a user's name and, when the user is in a board, returns that
// board's membership as seen right after the rename.
func (s *Store) Rename(userID int, newName string) (string, *Members, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return "", nil, unknownUser(userID)
	}
	u.name = s.resolveUserName(newName, userID)

	boardID, ok := s.boardOf[userID]
	if !ok {
		return u.name, nil, nil
	}
	m := s.members(boardID)
	return u.name, &m, nil
}

// CreateBoardAndJoin adds a board, moves the user into it and returns the new
// board id with the full list of board ids.
func (s *Store) CreateBoardAndJoin(userID int, opts BoardOptions) (int, []int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return 0, nil, unknownUser(userID)
	}
	boardID := s.addBoard(opts)
	s.attach(userID, s.boards[boardID])
	return boardID, s.sortedBoardIDs(), nil
}

// JoinBoard moves the user into boardID and returns the new membership and the
// board history, both captured in the same critical section as the move.
func (s *Store) JoinBoard(userID, boardID int) (Members, []Stroke, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return Members{}, nil, unknownUser(userID)
	}
	b, ok := s.boards[boardID]
	if !ok {
		return Members{}, nil, unknownBoard(boardID)
	}

	s.attach(userID, b)

	return s.members(boardID), append([]Stroke(nil), b.strokes...), nil
}

// LeaveBoard removes the user from its current board and returns the
// remaining membership. ok is false when the user was in no board.
func (s *Store) LeaveBoard(userID int) (Members, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[userID]; !exists {
		return Members{}, false, unknownUser(userID)
	}
	boardID, in := s.boardOf[userID]
	if !in {
		return Members{}, false, nil
	}
	s.detach(userID)
	return s.members(boardID), true, nil
}

// Draw appends a stroke to the user's current board and returns the members
// that should see it.
func (s *Store) Draw(userID int, stroke Stroke) (Members, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	boardID, ok := s.boardOf[userID]
	if !ok {
		return Members{}, ErrNotInABoard
	}
	b := s.boards[boardID]
	b.strokes = append(b.strokes, stroke)
	return Members{BoardID: boardID, UserIDs: sortedMembers(b)}, nil
}

// CurrentMembers returns the membership of the user's board.
func (s *Store) CurrentMembers(userID int) (Members, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	boardID, ok := s.boardOf[userID]
	if !ok {
		return Members{}, ErrNotInABoard
	}
	return s.members(boardID), nil
}

// Logout deletes the user and returns the membership its board was left
// with. ok is false when the user was in no board.
func (s *Store) Logout(userID int) (Members, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	boardID, in := s.boardOf[userID]
	s.detach(userID)
	delete(s.users, userID)
	if !in {
		return Members{}, false
	}
	return s.members(boardID), true
}
