// Package board holds the in-memory state of one board: its columns in
// position order, each column's cards in position order, the membership
// list and the acting user's resolved role.
package board

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"cardtrack/internal/model"
	"cardtrack/internal/role"

	"golang.org/x/sync/errgroup"
)

// Fetcher reads board state from the API. *api.Client satisfies it.
type Fetcher interface {
	GetBoard(ctx context.Context, boardID int64) (*model.Board, error)
	GetColumns(ctx context.Context, boardID int64) ([]model.Column, error)
	GetMembers(ctx context.Context, boardID int64) ([]model.Member, error)
}

// LoadError is returned when a fetch the board view cannot do without
// (board or columns) fails.
type LoadError struct {
	BoardID  int64
	Resource string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load board %d: %s: %v", e.BoardID, e.Resource, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type Store struct {
	fetcher Fetcher
	session model.Session
	boardID int64

	tickets atomic.Uint64

	mu      sync.RWMutex
	applied uint64
	loaded  bool
	board   model.Board
	columns []model.Column
	members []model.Member
	role    model.Role
}

func NewStore(fetcher Fetcher, session model.Session, boardID int64) *Store {
	return &Store{
		fetcher: fetcher,
		session: session,
		boardID: boardID,
	}
}

func (s *Store) BoardID() int64 { return s.boardID }

func (s *Store) Session() model.Session { return s.session }

// Load fetches board, columns and members concurrently and replaces the
// store contents. A failed members fetch is not fatal: the member list is
// emptied and the role resolves to RoleUnknown. When loads overlap, the
// one started last wins.
func (s *Store) Load(ctx context.Context) error {
	ticket := s.tickets.Add(1)

	var (
		board      *model.Board
		columns    []model.Column
		members    []model.Member
		membersErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.fetcher.GetBoard(gctx, s.boardID)
		if err != nil {
			return &LoadError{BoardID: s.boardID, Resource: "board", Err: err}
		}
		board = b
		return nil
	})
	g.Go(func() error {
		cols, err := s.fetcher.GetColumns(gctx, s.boardID)
		if err != nil {
			return &LoadError{BoardID: s.boardID, Resource: "columns", Err: err}
		}
		columns = cols
		return nil
	})
	g.Go(func() error {
		members, membersErr = s.fetcher.GetMembers(gctx, s.boardID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if membersErr != nil {
		slog.Warn("members fetch failed, treating user as viewer",
			"board_id", s.boardID,
			"error", membersErr)
		members = nil
	}
	model.SortColumns(columns)
	resolved := role.Resolve(members, s.session.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket < s.applied {
		slog.Debug("discarding stale board load", "board_id", s.boardID, "ticket", ticket, "applied", s.applied)
		return nil
	}
	s.applied = ticket
	s.loaded = true
	s.board = *board
	s.columns = columns
	s.members = members
	s.role = resolved
	return nil
}

// Replace swaps the column list in one step. The store keeps its own copy.
func (s *Store) Replace(columns []model.Column) {
	cp := model.CloneColumns(columns)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns = cp
}

func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *Store) Board() model.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board
}

// Columns returns a deep copy of the columns in position order.
func (s *Store) Columns() []model.Column {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.CloneColumns(s.columns)
}

func (s *Store) Column(id int64) (model.Column, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := model.IndexOfColumn(s.columns, id); i >= 0 {
		return s.columns[i].Clone(), true
	}
	return model.Column{}, false
}

func (s *Store) Members() []model.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Member, len(s.members))
	copy(out, s.members)
	return out
}

// Member returns the membership with the given id.
func (s *Store) Member(id int64) (model.Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.ID == id {
			return m, true
		}
	}
	return model.Member{}, false
}

// Role is the acting user's role as resolved by the last applied load.
func (s *Store) Role() model.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}
