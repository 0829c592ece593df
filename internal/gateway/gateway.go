// Package gateway turns local mutation intents into API calls. Every call
// is checked against the acting role before anything is sent, and every
// failure comes back as *api.MutationError. The gateway never reloads the
// board; callers reconcile afterwards.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cardtrack/internal/api"
	"cardtrack/internal/model"
	"cardtrack/internal/role"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

var (
	ErrOwnerCannotLeave = errors.New("the owner cannot leave the board")
	ErrUnpairedCardMove = errors.New("column and position must change together")
	ErrUnknownColumn    = errors.New("column not found")
	ErrUnknownMember    = errors.New("member not found")
	ErrEmptyProfile     = errors.New("nothing to change in the profile")
)

// Remote is the part of the API the gateway calls. *api.Client
// satisfies it.
type Remote interface {
	CreateBoard(ctx context.Context, req api.CreateBoardRequest) (*model.Board, error)
	UpdateBoard(ctx context.Context, boardID int64, patch api.BoardPatch) (*model.Board, error)
	DeleteBoard(ctx context.Context, boardID int64) error

	CreateColumn(ctx context.Context, boardID int64, req api.CreateColumnRequest) (*model.Column, error)
	UpdateColumn(ctx context.Context, boardID, columnID int64, patch api.ColumnPatch) (*model.Column, error)
	DeleteColumn(ctx context.Context, boardID, columnID int64) error

	CreateCard(ctx context.Context, boardID, columnID int64, req api.CreateCardRequest) (*model.Card, error)
	UpdateCard(ctx context.Context, boardID, columnID, cardID int64, patch api.CardPatch) (*model.Card, error)
	DeleteCard(ctx context.Context, boardID, columnID, cardID int64) error

	InviteMember(ctx context.Context, boardID int64, req api.InviteRequest) (*model.Member, error)
	UpdateMemberRole(ctx context.Context, boardID, memberID int64, r model.Role) (*model.Member, error)
	LeaveBoard(ctx context.Context, boardID int64) error

	UpdateUser(ctx context.Context, id int64, patch api.UserPatch) (*model.User, error)
}

// BoardState is the loaded board the gateway acts on. *board.Store
// satisfies it.
type BoardState interface {
	BoardID() int64
	Role() model.Role
	Columns() []model.Column
	Column(id int64) (model.Column, bool)
	Member(id int64) (model.Member, bool)
}

type Gateway struct {
	remote   Remote
	state    BoardState
	validate *validator.Validate
}

// New creates a gateway for the board held by state. state may be nil
// for a gateway that only creates boards.
func New(remote Remote, state BoardState) *Gateway {
	return &Gateway{
		remote:   remote,
		state:    state,
		validate: newValidator(),
	}
}

func (g *Gateway) actor() model.Role {
	if g.state == nil {
		return model.RoleUnknown
	}
	return g.state.Role()
}

func (g *Gateway) boardID() int64 {
	if g.state == nil {
		return 0
	}
	return g.state.BoardID()
}

func (g *Gateway) authorize(op string, allowed bool) error {
	if err := role.Check(allowed); err != nil {
		slog.Debug("mutation refused locally", "op", op, "role", g.actor())
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (g *Gateway) check(op string, payload any) error {
	if err := g.validate.Struct(payload); err != nil {
		return &api.MutationError{Op: op, Message: validationMessage(err), Err: err}
	}
	return nil
}

func rejected(op string, err error) error {
	return &api.MutationError{Op: op, Message: err.Error(), Err: err}
}

// CreateColumn appends a column to the board.
func (g *Gateway) CreateColumn(ctx context.Context, title, color string) (*model.Column, error) {
	const op = "create column"
	if err := g.authorize(op, role.CanMutate(g.actor())); err != nil {
		return nil, err
	}
	req := api.CreateColumnRequest{
		Title:    strings.TrimSpace(title),
		Color:    strings.TrimSpace(color),
		Position: len(g.state.Columns()),
	}
	if err := g.check(op, req); err != nil {
		return nil, err
	}
	col, err := g.remote.CreateColumn(ctx, g.boardID(), req)
	return col, api.Normalize(op, err)
}

func (g *Gateway) UpdateColumn(ctx context.Context, columnID int64, patch api.ColumnPatch) (*model.Column, error) {
	const op = "update column"
	if err := g.authorize(op, role.CanMutate(g.actor())); err != nil {
		return nil, err
	}
	if err := g.check(op, patch); err != nil {
		return nil, err
	}
	col, err := g.remote.UpdateColumn(ctx, g.boardID(), columnID, patch)
	return col, api.Normalize(op, err)
}

// DeleteColumn deletes a column as is. Relocating its cards first is the
// reconciler's job.
func (g *Gateway) DeleteColumn(ctx context.Context, columnID int64) error {
	const op = "delete column"
	if err := g.authorize(op, role.CanMutate(g.actor())); err != nil {
		return err
	}
	return api.Normalize(op, g.remote.DeleteColumn(ctx, g.boardID(), columnID))
}

// CreateCard appends a card to a column.
func (g *Gateway) CreateCard(ctx context.Context, columnID int64, input api.CreateCardRequest) (*model.Card, error) {
	const op = "create card"
	if err := g.authorize(op, role.CanMutate(g.actor())); err != nil {
		return nil, err
	}
	col, ok := g.state.Column(columnID)
	if !ok {
		return nil, rejected(op, ErrUnknownColumn)
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Position = len(col.Cards)
	if input.Priority == "" {
		input.Priority = model.PriorityMedium
	}
	if err := g.check(op, input); err != nil {
		return nil, err
	}
	card, err := g.remote.CreateCard(ctx, g.boardID(), columnID, input)
	return card, api.Normalize(op, err)
}

// UpdateCard patches a card through the column it currently belongs to.
// A patch that moves the card must carry its new position as well.
func (g *Gateway) UpdateCard(ctx context.Context, columnID, cardID int64, patch api.CardPatch) (*model.Card, error) {
	const op = "update card"
	if err := g.authorize(op, role.CanMutate(g.actor())); err != nil {
		return nil, err
	}
	if patch.ColumnID != nil && patch.Position == nil {
		return nil, rejected(op, ErrUnpairedCardMove)
	}
	if err := g.check(op, patch); err != nil {
		return nil, err
	}
	card, err := g.remote.UpdateCard(ctx, g.boardID(), columnID, cardID, patch)
	return card, api.Normalize(op, err)
}

func (g *Gateway) DeleteCard(ctx context.Context, columnID, cardID int64) error {
	const op = "delete card"
	if err := g.authorize(op, role.CanMutate(g.actor())); err != nil {
		return err
	}
	return api.Normalize(op, g.remote.DeleteCard(ctx, g.boardID(), columnID, cardID))
}

func (g *Gateway) UpdateBoard(ctx context.Context, patch api.BoardPatch) (*model.Board, error) {
	const op = "update board"
	if err := g.authorize(op, role.CanMutate(g.actor())); err != nil {
		return nil, err
	}
	if err := g.check(op, patch); err != nil {
		return nil, err
	}
	b, err := g.remote.UpdateBoard(ctx, g.boardID(), patch)
	return b, api.Normalize(op, err)
}

// DeleteBoard deletes the whole board. Only its owner may.
func (g *Gateway) DeleteBoard(ctx context.Context) error {
	const op = "delete board"
	if err := g.authorize(op, role.CanDeleteBoard(g.actor())); err != nil {
		return err
	}
	return api.Normalize(op, g.remote.DeleteBoard(ctx, g.boardID()))
}

// InviteMember invites a user by email. An empty role invites a viewer.
func (g *Gateway) InviteMember(ctx context.Context, email string, r model.Role) (*model.Member, error) {
	const op = "invite member"
	if r == model.RoleUnknown {
		r = model.RoleViewer
	}
	if err := g.authorize(op, role.CanInvite(g.actor(), r)); err != nil {
		return nil, err
	}
	req := api.InviteRequest{Email: strings.TrimSpace(email), Role: r}
	if err := g.check(op, req); err != nil {
		return nil, err
	}
	m, err := g.remote.InviteMember(ctx, g.boardID(), req)
	return m, api.Normalize(op, err)
}

// UpdateMemberRole changes a member's role, subject to the role-update
// rules against the member's current role.
func (g *Gateway) UpdateMemberRole(ctx context.Context, memberID int64, next model.Role) (*model.Member, error) {
	const op = "update member role"
	if err := g.authorize(op, role.CanMutate(g.actor())); err != nil {
		return nil, err
	}
	current, ok := g.state.Member(memberID)
	if !ok {
		return nil, rejected(op, ErrUnknownMember)
	}
	if err := g.authorize(op, role.CanAssign(g.actor(), current.Role, next)); err != nil {
		return nil, err
	}
	m, err := g.remote.UpdateMemberRole(ctx, g.boardID(), memberID, next)
	return m, api.Normalize(op, err)
}

// LeaveBoard removes the acting user from the board.
func (g *Gateway) LeaveBoard(ctx context.Context) error {
	const op = "leave board"
	if err := g.authorize(op, role.CanMutate(g.actor())); err != nil {
		return err
	}
	if g.actor() == model.RoleOwner {
		return rejected(op, ErrOwnerCannotLeave)
	}
	return api.Normalize(op, g.remote.LeaveBoard(ctx, g.boardID()))
}

// CreateBoard creates a board, then its initial columns concurrently. The
// columns are returned in position order.
func (g *Gateway) CreateBoard(ctx context.Context, title, description string, columns ...string) (*model.Board, []model.Column, error) {
	const op = "create board"
	req := api.CreateBoardRequest{Title: strings.TrimSpace(title), Description: strings.TrimSpace(description)}
	if err := g.check(op, req); err != nil {
		return nil, nil, err
	}
	colReqs := make([]api.CreateColumnRequest, 0, len(columns))
	for _, name := range columns {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		colReq := api.CreateColumnRequest{Title: name, Position: len(colReqs)}
		if err := g.check(op, colReq); err != nil {
			return nil, nil, err
		}
		colReqs = append(colReqs, colReq)
	}

	b, err := g.remote.CreateBoard(ctx, req)
	if err != nil {
		return nil, nil, api.Normalize(op, err)
	}

	created := make([]model.Column, len(colReqs))
	var eg errgroup.Group
	for i, colReq := range colReqs {
		i, colReq := i, colReq
		eg.Go(func() error {
			col, err := g.remote.CreateColumn(ctx, b.ID, colReq)
			if err != nil {
				return err
			}
			created[i] = *col
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return b, nil, api.Normalize(op, err)
	}
	model.SortColumns(created)
	return b, created, nil
}

// UpdateProfile edits the acting user's name or about text. It is not
// tied to a board and needs no board role.
func (g *Gateway) UpdateProfile(ctx context.Context, userID int64, patch api.UserPatch) (*model.User, error) {
	const op = "update profile"
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if patch.Name == nil && patch.AboutMe == nil {
		return nil, rejected(op, ErrEmptyProfile)
	}
	if err := g.check(op, patch); err != nil {
		return nil, err
	}
	u, err := g.remote.UpdateUser(ctx, userID, patch)
	return u, api.Normalize(op, err)
}
