package reorder

import (
	"context"
	"log/slog"

	"cardtrack/internal/api"
	"cardtrack/internal/model"
	"cardtrack/internal/role"
)

// Remote is the subset of the API used to persist ordering changes.
// *api.Client satisfies it.
type Remote interface {
	UpdateColumnPosition(ctx context.Context, boardID, columnID int64, position int) error
	MoveCard(ctx context.Context, boardID, fromColumnID, cardID, toColumnID int64, position int) error
	UpdateCardPosition(ctx context.Context, boardID, columnID, cardID int64, position int) error
	DeleteColumn(ctx context.Context, boardID, columnID int64) error
	DeleteCard(ctx context.Context, boardID, columnID, cardID int64) error
}

// State is the board store as seen by the reconciler. *board.Store
// satisfies it.
type State interface {
	LocalState
	BoardID() int64
	Role() model.Role
	Columns() []model.Column
}

type Reconciler struct {
	remote Remote
	state  State
}

func NewReconciler(remote Remote, state State) *Reconciler {
	return &Reconciler{remote: remote, state: state}
}

// allowed reports whether the acting role may reorder. Drags by users
// who may not mutate are dropped without a request.
func (r *Reconciler) allowed(op string) bool {
	if role.CanMutate(r.state.Role()) {
		return true
	}
	slog.Debug("ignoring drag for read-only role", "op", op, "role", r.state.Role())
	return false
}

func (r *Reconciler) pipeline(op string) Optimistic {
	return Optimistic{Op: op, State: r.state}
}

// ReorderColumns drops the source column onto the target column.
func (r *Reconciler) ReorderColumns(ctx context.Context, sourceID, targetID int64) error {
	const op = "reorder columns"
	if !r.allowed(op) {
		return nil
	}
	next, ok := MoveColumn(r.state.Columns(), sourceID, targetID)
	if !ok {
		return nil
	}

	boardID := r.state.BoardID()
	batch := make(Batch, 0, len(next))
	for _, col := range next {
		col := col
		batch = append(batch, func(ctx context.Context) error {
			return r.remote.UpdateColumnPosition(ctx, boardID, col.ID, col.Position)
		})
	}
	return r.pipeline(op).Run(ctx, next, batch)
}

// MoveCard drops a card into a column. The moved card's column and
// position are persisted and awaited before any sibling is renumbered.
func (r *Reconciler) MoveCard(ctx context.Context, sourceColumnID, cardID, targetColumnID int64, drop Drop) error {
	const op = "move card"
	if !r.allowed(op) {
		return nil
	}
	move, ok := MoveCard(r.state.Columns(), sourceColumnID, cardID, targetColumnID, drop)
	if !ok {
		return nil
	}

	boardID := r.state.BoardID()
	card := move.Card
	moved := Batch{func(ctx context.Context) error {
		if move.SameColumn {
			return r.remote.UpdateCardPosition(ctx, boardID, card.ColumnID, card.ID, card.Position)
		}
		return r.remote.MoveCard(ctx, boardID, sourceColumnID, card.ID, card.ColumnID, card.Position)
	}}

	return r.pipeline(op).Run(ctx, move.Columns,
		moved,
		r.cardPositions(boardID, sourceColumnID, move.Source),
		r.cardPositions(boardID, targetColumnID, move.Target),
	)
}

// DeleteColumn moves the column's cards to an adjacent column, deletes it
// and renumbers the columns left behind.
func (r *Reconciler) DeleteColumn(ctx context.Context, columnID int64) error {
	const op = "delete column"
	if !r.allowed(op) {
		return nil
	}
	plan, err := PlanColumnDelete(r.state.Columns(), columnID)
	if err != nil {
		return r.pipeline(op).Abort(ctx, &api.MutationError{Op: op, Message: planMessage(err), Err: err})
	}

	boardID := r.state.BoardID()
	relocate := make(Batch, 0, len(plan.Relocated))
	for _, card := range plan.Relocated {
		card := card
		relocate = append(relocate, func(ctx context.Context) error {
			return r.remote.MoveCard(ctx, boardID, columnID, card.ID, card.ColumnID, card.Position)
		})
	}
	remove := Batch{func(ctx context.Context) error {
		return r.remote.DeleteColumn(ctx, boardID, columnID)
	}}
	renumber := make(Batch, 0, len(plan.Renumbered))
	for _, col := range plan.Renumbered {
		col := col
		renumber = append(renumber, func(ctx context.Context) error {
			return r.remote.UpdateColumnPosition(ctx, boardID, col.ID, col.Position)
		})
	}
	return r.pipeline(op).Run(ctx, plan.Columns, relocate, remove, renumber)
}

// DeleteCard deletes a card and closes the gap it leaves in its column.
func (r *Reconciler) DeleteCard(ctx context.Context, columnID, cardID int64) error {
	const op = "delete card"
	if !r.allowed(op) {
		return nil
	}
	next, changed, err := RemoveCard(r.state.Columns(), columnID, cardID)
	if err != nil {
		return &api.MutationError{Op: op, Message: planMessage(err), Err: err}
	}

	boardID := r.state.BoardID()
	remove := Batch{func(ctx context.Context) error {
		return r.remote.DeleteCard(ctx, boardID, columnID, cardID)
	}}
	return r.pipeline(op).Run(ctx, next, remove, r.cardPositions(boardID, columnID, changed))
}

func (r *Reconciler) cardPositions(boardID, columnID int64, cards []model.Card) Batch {
	batch := make(Batch, 0, len(cards))
	for _, card := range cards {
		card := card
		batch = append(batch, func(ctx context.Context) error {
			return r.remote.UpdateCardPosition(ctx, boardID, columnID, card.ID, card.Position)
		})
	}
	return batch
}

func planMessage(err error) string {
	switch err {
	case ErrNoRelocationTarget:
		return "cannot delete the only column while it still has cards"
	case ErrColumnNotFound:
		return "column not found"
	case ErrCardNotFound:
		return "card not found"
	}
	return api.MessageRequestFailed
}
