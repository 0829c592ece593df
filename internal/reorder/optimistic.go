package reorder

import (
	"context"
	"errors"
	"log/slog"

	"cardtrack/internal/api"
	"cardtrack/internal/model"

	"golang.org/x/sync/errgroup"
)

// Request is one remote call of a persistence batch.
type Request func(ctx context.Context) error

// Batch is a set of independent requests issued concurrently.
type Batch []Request

// LocalState is the part of the board store the pipeline writes to.
type LocalState interface {
	Replace(columns []model.Column)
	Load(ctx context.Context) error
}

// Optimistic runs a mutation in three phases: the new column list is
// applied locally, the batches are persisted one after another, and the
// board is always reloaded from the server afterwards.
type Optimistic struct {
	Op    string
	State LocalState
}

// Run applies next (when non-nil), persists batches and reconciles. A
// persistence failure is returned as *api.MutationError after the reload.
func (o Optimistic) Run(ctx context.Context, next []model.Column, batches ...Batch) error {
	if next != nil {
		o.applyLocally(next)
	}
	persistErr := o.persist(ctx, batches...)
	reloadErr := o.reconcile(ctx)

	if persistErr != nil {
		slog.Info("persisting change failed, board reloaded from server",
			"op", o.Op,
			"error", persistErr)
		mutationErr := api.Normalize(o.Op, persistErr)
		if reloadErr != nil {
			return errors.Join(mutationErr, reloadErr)
		}
		return mutationErr
	}
	return reloadErr
}

// Abort reloads the board after a change that was refused before any
// request was sent, and returns err.
func (o Optimistic) Abort(ctx context.Context, err error) error {
	if reloadErr := o.reconcile(ctx); reloadErr != nil {
		return errors.Join(err, reloadErr)
	}
	return err
}

func (o Optimistic) applyLocally(next []model.Column) {
	o.State.Replace(next)
}

// persist issues the batches in order. Requests inside a batch run
// concurrently and are all awaited; a failing batch stops the sequence.
func (o Optimistic) persist(ctx context.Context, batches ...Batch) error {
	for _, batch := range batches {
		if len(batch) == 0 {
			continue
		}
		var g errgroup.Group
		for _, req := range batch {
			req := req
			g.Go(func() error { return req(ctx) })
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func (o Optimistic) reconcile(ctx context.Context) error {
	if err := o.State.Load(ctx); err != nil {
		slog.Warn("reload after change failed", "op", o.Op, "error", err)
		return err
	}
	return nil
}
