package reorder_test

import (
	"context"
	"net/http"
	"testing"

	"cardtrack/internal/api"
	"cardtrack/internal/board"
	"cardtrack/internal/model"
	"cardtrack/internal/reorder"
	"cardtrack/internal/testutil/fakeapi"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cardRoute = "/api/boards/:id/columns/:cid/cards/:card/"

type fixture struct {
	srv     *fakeapi.Server
	store   *board.Store
	rec     *reorder.Reconciler
	boardID int64
	cols    []model.Column
}

// setup creates a board with one column per entry of cardCounts, acting
// as a member with the given role.
func setup(t *testing.T, r model.Role, cardCounts ...int) *fixture {
	t.Helper()
	srv := fakeapi.New(t)
	owner, ownerToken := srv.AddUser("Owner", "owner@example.com", "secret1")
	b := srv.AddBoard(owner.ID, "Sprint")

	token := ownerToken
	email := owner.Email
	if r != model.RoleOwner {
		u, tok := srv.AddUser("Actor", "actor@example.com", "secret1")
		srv.AddMember(b.ID, u.ID, r)
		token, email = tok, u.Email
	}
	for i, n := range cardCounts {
		col := srv.AddColumn(b.ID, string(rune('A'+i)))
		for j := 0; j < n; j++ {
			srv.AddCard(col.ID, col.Title+string(rune('1'+j)))
		}
	}

	client := api.NewClient(srv.APIURL(), api.WithToken(token))
	store := board.NewStore(client, model.Session{Token: token, Email: email}, b.ID)
	require.NoError(t, store.Load(context.Background()))
	srv.ResetRequests()

	return &fixture{
		srv:     srv,
		store:   store,
		rec:     reorder.NewReconciler(client, store),
		boardID: b.ID,
		cols:    store.Columns(),
	}
}

func titles(cards []model.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Title
	}
	return out
}

func countGets(reqs []fakeapi.Request, route string) int {
	n := 0
	for _, r := range reqs {
		if r.Method == http.MethodGet && r.Path == route {
			n++
		}
	}
	return n
}

func assertServerDense(t *testing.T, f *fixture) {
	t.Helper()
	cols := f.srv.Columns(f.boardID)
	assert.True(t, reorder.Dense(reorder.ColumnPositions(cols)), "column positions")
	for _, c := range cols {
		assert.True(t, reorder.Dense(reorder.CardPositions(c.Cards)), "card positions of %s", c.Title)
	}
}

func TestReconciler_ReorderColumnsPersistsAndReloads(t *testing.T) {
	// Arrange
	f := setup(t, model.RoleEditor, 0, 0, 0)

	// Act
	err := f.rec.ReorderColumns(context.Background(), f.cols[0].ID, f.cols[2].ID)

	// Assert
	require.NoError(t, err)
	server := f.srv.Columns(f.boardID)
	assert.Equal(t, []string{"B", "C", "A"}, []string{server[0].Title, server[1].Title, server[2].Title})
	assert.Equal(t, server, f.store.Columns())
	assert.Len(t, f.srv.Mutations(), 3)
	assert.Equal(t, 1, countGets(f.srv.Requests(), "/api/boards/:id/columns/"))
	assertServerDense(t, f)
}

func TestReconciler_MoveCardAcrossColumns(t *testing.T) {
	// Arrange
	f := setup(t, model.RoleEditor, 3, 2)
	a, b := f.cols[0], f.cols[1]
	moving := a.Cards[1]

	// Act
	err := f.rec.MoveCard(context.Background(), a.ID, moving.ID, b.ID, reorder.DropOnCard(b.Cards[0].ID))

	// Assert
	require.NoError(t, err)
	server := f.srv.Columns(f.boardID)
	assert.Equal(t, []string{"A1", "A3"}, titles(server[0].Cards))
	assert.Equal(t, []string{"A2", "B1", "B2"}, titles(server[1].Cards))
	assertServerDense(t, f)

	mutations := f.srv.Mutations()
	require.NotEmpty(t, mutations)
	first := mutations[0]
	assert.Equal(t, http.MethodPatch, first.Method)
	assert.Equal(t, cardRoute, first.Path)
	assert.EqualValues(t, b.ID, first.Body["column"])
	assert.EqualValues(t, 0, first.Body["position"])
	for _, m := range mutations[1:] {
		assert.NotContains(t, m.Body, "column", "siblings only change position")
	}
	assert.Equal(t, server, f.store.Columns())
}

func TestReconciler_MoveCardWithinColumn(t *testing.T) {
	f := setup(t, model.RoleOwner, 4)
	col := f.cols[0]

	err := f.rec.MoveCard(context.Background(), col.ID, col.Cards[0].ID, col.ID, reorder.DropOnCard(col.Cards[2].ID))

	require.NoError(t, err)
	assert.Equal(t, []string{"A2", "A1", "A3", "A4"}, titles(f.srv.Columns(f.boardID)[0].Cards))
	assertServerDense(t, f)
}

func TestReconciler_MovedCardFailureStopsAndReloads(t *testing.T) {
	// Arrange
	f := setup(t, model.RoleEditor, 2, 1)
	a, b := f.cols[0], f.cols[1]
	f.srv.FailNext(http.MethodPatch, cardRoute, http.StatusBadRequest, gin.H{"detail": "Card is locked"})

	// Act
	err := f.rec.MoveCard(context.Background(), a.ID, a.Cards[0].ID, b.ID, reorder.DropAtEnd())

	// Assert
	var me *api.MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "Card is locked", me.Message)
	assert.Len(t, f.srv.Mutations(), 1, "siblings are not touched after the moved card fails")
	assert.Equal(t, f.cols, f.store.Columns(), "optimistic state is discarded")
}

func TestReconciler_SiblingFailureStillReloads(t *testing.T) {
	// Arrange: the moved card persists, then one sibling update fails.
	f := setup(t, model.RoleEditor, 3)
	col := f.cols[0]
	f.srv.FailNth(http.MethodPatch, cardRoute, 2, http.StatusBadRequest, gin.H{"position": []string{"Invalid."}})

	// Act
	err := f.rec.MoveCard(context.Background(), col.ID, col.Cards[2].ID, col.ID, reorder.DropOnCard(col.Cards[0].ID))

	// Assert
	var me *api.MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "position: Invalid.", me.Message)
	assert.Len(t, f.srv.Mutations(), 3, "the whole sibling batch is awaited")
	assert.Equal(t, f.srv.Columns(f.boardID), f.store.Columns(), "store mirrors the server, not the optimistic guess")
}

func TestReconciler_DeleteColumnRelocatesToPredecessor(t *testing.T) {
	// Arrange
	f := setup(t, model.RoleEditor, 1, 2, 0)

	// Act
	err := f.rec.DeleteColumn(context.Background(), f.cols[1].ID)

	// Assert
	require.NoError(t, err)
	server := f.srv.Columns(f.boardID)
	require.Len(t, server, 2)
	assert.Equal(t, "A", server[0].Title)
	assert.Equal(t, "C", server[1].Title)
	assert.Equal(t, []string{"A1", "B1", "B2"}, titles(server[0].Cards))
	assertServerDense(t, f)
	assert.Equal(t, -1, model.IndexOfColumn(f.store.Columns(), f.cols[1].ID))

	mutations := f.srv.Mutations()
	require.Len(t, mutations, 4)
	assert.Equal(t, http.MethodPatch, mutations[0].Method)
	assert.Equal(t, http.MethodPatch, mutations[1].Method)
	assert.Equal(t, http.MethodDelete, mutations[2].Method)
	assert.Equal(t, "/api/boards/:id/columns/:cid/", mutations[3].Path)
}

func TestReconciler_DeleteColumnRelocationFailureKeepsColumn(t *testing.T) {
	f := setup(t, model.RoleEditor, 0, 1)
	f.srv.FailNext(http.MethodPatch, cardRoute, http.StatusInternalServerError, gin.H{"error": "db down"})

	err := f.rec.DeleteColumn(context.Background(), f.cols[1].ID)

	var me *api.MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "db down", me.Message)
	assert.Len(t, f.srv.Columns(f.boardID), 2, "no delete after a failed relocation")
	assert.Len(t, f.store.Columns(), 2)
}

func TestReconciler_DeleteOnlyColumnWithCardsIsRefused(t *testing.T) {
	f := setup(t, model.RoleOwner, 2)

	err := f.rec.DeleteColumn(context.Background(), f.cols[0].ID)

	var me *api.MutationError
	require.ErrorAs(t, err, &me)
	assert.ErrorIs(t, err, reorder.ErrNoRelocationTarget)
	assert.Empty(t, f.srv.Mutations())
	// доска всё равно перечитывается с сервера
	reloaded := false
	for _, req := range f.srv.Requests() {
		if req.Method == http.MethodGet && req.Path == "/api/boards/:id/columns/" {
			reloaded = true
		}
	}
	assert.True(t, reloaded, "board reloaded after the refused delete")
	assert.Len(t, f.store.Columns(), 1)
}

func TestReconciler_DeleteCardRenumbersSiblings(t *testing.T) {
	f := setup(t, model.RoleEditor, 4)
	col := f.cols[0]

	err := f.rec.DeleteCard(context.Background(), col.ID, col.Cards[1].ID)

	require.NoError(t, err)
	server := f.srv.Columns(f.boardID)[0]
	assert.Equal(t, []string{"A1", "A3", "A4"}, titles(server.Cards))
	assertServerDense(t, f)
	assert.Len(t, f.srv.Mutations(), 3, "one delete and two renumbered siblings")
}

func TestReconciler_ViewerDragsAreIgnored(t *testing.T) {
	// Arrange
	f := setup(t, model.RoleViewer, 2, 1)
	a, b := f.cols[0], f.cols[1]
	ctx := context.Background()

	// Act
	errs := []error{
		f.rec.ReorderColumns(ctx, a.ID, b.ID),
		f.rec.MoveCard(ctx, a.ID, a.Cards[0].ID, b.ID, reorder.DropAtEnd()),
		f.rec.DeleteColumn(ctx, a.ID),
		f.rec.DeleteCard(ctx, a.ID, a.Cards[0].ID),
	}

	// Assert
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Empty(t, f.srv.Requests(), "no request of any kind is sent")
	assert.Equal(t, f.cols, f.store.Columns())
}
