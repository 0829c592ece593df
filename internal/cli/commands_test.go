package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"cardtrack/internal/config"
	"cardtrack/internal/model"
	"cardtrack/internal/reorder"
	"cardtrack/internal/role"
	"cardtrack/internal/testutil/fakeapi"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv   *fakeapi.Server
	cfg   *config.Config
	board model.Board
	todo  model.Column
	done  model.Column
	card  model.Card
}

func newFixture(t *testing.T, r model.Role) *fixture {
	t.Helper()
	srv := fakeapi.New(t)
	owner, ownerToken := srv.AddUser("Owner", "owner@example.com", "secret1")
	b := srv.AddBoard(owner.ID, "Product")
	f := &fixture{srv: srv, board: b}
	f.todo = srv.AddColumn(b.ID, "Todo")
	f.done = srv.AddColumn(b.ID, "Done")
	f.card = srv.AddCard(f.todo.ID, "Draft notes")

	token := ownerToken
	if r != model.RoleOwner {
		u, tok := srv.AddUser("Actor", "actor@example.com", "secret1")
		srv.AddMember(b.ID, u.ID, r)
		token = tok
	}
	f.cfg = &config.Config{
		APIURL:        srv.APIURL(),
		WSURL:         srv.WSURL(),
		Token:         token,
		Timeout:       5 * time.Second,
		ReconnectBase: 10 * time.Millisecond,
		ReconnectMax:  50 * time.Millisecond,
		LogLevel:      "error",
	}
	return f
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand(cfg)
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestLoginPrintsToken(t *testing.T) {
	f := newFixture(t, model.RoleOwner)
	f.cfg.Token = ""

	out, err := run(t, f.cfg, "login", "-e", "owner@example.com", "-p", "secret1")

	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Owner <owner@example.com>")
	assert.Contains(t, out, "export CARDTRACK_TOKEN=token-")
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture(t, model.RoleOwner)

	_, err := run(t, f.cfg, "login", "-e", "owner@example.com", "-p", "wrong")

	require.Error(t, err)
	assert.Equal(t, "login: Invalid credentials", err.Error())
}

func TestWhoamiWithoutToken(t *testing.T) {
	f := newFixture(t, model.RoleOwner)
	f.cfg.Token = ""

	_, err := run(t, f.cfg, "whoami")

	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBoardsCreateAndList(t *testing.T) {
	// Arrange
	f := newFixture(t, model.RoleOwner)

	// Act
	out, err := run(t, f.cfg, "--format", "json", "boards", "create", "Launch", "-c", "Backlog", "-c", "Shipped")

	// Assert
	require.NoError(t, err)
	var created createdBoard
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.Len(t, created.Columns, 2)
	assert.Equal(t, "Backlog", created.Columns[0].Title)
	assert.Equal(t, "Shipped", created.Columns[1].Title)

	out, err = run(t, f.cfg, "boards", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Product")
	assert.Contains(t, out, "Launch")
}

func TestBoardShowYAML(t *testing.T) {
	f := newFixture(t, model.RoleEditor)

	out, err := run(t, f.cfg, "--format", "yaml", "board", "show", itoa(f.board.ID))

	require.NoError(t, err)
	assert.Contains(t, out, "role: editor")
	assert.Contains(t, out, "title: Draft notes")
	assert.Contains(t, out, "user_email: actor@example.com")
}

func TestBoardShowChecklistProgress(t *testing.T) {
	// Arrange
	f := newFixture(t, model.RoleEditor)
	_, err := run(t, f.cfg, "card", "edit", itoa(f.board.ID), itoa(f.card.ID), "-d", "- [x] draft\n- [ ] review")
	require.NoError(t, err)

	// Act
	out, err := run(t, f.cfg, "board", "show", itoa(f.board.ID))

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "Product (#"+itoa(f.board.ID)+") role: editor")
	assert.Contains(t, out, "0. #"+itoa(f.card.ID)+" Draft notes [medium] [1/2]")
}

func TestCardMoveBeforeAnotherCard(t *testing.T) {
	// Arrange
	f := newFixture(t, model.RoleEditor)
	other := f.srv.AddCard(f.done.ID, "Ship it")

	// Act
	_, err := run(t, f.cfg, "card", "move", itoa(f.board.ID), itoa(f.card.ID), itoa(f.done.ID), "--before", itoa(other.ID))

	// Assert
	require.NoError(t, err)
	cols := f.srv.Columns(f.board.ID)
	require.Len(t, cols[1].Cards, 2)
	assert.Equal(t, f.card.ID, cols[1].Cards[0].ID)
	assert.Equal(t, other.ID, cols[1].Cards[1].ID)
	assert.True(t, reorder.Dense(reorder.CardPositions(cols[1].Cards)))
}

func TestColumnDeleteRelocatesCards(t *testing.T) {
	f := newFixture(t, model.RoleOwner)

	_, err := run(t, f.cfg, "column", "delete", itoa(f.board.ID), itoa(f.todo.ID))

	require.NoError(t, err)
	cols := f.srv.Columns(f.board.ID)
	require.Len(t, cols, 1)
	require.Len(t, cols[0].Cards, 1)
	assert.Equal(t, f.card.ID, cols[0].Cards[0].ID)
}

func TestViewerCannotMove(t *testing.T) {
	// Arrange
	f := newFixture(t, model.RoleViewer)

	// Act
	_, err := run(t, f.cfg, "card", "move", itoa(f.board.ID), itoa(f.card.ID), itoa(f.done.ID))

	// Assert
	assert.ErrorIs(t, err, role.ErrPermissionDenied)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Empty(t, f.srv.Mutations())
}

func TestCardAddValidation(t *testing.T) {
	f := newFixture(t, model.RoleEditor)

	_, err := run(t, f.cfg, "card", "add", itoa(f.board.ID), itoa(f.todo.ID), "Release", "--due", "tomorrow")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "due_date must be a date formatted as YYYY-MM-DD")
	assert.Empty(t, f.srv.Mutations())
}

func TestServerErrorIsReported(t *testing.T) {
	f := newFixture(t, model.RoleEditor)
	f.srv.FailNext(http.MethodPatch, "/api/boards/:id/columns/:cid/", http.StatusBadRequest, gin.H{"detail": "Column is locked"})

	_, err := run(t, f.cfg, "column", "edit", itoa(f.board.ID), itoa(f.todo.ID), "--title", "Doing")

	require.Error(t, err)
	assert.Equal(t, "update column: Column is locked", err.Error())
}

func TestMemberInviteAndList(t *testing.T) {
	f := newFixture(t, model.RoleOwner)
	f.srv.AddUser("Bob", "bob@example.com", "secret1")

	_, err := run(t, f.cfg, "member", "invite", itoa(f.board.ID), "bob@example.com", "--role", "editor")
	require.NoError(t, err)

	out, err := run(t, f.cfg, "member", "list", itoa(f.board.ID))
	require.NoError(t, err)
	assert.Contains(t, out, "editor\tBob\tbob@example.com")
}

func TestMemberRoleRejectsUnknownRole(t *testing.T) {
	f := newFixture(t, model.RoleOwner)

	_, err := run(t, f.cfg, "member", "role", itoa(f.board.ID), "1", "admin")

	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestWatchReportsBoardChanges(t *testing.T) {
	// Arrange
	f := newFixture(t, model.RoleEditor)
	out := &syncBuffer{}
	cmd := NewRootCommand(f.cfg)
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"watch", itoa(f.board.ID)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()
	require.Eventually(t, func() bool { return f.srv.Connections(f.board.ID) == 1 }, 3*time.Second, 5*time.Millisecond)

	// Act
	f.srv.AddCard(f.done.ID, "From a teammate")
	f.srv.Broadcast(f.board.ID, "card_created", map[string]any{"id": 99})

	// Assert
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "board: 2 columns, 2 cards")
	}, 3*time.Second, 5*time.Millisecond)
	assert.Contains(t, out.String(), "board: 2 columns, 1 cards")
	assert.Contains(t, out.String(), "* connected")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestProfileEdit(t *testing.T) {
	// Arrange
	f := newFixture(t, model.RoleOwner)
	picture := filepath.Join(t.TempDir(), "owner.png")
	require.NoError(t, os.WriteFile(picture, []byte("\x89PNG"), 0o600))

	// Act
	out, err := run(t, f.cfg, "--format", "json", "profile", "edit",
		"--name", "Olga Owner", "--about", "Runs the product board.", "--picture", picture)

	// Assert
	require.NoError(t, err)
	var user model.User
	require.NoError(t, json.Unmarshal([]byte(out), &user))
	assert.Equal(t, "Olga Owner", user.Name)
	assert.Equal(t, "Runs the product board.", user.AboutMe)
	assert.Equal(t, "/media/profilepic/owner.png", user.ProfilePicture)

	out, err = run(t, f.cfg, "profile", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Olga Owner <owner@example.com>")
	assert.Contains(t, out, "Runs the product board.")
}

func TestProfileEditValidation(t *testing.T) {
	f := newFixture(t, model.RoleOwner)

	_, noFlagsErr := run(t, f.cfg, "profile", "edit")
	_, shortErr := run(t, f.cfg, "profile", "edit", "--name", "O")

	assert.Equal(t, ExitCommandError, GetExitCode(noFlagsErr))
	require.Error(t, shortErr)
	assert.Equal(t, "update profile: name must be at least 2 characters", shortErr.Error())
	assert.Empty(t, f.srv.Mutations())
}
