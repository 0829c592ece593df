package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cardtrack/internal/api"
	"cardtrack/internal/model"
	"cardtrack/internal/testutil/fakeapi"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupClient(t *testing.T) (*fakeapi.Server, *api.Client, model.User) {
	t.Helper()
	srv := fakeapi.New(t)
	user, token := srv.AddUser("Ann", "ann@example.com", "secret1")
	return srv, api.NewClient(srv.APIURL(), api.WithToken(token)), user
}

func TestClient_LoginReturnsToken(t *testing.T) {
	// Arrange
	srv := fakeapi.New(t)
	user, token := srv.AddUser("Ann", "ann@example.com", "secret1")
	client := api.NewClient(srv.APIURL())

	// Act
	resp, err := client.Login(context.Background(), api.LoginRequest{Email: "ann@example.com", Password: "secret1"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, token, resp.Token)
	assert.Equal(t, user.ID, resp.UserID)
	assert.Equal(t, "ann@example.com", resp.Email)
}

func TestClient_LoginInvalidCredentials(t *testing.T) {
	// Arrange
	srv := fakeapi.New(t)
	srv.AddUser("Ann", "ann@example.com", "secret1")
	client := api.NewClient(srv.APIURL())

	// Act
	_, err := client.Login(context.Background(), api.LoginRequest{Email: "ann@example.com", Password: "wrong"})

	// Assert
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
}

func TestClient_RegisterDuplicateEmailUsesFieldError(t *testing.T) {
	// Arrange
	srv := fakeapi.New(t)
	srv.AddUser("Ann", "ann@example.com", "secret1")
	client := api.NewClient(srv.APIURL())

	// Act
	_, err := client.Register(context.Background(), api.RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "secret1"})

	// Assert
	assert.Equal(t, "email: user with this email already exists.", api.UserMessage(err))
}

func TestClient_MeRequiresToken(t *testing.T) {
	// Arrange
	srv, client, user := setupClient(t)
	anonymous := api.NewClient(srv.APIURL())

	// Act
	me, err := client.Me(context.Background())
	_, anonErr := anonymous.Me(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)
	assert.Equal(t, "Authentication credentials were not provided.", api.UserMessage(anonErr))
}

func TestClient_SendsTokenAndRequestID(t *testing.T) {
	// Arrange
	var auth, requestID string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		requestID = r.Header.Get(api.RequestIDHeader)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()
	client := api.NewClient(ts.URL+"/api/", api.WithToken("abc"))

	// Act
	_, err := client.ListBoards(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Token abc", auth)
	_, parseErr := uuid.Parse(requestID)
	assert.NoError(t, parseErr)
}

func TestClient_ErrorMessageExtraction(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail", `{"detail":"Not found."}`, "Not found."},
		{"error", `{"error":"User not found"}`, "User not found"},
		{"non field errors", `{"non_field_errors":["Bad pair"]}`, "Bad pair"},
		{"first field error", `{"title":["This field is required."],"color":["Bad color."]}`, "color: Bad color."},
		{"unknown shape", `[1,2,3]`, api.MessageRequestFailed},
		{"not json", `<html>oops</html>`, api.MessageRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()
			client := api.NewClient(ts.URL)

			// Act
			_, err := client.GetBoard(context.Background(), 1)

			// Assert
			require.Error(t, err)
			assert.Equal(t, tt.want, api.UserMessage(err))
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	// Arrange
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()
	client := api.NewClient(url)

	// Act
	_, err := client.ListBoards(context.Background())

	// Assert
	assert.ErrorIs(t, err, api.ErrNetwork)
	assert.Equal(t, api.MessageNetworkError, api.UserMessage(err))
}

func TestClient_CancelledContext(t *testing.T) {
	// Arrange
	_, client, _ := setupClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	_, err := client.ListBoards(ctx)

	// Assert
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, api.MessageCancelled, api.UserMessage(err))
}

func TestClient_BoardColumnCardRoundTrip(t *testing.T) {
	// Arrange
	srv, client, _ := setupClient(t)
	ctx := context.Background()

	// Act
	board, err := client.CreateBoard(ctx, api.CreateBoardRequest{Title: "Launch"})
	require.NoError(t, err)
	todo, err := client.CreateColumn(ctx, board.ID, api.CreateColumnRequest{Title: "Todo"})
	require.NoError(t, err)
	done, err := client.CreateColumn(ctx, board.ID, api.CreateColumnRequest{Title: "Done", Color: "#00FF00", Position: 1})
	require.NoError(t, err)
	card, err := client.CreateCard(ctx, board.ID, todo.ID, api.CreateCardRequest{Title: "Write docs"})
	require.NoError(t, err)
	require.NoError(t, client.MoveCard(ctx, board.ID, todo.ID, card.ID, done.ID, 0))
	cols, err := client.GetColumns(ctx, board.ID)

	// Assert
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, model.DefaultColumnColor, cols[0].Color)
	assert.Empty(t, cols[0].Cards)
	require.Len(t, cols[1].Cards, 1)
	assert.Equal(t, card.ID, cols[1].Cards[0].ID)
	assert.Equal(t, done.ID, cols[1].Cards[0].ColumnID)

	moves := srv.Mutations()
	last := moves[len(moves)-1]
	assert.Equal(t, http.MethodPatch, last.Method)
	assert.Equal(t, "/api/boards/:id/columns/:cid/cards/:card/", last.Path)
	assert.EqualValues(t, done.ID, last.Body["column"])
	assert.EqualValues(t, 0, last.Body["position"])
}

func TestClient_GetMembersAugmentsMissingEmails(t *testing.T) {
	// Arrange
	srv, client, owner := setupClient(t)
	bob, _ := srv.AddUser("Bob", "bob@example.com", "secret1")
	board := srv.AddBoard(owner.ID, "Team")
	srv.AddMember(board.ID, bob.ID, model.RoleEditor)
	srv.OmitMemberEmails()

	// Act
	members, err := client.GetMembers(context.Background(), board.ID)

	// Assert
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "ann@example.com", members[0].UserEmail)
	assert.Equal(t, "bob@example.com", members[1].UserEmail)
	assert.Equal(t, "Bob", members[1].UserName)
}

func TestClient_GetMembersIgnoresFailedLookups(t *testing.T) {
	// Arrange
	srv, client, owner := setupClient(t)
	board := srv.AddBoard(owner.ID, "Team")
	srv.OmitMemberEmails()
	srv.FailNext(http.MethodGet, "/api/users/:id/", http.StatusInternalServerError, gin.H{"detail": "boom"})

	// Act
	members, err := client.GetMembers(context.Background(), board.ID)

	// Assert
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Empty(t, members[0].UserEmail)
	assert.Equal(t, owner.ID, members[0].UserID)
}

func TestNormalize(t *testing.T) {
	// Arrange
	cause := &api.Error{Status: http.StatusForbidden, Message: "nope"}

	// Act
	err := api.Normalize("update card", cause)
	again := api.Normalize("other", err)

	// Assert
	var me *api.MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "update card", me.Op)
	assert.Equal(t, "nope", me.Message)
	assert.True(t, errors.Is(err, cause))
	assert.Same(t, me, again)
	assert.NoError(t, api.Normalize("noop", nil))
}

func TestClient_UpdateUser(t *testing.T) {
	// Arrange
	srv, client, user := setupClient(t)
	name, about := "Ann Lee", "Keeps the backlog tidy."

	// Act
	updated, err := client.UpdateUser(context.Background(), user.ID, api.UserPatch{Name: &name, AboutMe: &about})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", updated.Name)
	me, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Keeps the backlog tidy.", me.AboutMe)
	last := srv.Mutations()[0]
	assert.Equal(t, "/api/users/:id/", last.Path)
	assert.Equal(t, map[string]any{"name": "Ann Lee", "aboutme": "Keeps the backlog tidy."}, last.Body)
}

func TestClient_UpdateUserOfSomeoneElseIsForbidden(t *testing.T) {
	srv, client, _ := setupClient(t)
	other, _ := srv.AddUser("Bob", "bob@example.com", "secret1")
	name := "Hacked"

	_, err := client.UpdateUser(context.Background(), other.ID, api.UserPatch{Name: &name})

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "update profile: You do not have permission to perform this action.",
		api.Normalize("update profile", err).Error())
}

func TestClient_UploadProfilePicture(t *testing.T) {
	_, client, user := setupClient(t)

	updated, err := client.UploadProfilePicture(context.Background(), user.ID, "/tmp/avatars/ann.png", strings.NewReader("\x89PNG"))

	require.NoError(t, err)
	assert.Equal(t, "/media/profilepic/ann.png", updated.ProfilePicture)
	assert.Equal(t, "Ann", updated.Name)
}
