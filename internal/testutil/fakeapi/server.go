// Package fakeapi is an in-memory CardTrack API used by tests. It speaks
// the same REST and WebSocket contract as the real backend.
package fakeapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"cardtrack/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const userIDKey = "userID"

// Request is one call recorded by the server.
type Request struct {
	Method string
	Path   string // matched route, e.g. /api/boards/:id/columns/
	URL    string
	Body   map[string]any
}

type failure struct {
	method, route string
	skip          int
	status        int
	body          gin.H
}

type memberRow struct {
	boardID int64
	member  model.Member
}

type Server struct {
	Engine *gin.Engine
	HTTP   *httptest.Server

	mu        sync.Mutex
	nextID    int64
	users     map[int64]*model.User
	passwords map[int64]string
	boards    map[int64]*model.Board
	columns   map[int64]*model.Column
	cards     map[int64]*model.Card
	members   map[int64]*memberRow
	requests  []Request
	failures  []failure
	delay     map[string]time.Duration

	hub *hub

	omitMemberEmails bool
}

// New starts a fake API on a random local port. It is shut down when the
// test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		users:     map[int64]*model.User{},
		passwords: map[int64]string{},
		boards:    map[int64]*model.Board{},
		columns:   map[int64]*model.Column{},
		cards:     map[int64]*model.Card{},
		members:   map[int64]*memberRow{},
		delay:     map[string]time.Duration{},
		hub:       newHub(),
	}
	s.Engine = s.routes()
	s.HTTP = httptest.NewServer(s.Engine)
	t.Cleanup(func() {
		s.hub.closeAll()
		s.HTTP.Close()
	})
	return s
}

// APIURL is the REST root, the value clients use as their base URL.
func (s *Server) APIURL() string { return s.HTTP.URL + "/api" }

// WSURL is the push channel root (ws://host).
func (s *Server) WSURL() string { return "ws" + strings.TrimPrefix(s.HTTP.URL, "http") }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(s.record, s.injectFailures)

	api := r.Group("/api")
	api.POST("/users/login/", s.login)
	api.POST("/users/register/", s.register)

	authorized := api.Group("/")
	authorized.Use(s.tokenAuth)
	{
		authorized.GET("/users/me/", s.me)
		authorized.GET("/users/:id/", s.getUser)
		authorized.PATCH("/users/:id/", s.updateUser)

		authorized.GET("/boards/", s.listBoards)
		authorized.POST("/boards/", s.createBoard)
		authorized.GET("/boards/:id/", s.getBoard)
		authorized.PATCH("/boards/:id/", s.updateBoard)
		authorized.DELETE("/boards/:id/", s.deleteBoard)

		authorized.GET("/boards/:id/columns/", s.listColumns)
		authorized.POST("/boards/:id/columns/", s.createColumn)
		authorized.PATCH("/boards/:id/columns/:cid/", s.updateColumn)
		authorized.DELETE("/boards/:id/columns/:cid/", s.deleteColumn)

		authorized.POST("/boards/:id/columns/:cid/cards/", s.createCard)
		authorized.PATCH("/boards/:id/columns/:cid/cards/:card/", s.updateCard)
		authorized.DELETE("/boards/:id/columns/:cid/cards/:card/", s.deleteCard)

		authorized.GET("/boards/:id/members/", s.listMembers)
		authorized.PATCH("/boards/:id/members/:mid/", s.updateMember)
		authorized.POST("/boards/:id/invite/", s.invite)
		authorized.POST("/boards/:id/leave/", s.leave)
	}

	r.GET("/ws/boards/:id/", s.serveWS)
	return r
}

// OmitMemberEmails makes the members endpoint return bare user ids, like
// older API versions did.
func (s *Server) OmitMemberEmails() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitMemberEmails = true
}

// FailNext makes the next request matching method and route (a gin route
// such as /api/boards/:id/columns/:cid/) fail with status and body.
func (s *Server) FailNext(method, route string, status int, body gin.H) {
	s.FailNth(method, route, 1, status, body)
}

// FailNth lets n-1 matching requests through and fails the n-th one.
func (s *Server) FailNth(method, route string, n int, status int, body gin.H) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, route: route, skip: n - 1, status: status, body: body})
}

// Delay slows every request matching method and route by d.
func (s *Server) Delay(method, route string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay[method+" "+route] = d
}

// Requests returns every recorded request in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Mutations returns recorded requests that are not GETs.
func (s *Server) Mutations() []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method != http.MethodGet {
			out = append(out, r)
		}
	}
	return out
}

// ResetRequests clears the request log.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

func (s *Server) record(c *gin.Context) {
	req := Request{Method: c.Request.Method, Path: c.FullPath(), URL: c.Request.URL.Path}
	if c.Request.Body != nil && c.Request.ContentLength != 0 && c.ContentType() == binding.MIMEJSON {
		var body map[string]any
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err == nil {
			req.Body = body
		}
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	d := s.delay[req.Method+" "+req.Path]
	s.mu.Unlock()
	if d > 0 {
		time.Sleep(d)
	}
	c.Next()
}

func (s *Server) injectFailures(c *gin.Context) {
	s.mu.Lock()
	for i := range s.failures {
		f := &s.failures[i]
		if f.method != c.Request.Method || f.route != c.FullPath() {
			continue
		}
		if f.skip > 0 {
			f.skip--
			continue
		}
		status, body := f.status, f.body
		s.failures = append(s.failures[:i], s.failures[i+1:]...)
		s.mu.Unlock()
		c.AbortWithStatusJSON(status, body)
		return
	}
	s.mu.Unlock()
	c.Next()
}

func (s *Server) tokenAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
		return
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Token" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token header."})
		return
	}
	userID, ok := s.userForToken(parts[1])
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token."})
		return
	}
	c.Set(userIDKey, userID)
	c.Next()
}

func (s *Server) userForToken(token string) (int64, bool) {
	var id int64
	rest, ok := strings.CutPrefix(token, "token-")
	if !ok {
		return 0, false
	}
	idStr, email, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, false
	}
	if _, err := fmt.Sscan(idStr, &id); err != nil {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, found := s.users[id]
	if !found || u.Email != email {
		return 0, false
	}
	return id, true
}

// TokenFor returns the session token the server issues for user.
func TokenFor(user model.User) string {
	return fmt.Sprintf("token-%d-%s", user.ID, user.Email)
}

// Seed helpers. They bypass HTTP and do not record requests.

// AddUser creates a user and returns it with its session token.
func (s *Server) AddUser(name, email, password string) (model.User, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.addUserLocked(name, email, password)
	return *u, TokenFor(*u)
}

func (s *Server) addUserLocked(name, email, password string) *model.User {
	s.nextID++
	now := time.Now().UTC()
	u := &model.User{ID: s.nextID, Name: name, Email: strings.ToLower(email), RegistrationDate: &now}
	s.users[u.ID] = u
	s.passwords[u.ID] = password
	return u
}

// AddBoard creates a board owned by ownerID, with an owner membership.
func (s *Server) AddBoard(ownerID int64, title string) model.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.addBoardLocked(ownerID, title, "")
}

func (s *Server) addBoardLocked(ownerID int64, title, description string) *model.Board {
	s.nextID++
	b := &model.Board{ID: s.nextID, Title: title, Description: description, OwnerID: ownerID, CreatedAt: time.Now().UTC()}
	s.boards[b.ID] = b
	s.addMemberLocked(b.ID, ownerID, model.RoleOwner)
	return b
}

// AddMember grants userID a role on boardID.
func (s *Server) AddMember(boardID, userID int64, r model.Role) model.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addMemberLocked(boardID, userID, r).member
}

func (s *Server) addMemberLocked(boardID, userID int64, r model.Role) *memberRow {
	s.nextID++
	now := time.Now().UTC()
	row := &memberRow{boardID: boardID, member: model.Member{ID: s.nextID, UserID: userID, Role: r, InvitedAt: &now}}
	s.members[row.member.ID] = row
	return row
}

// AddColumn appends a column to a board.
func (s *Server) AddColumn(boardID int64, title string) model.Column {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	col := &model.Column{
		ID:        s.nextID,
		BoardID:   boardID,
		Title:     title,
		Color:     model.DefaultColumnColor,
		Position:  len(s.columnsOfLocked(boardID)),
		CreatedAt: time.Now().UTC(),
	}
	s.columns[col.ID] = col
	return *col
}

// AddCard appends a card to a column.
func (s *Server) AddCard(columnID int64, title string) model.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	card := &model.Card{
		ID:        s.nextID,
		ColumnID:  columnID,
		Title:     title,
		Position:  len(s.cardsOfLocked(columnID)),
		Priority:  model.PriorityMedium,
		CreatedAt: time.Now().UTC(),
	}
	s.cards[card.ID] = card
	return *card
}

// Columns returns the server's view of a board, sorted like the API does.
func (s *Server) Columns(boardID int64) []model.Column {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.columnViewLocked(boardID)
}

// Members returns the memberships of a board.
func (s *Server) Members(boardID int64) []model.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.membersOfLocked(boardID, false)
}

// SetCardPosition changes a card position behind the client's back, the
// way another user's edit would.
func (s *Server) SetCardPosition(cardID int64, position int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if card, ok := s.cards[cardID]; ok {
		card.Position = position
	}
}

func (s *Server) columnsOfLocked(boardID int64) []*model.Column {
	var out []*model.Column
	for _, col := range s.columns {
		if col.BoardID == boardID {
			out = append(out, col)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Server) cardsOfLocked(columnID int64) []*model.Card {
	var out []*model.Card
	for _, card := range s.cards {
		if card.ColumnID == columnID {
			out = append(out, card)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Server) columnViewLocked(boardID int64) []model.Column {
	cols := s.columnsOfLocked(boardID)
	out := make([]model.Column, 0, len(cols))
	for _, col := range cols {
		view := *col
		view.Cards = []model.Card{}
		for _, card := range s.cardsOfLocked(col.ID) {
			view.Cards = append(view.Cards, *card)
		}
		out = append(out, view)
	}
	return out
}

func (s *Server) membersOfLocked(boardID int64, omitEmails bool) []model.Member {
	var out []model.Member
	for _, row := range s.members {
		if row.boardID != boardID {
			continue
		}
		m := row.member
		if u, ok := s.users[m.UserID]; ok && !omitEmails {
			m.UserEmail = u.Email
			m.UserName = u.Name
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) roleLocked(boardID, userID int64) model.Role {
	for _, row := range s.members {
		if row.boardID == boardID && row.member.UserID == userID {
			return row.member.Role
		}
	}
	return model.RoleUnknown
}

func sortBoards(boards []model.Board) {
	sort.Slice(boards, func(i, j int) bool { return boards[i].ID < boards[j].ID })
}
