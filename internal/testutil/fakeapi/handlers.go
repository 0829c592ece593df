package fakeapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"cardtrack/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type profileRequest struct {
	Name    *string `json:"name"`
	AboutMe *string `json:"aboutme"`
}

type boardRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type columnRequest struct {
	Title    *string `json:"title"`
	Color    *string `json:"color"`
	Position *int    `json:"position"`
}

type cardRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ColumnID    *int64  `json:"column"`
	Position    *int    `json:"position"`
	DueDate     *string `json:"due_date"`
	IsCompleted *bool   `json:"is_completed"`
	Priority    *string `json:"priority"`
}

type inviteRequest struct {
	Email string     `json:"email" binding:"required,email"`
	Role  model.Role `json:"role" binding:"required,oneof=owner editor viewer"`
}

type roleRequest struct {
	Role model.Role `json:"role" binding:"required,oneof=owner editor viewer"`
}

var notFound = gin.H{"detail": "Not found."}

func rank(r model.Role) int {
	switch r {
	case model.RoleOwner:
		return 3
	case model.RoleEditor:
		return 2
	case model.RoleViewer:
		return 1
	}
	return 0
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, notFound)
		return 0, false
	}
	return id, true
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindBodyWith(req, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// boardAccess resolves the :id board and checks the caller holds at least
// required on it. It must be called with s.mu held.
func (s *Server) boardAccess(c *gin.Context, required model.Role) (*model.Board, model.Role, bool) {
	boardID, ok := paramID(c, "id")
	if !ok {
		return nil, model.RoleUnknown, false
	}
	board, found := s.boards[boardID]
	if !found {
		c.JSON(http.StatusNotFound, notFound)
		return nil, model.RoleUnknown, false
	}
	r := s.roleLocked(boardID, c.GetInt64(userIDKey))
	if r == model.RoleUnknown {
		c.JSON(http.StatusNotFound, notFound)
		return nil, r, false
	}
	if rank(r) < rank(required) {
		c.JSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
		return nil, r, false
	}
	return board, r, true
}

// columnAccess resolves :cid inside the :id board.
func (s *Server) columnAccess(c *gin.Context, required model.Role) (*model.Column, bool) {
	board, _, ok := s.boardAccess(c, required)
	if !ok {
		return nil, false
	}
	colID, ok := paramID(c, "cid")
	if !ok {
		return nil, false
	}
	col, found := s.columns[colID]
	if !found || col.BoardID != board.ID {
		c.JSON(http.StatusNotFound, notFound)
		return nil, false
	}
	return col, true
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.Email == strings.ToLower(req.Email) && s.passwords[id] == req.Password {
			now := time.Now().UTC()
			u.LastLogin = &now
			c.JSON(http.StatusOK, gin.H{
				"token":   TokenFor(*u),
				"user_id": u.ID,
				"name":    u.Name,
				"email":   u.Email,
			})
			return
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if !bind(c, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == strings.ToLower(req.Email) {
			c.JSON(http.StatusBadRequest, gin.H{"email": []string{"user with this email already exists."}})
			return
		}
	}
	u := s.addUserLocked(req.Name, req.Email, req.Password)
	c.JSON(http.StatusCreated, u)
}

func (s *Server) me(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.users[c.GetInt64(userIDKey)])
}

func (s *Server) getUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, found := s.users[id]
	if !found {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	c.JSON(http.StatusOK, u)
}

// updateUser edits the caller's own profile. JSON bodies change name and
// aboutme; a multipart body carries a new profilepicture.
func (s *Server) updateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req profileRequest
	var picture string
	if c.ContentType() == binding.MIMEMultipartPOSTForm {
		file, err := c.FormFile("profilepicture")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"profilepicture": []string{"No file was submitted."}})
			return
		}
		picture = "/media/profilepic/" + file.Filename
	} else if !bind(c, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, found := s.users[id]
	if !found {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	if c.GetInt64(userIDKey) != id {
		c.JSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"name": []string{"This field may not be blank."}})
		return
	}
	if req.AboutMe != nil && len([]rune(*req.AboutMe)) > 255 {
		c.JSON(http.StatusBadRequest, gin.H{"aboutme": []string{"Ensure this field has no more than 255 characters."}})
		return
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.AboutMe != nil {
		u.AboutMe = *req.AboutMe
	}
	if picture != "" {
		u.ProfilePicture = picture
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) listBoards(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := c.GetInt64(userIDKey)
	out := []model.Board{}
	for _, b := range s.boards {
		if s.roleLocked(b.ID, userID) != model.RoleUnknown {
			out = append(out, *b)
		}
	}
	sortBoards(out)
	c.JSON(http.StatusOK, out)
}

func (s *Server) createBoard(c *gin.Context) {
	var req boardRequest
	if !bind(c, &req) {
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"title": []string{"This field is required."}})
		return
	}
	var description string
	if req.Description != nil {
		description = *req.Description
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.addBoardLocked(c.GetInt64(userIDKey), *req.Title, description)
	c.JSON(http.StatusCreated, b)
}

func (s *Server) getBoard(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	board, _, ok := s.boardAccess(c, model.RoleViewer)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, board)
}

func (s *Server) updateBoard(c *gin.Context) {
	var req boardRequest
	if !bind(c, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	board, _, ok := s.boardAccess(c, model.RoleEditor)
	if !ok {
		return
	}
	if req.Title != nil {
		board.Title = *req.Title
	}
	if req.Description != nil {
		board.Description = *req.Description
	}
	c.JSON(http.StatusOK, board)
}

func (s *Server) deleteBoard(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	board, _, ok := s.boardAccess(c, model.RoleOwner)
	if !ok {
		return
	}
	for _, col := range s.columnsOfLocked(board.ID) {
		s.deleteColumnLocked(col.ID)
	}
	for id, row := range s.members {
		if row.boardID == board.ID {
			delete(s.members, id)
		}
	}
	delete(s.boards, board.ID)
	c.Status(http.StatusNoContent)
}

func (s *Server) listColumns(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	board, _, ok := s.boardAccess(c, model.RoleViewer)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.columnViewLocked(board.ID))
}

func (s *Server) createColumn(c *gin.Context) {
	var req columnRequest
	if !bind(c, &req) {
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"title": []string{"This field is required."}})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	board, _, ok := s.boardAccess(c, model.RoleEditor)
	if !ok {
		return
	}
	s.nextID++
	col := &model.Column{
		ID:        s.nextID,
		BoardID:   board.ID,
		Title:     *req.Title,
		Color:     model.DefaultColumnColor,
		Position:  len(s.columnsOfLocked(board.ID)),
		CreatedAt: time.Now().UTC(),
	}
	if req.Color != nil && *req.Color != "" {
		col.Color = *req.Color
	}
	if req.Position != nil {
		col.Position = *req.Position
	}
	s.columns[col.ID] = col
	view := *col
	view.Cards = []model.Card{}
	c.JSON(http.StatusCreated, view)
}

func (s *Server) updateColumn(c *gin.Context) {
	var req columnRequest
	if !bind(c, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.columnAccess(c, model.RoleEditor)
	if !ok {
		return
	}
	if req.Title != nil {
		col.Title = *req.Title
	}
	if req.Color != nil {
		col.Color = *req.Color
	}
	if req.Position != nil {
		col.Position = *req.Position
	}
	c.JSON(http.StatusOK, col)
}

func (s *Server) deleteColumn(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.columnAccess(c, model.RoleEditor)
	if !ok {
		return
	}
	s.deleteColumnLocked(col.ID)
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteColumnLocked(columnID int64) {
	for id, card := range s.cards {
		if card.ColumnID == columnID {
			delete(s.cards, id)
		}
	}
	delete(s.columns, columnID)
}

func (s *Server) createCard(c *gin.Context) {
	var req cardRequest
	if !bind(c, &req) {
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"title": []string{"This field is required."}})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.columnAccess(c, model.RoleEditor)
	if !ok {
		return
	}
	s.nextID++
	card := &model.Card{
		ID:        s.nextID,
		ColumnID:  col.ID,
		Position:  len(s.cardsOfLocked(col.ID)),
		Priority:  model.PriorityMedium,
		CreatedAt: time.Now().UTC(),
	}
	applyCard(card, req)
	card.ColumnID = col.ID
	s.cards[card.ID] = card
	c.JSON(http.StatusCreated, card)
}

func (s *Server) updateCard(c *gin.Context) {
	var req cardRequest
	if !bind(c, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.columnAccess(c, model.RoleEditor)
	if !ok {
		return
	}
	card, ok := s.cardIn(c, col)
	if !ok {
		return
	}
	if req.ColumnID != nil {
		target, found := s.columns[*req.ColumnID]
		if !found || target.BoardID != col.BoardID {
			c.JSON(http.StatusBadRequest, gin.H{"column": []string{"Invalid pk - object does not exist."}})
			return
		}
	}
	applyCard(card, req)
	c.JSON(http.StatusOK, card)
}

func (s *Server) deleteCard(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.columnAccess(c, model.RoleEditor)
	if !ok {
		return
	}
	card, ok := s.cardIn(c, col)
	if !ok {
		return
	}
	delete(s.cards, card.ID)
	c.Status(http.StatusNoContent)
}

func (s *Server) cardIn(c *gin.Context, col *model.Column) (*model.Card, bool) {
	cardID, ok := paramID(c, "card")
	if !ok {
		return nil, false
	}
	card, found := s.cards[cardID]
	if !found || card.ColumnID != col.ID {
		c.JSON(http.StatusNotFound, notFound)
		return nil, false
	}
	return card, true
}

func applyCard(card *model.Card, req cardRequest) {
	if req.Title != nil {
		card.Title = *req.Title
	}
	if req.Description != nil {
		card.Description = *req.Description
	}
	if req.ColumnID != nil {
		card.ColumnID = *req.ColumnID
	}
	if req.Position != nil {
		card.Position = *req.Position
	}
	if req.DueDate != nil {
		card.DueDate = req.DueDate
	}
	if req.IsCompleted != nil {
		card.IsCompleted = *req.IsCompleted
	}
	if req.Priority != nil {
		card.Priority = *req.Priority
	}
}

func (s *Server) listMembers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	board, _, ok := s.boardAccess(c, model.RoleViewer)
	if !ok {
		return
	}
	members := s.membersOfLocked(board.ID, s.omitMemberEmails)
	if members == nil {
		members = []model.Member{}
	}
	c.JSON(http.StatusOK, members)
}

func (s *Server) updateMember(c *gin.Context) {
	var req roleRequest
	if !bind(c, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	board, actor, ok := s.boardAccess(c, model.RoleEditor)
	if !ok {
		return
	}
	memberID, ok := paramID(c, "mid")
	if !ok {
		return
	}
	row, found := s.members[memberID]
	if !found || row.boardID != board.ID {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	if row.member.Role == model.RoleOwner || (req.Role == model.RoleOwner && actor != model.RoleOwner) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can transfer ownership"})
		return
	}
	if actor == model.RoleEditor && !(row.member.Role == model.RoleViewer && req.Role == model.RoleEditor) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Editors can only promote viewers to editor"})
		return
	}
	row.member.Role = req.Role
	m := row.member
	if u, ok := s.users[m.UserID]; ok {
		m.UserEmail = u.Email
		m.UserName = u.Name
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) invite(c *gin.Context) {
	var req inviteRequest
	if !bind(c, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	board, actor, ok := s.boardAccess(c, model.RoleEditor)
	if !ok {
		return
	}
	if req.Role == model.RoleOwner && actor != model.RoleOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can invite an owner"})
		return
	}
	var invitee *model.User
	for _, u := range s.users {
		if u.Email == strings.ToLower(req.Email) {
			invitee = u
			break
		}
	}
	if invitee == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if s.roleLocked(board.ID, invitee.ID) != model.RoleUnknown {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User is already a member of this board"})
		return
	}
	row := s.addMemberLocked(board.ID, invitee.ID, req.Role)
	m := row.member
	m.UserEmail = invitee.Email
	m.UserName = invitee.Name
	c.JSON(http.StatusCreated, m)
}

func (s *Server) leave(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	board, actor, ok := s.boardAccess(c, model.RoleViewer)
	if !ok {
		return
	}
	if actor == model.RoleOwner {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The owner cannot leave the board"})
		return
	}
	userID := c.GetInt64(userIDKey)
	for id, row := range s.members {
		if row.boardID == board.ID && row.member.UserID == userID {
			delete(s.members, id)
		}
	}
	c.JSON(http.StatusOK, gin.H{"detail": "You left the board."})
}
