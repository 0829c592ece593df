package fakeapi

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"cardtrack/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

type peer struct {
	mu   sync.Mutex
	conn net.Conn
}

func (p *peer) write(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return wsutil.WriteServerMessage(p.conn, ws.OpText, payload)
}

type hub struct {
	mu       sync.Mutex
	peers    map[int64]map[*peer]struct{}
	received map[int64][][]byte
	dials    map[int64]int
}

func newHub() *hub {
	return &hub{
		peers:    map[int64]map[*peer]struct{}{},
		received: map[int64][][]byte{},
		dials:    map[int64]int{},
	}
}

func (h *hub) add(boardID int64, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.peers[boardID] == nil {
		h.peers[boardID] = map[*peer]struct{}{}
	}
	h.peers[boardID][p] = struct{}{}
	h.dials[boardID]++
}

func (h *hub) remove(boardID int64, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.peers[boardID], p)
}

func (h *hub) snapshot(boardID int64) []*peer {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*peer, 0, len(h.peers[boardID]))
	for p := range h.peers[boardID] {
		out = append(out, p)
	}
	return out
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, peers := range h.peers {
		for p := range peers {
			p.conn.Close()
		}
	}
}

// ChatMessage is what the push channel relays for {"type":"message"} frames.
type ChatMessage struct {
	ID        int64  `json:"id"`
	Board     int64  `json:"board"`
	User      int64  `json:"user"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) serveWS(c *gin.Context) {
	boardID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, ok := s.userForToken(c.Query("token"))
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	s.mu.Lock()
	member := s.roleLocked(boardID, userID) != model.RoleUnknown
	s.mu.Unlock()
	if !member {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(c.Request, c.Writer)
	if err != nil {
		return
	}
	p := &peer{conn: conn}
	s.hub.add(boardID, p)
	go s.readLoop(boardID, userID, p)
}

func (s *Server) readLoop(boardID, userID int64, p *peer) {
	defer func() {
		s.hub.remove(boardID, p)
		p.conn.Close()
	}()
	for {
		data, op, err := wsutil.ReadClientData(p.conn)
		if err != nil {
			return
		}
		if op != ws.OpText {
			continue
		}
		s.hub.mu.Lock()
		s.hub.received[boardID] = append(s.hub.received[boardID], data)
		s.hub.mu.Unlock()

		var frame struct {
			Type    string `json:"type"`
			Content string `json:"content"`
		}
		if json.Unmarshal(data, &frame) != nil || frame.Type != "message" {
			continue
		}
		text := strings.TrimSpace(frame.Content)
		if text == "" {
			continue
		}
		s.mu.Lock()
		s.nextID++
		msg := ChatMessage{ID: s.nextID, Board: boardID, User: userID, Content: text, CreatedAt: time.Now().UTC().Format(time.RFC3339)}
		s.mu.Unlock()
		s.broadcastValue(boardID, msg)
	}
}

// Broadcast pushes {"event": event, "data": data} to every listener of
// the board.
func (s *Server) Broadcast(boardID int64, event string, data map[string]any) {
	s.broadcastValue(boardID, gin.H{"event": event, "data": data})
}

// BroadcastRaw pushes an arbitrary text frame.
func (s *Server) BroadcastRaw(boardID int64, payload []byte) {
	for _, p := range s.hub.snapshot(boardID) {
		_ = p.write(payload)
	}
}

func (s *Server) broadcastValue(boardID int64, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.BroadcastRaw(boardID, payload)
}

// DropConnections closes every push connection of a board, simulating a
// server restart.
func (s *Server) DropConnections(boardID int64) {
	for _, p := range s.hub.snapshot(boardID) {
		p.conn.Close()
		s.hub.remove(boardID, p)
	}
}

// Connections is the number of open push connections of a board.
func (s *Server) Connections(boardID int64) int {
	return len(s.hub.snapshot(boardID))
}

// Dials counts every accepted push connection of a board, including
// closed ones.
func (s *Server) Dials(boardID int64) int {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.hub.dials[boardID]
}

// Received returns the text frames clients sent on a board's channel.
func (s *Server) Received(boardID int64) [][]byte {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	out := make([][]byte, len(s.hub.received[boardID]))
	copy(out, s.hub.received[boardID])
	return out
}
