package live

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrUnrecognizedMessage is returned for JSON frames that are neither a
// change notification nor a chat message.
var ErrUnrecognizedMessage = errors.New("unrecognized push message")

// Kind names the type of entity a notification refers to.
type Kind string

const (
	KindCard   Kind = "card"
	KindColumn Kind = "column"
)

// Ref identifies one card or column.
type Ref struct {
	Kind Kind
	ID   int64
}

func CardRef(id int64) Ref   { return Ref{Kind: KindCard, ID: id} }
func ColumnRef(id int64) Ref { return Ref{Kind: KindColumn, ID: id} }

// Message is a change notification: {"event": "...", "data": {...}}.
type Message struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// ChatMessage is a board chat line relayed by the push channel.
type ChatMessage struct {
	ID        int64  `json:"id"`
	Board     int64  `json:"board"`
	User      int64  `json:"user"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Ref extracts the entity the notification is about. card_id and
// column_id win; a bare id counts when the event name starts with card or
// column.
func (m Message) Ref() (Ref, bool) {
	if id, ok := intField(m.Data, "card_id"); ok {
		return CardRef(id), true
	}
	if id, ok := intField(m.Data, "column_id"); ok {
		return ColumnRef(id), true
	}
	event := strings.ToLower(m.Event)
	if id, ok := intField(m.Data, "id"); ok {
		switch {
		case strings.HasPrefix(event, string(KindCard)):
			return CardRef(id), true
		case strings.HasPrefix(event, string(KindColumn)):
			return ColumnRef(id), true
		}
	}
	return Ref{}, false
}

// Decode parses one text frame into either a notification or a chat
// message.
func Decode(raw []byte) (*Message, *ChatMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, nil, err
	}
	if _, ok := fields["event"]; ok {
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, nil, err
		}
		if msg.Event != "" {
			return &msg, nil, nil
		}
	}
	if _, ok := fields["content"]; ok {
		var chat ChatMessage
		if err := json.Unmarshal(raw, &chat); err != nil {
			return nil, nil, err
		}
		return nil, &chat, nil
	}
	return nil, nil, ErrUnrecognizedMessage
}

func intField(data map[string]any, key string) (int64, bool) {
	switch v := data[key].(type) {
	case float64:
		if v > 0 {
			return int64(v), true
		}
	case string:
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}
