package live

import (
	"fmt"
	"time"
)

// State of the push channel connection.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Backoff is the wait before reconnect attempt n (1-based): base*n,
// capped at limit.
func Backoff(base, limit time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base * time.Duration(attempt)
	if d > limit || d < 0 {
		return limit
	}
	return d
}

// ConnectionError describes a failed or lost push connection. It is
// logged and never returned to callers.
type ConnectionError struct {
	ConnID  string
	Attempt int
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("push channel %s attempt %d: %v", e.ConnID, e.Attempt, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
