// Package live listens to a board's push channel and decides, per change
// notification, whether to reload the board or to count the change as
// pending because the user is editing the entity it refers to.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrNotConnected is returned by Send while the channel is down.
var ErrNotConnected = errors.New("push channel not connected")

type Options struct {
	// BaseURL is the push channel root, e.g. ws://127.0.0.1:8000.
	BaseURL string
	Token   string
	BoardID int64

	BaseDelay time.Duration
	MaxDelay  time.Duration

	Dialer Dialer
	Edits  *EditTracker

	// Reload resynchronizes the board. Required.
	Reload func(ctx context.Context) error

	OnPending func(count int)
	OnChat    func(ChatMessage)
	OnState   func(State)
}

type Listener struct {
	opts Options

	state    atomic.Int32
	attempts atomic.Int32
	pending  atomic.Int32

	mu   sync.Mutex
	conn Conn
}

func NewListener(opts Options) *Listener {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = WSDialer{Timeout: 10 * time.Second}
	}
	if opts.Edits == nil {
		opts.Edits = NewEditTracker()
	}
	return &Listener{opts: opts}
}

// URL is the channel address for the board: <base>/ws/boards/<id>/?token=.
func (l *Listener) URL() string {
	u := fmt.Sprintf("%s/ws/boards/%d/", strings.TrimRight(l.opts.BaseURL, "/"), l.opts.BoardID)
	if l.opts.Token != "" {
		u += "?token=" + url.QueryEscape(l.opts.Token)
	}
	return u
}

func (l *Listener) State() State { return State(l.state.Load()) }

// Attempts is the number of reconnect attempts since the last successful
// connection.
func (l *Listener) Attempts() int { return int(l.attempts.Load()) }

// Pending is the number of notifications held back by open edit forms.
func (l *Listener) Pending() int { return int(l.pending.Load()) }

func (l *Listener) Edits() *EditTracker { return l.opts.Edits }

// ApplyPending reloads the board and clears the pending counter.
func (l *Listener) ApplyPending(ctx context.Context) error {
	if err := l.opts.Reload(ctx); err != nil {
		return err
	}
	l.pending.Store(0)
	l.notifyPending(0)
	return nil
}

func (l *Listener) setState(s State) {
	if State(l.state.Swap(int32(s))) == s {
		return
	}
	slog.Debug("push channel state", "board_id", l.opts.BoardID, "state", s.String())
	if l.opts.OnState != nil {
		l.opts.OnState(s)
	}
}

func (l *Listener) notifyPending(n int) {
	if l.opts.OnPending != nil {
		l.opts.OnPending(n)
	}
}

// Subscription is a running listener. Stop tears it down.
type Subscription struct {
	l      *Listener
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start connects in the background and keeps reconnecting until the
// subscription is stopped or ctx is cancelled.
func (l *Listener) Start(ctx context.Context) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{l: l, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		l.run(ctx)
	}()
	return sub
}

// Stop closes the connection, cancels any pending reconnect and waits for
// the listener to exit.
func (s *Subscription) Stop() {
	s.once.Do(func() {
		s.cancel()
		s.l.closeConn()
	})
	<-s.done
}

// Done is closed once the listener has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Send writes v as a JSON text frame.
func (s *Subscription) Send(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode push frame: %w", err)
	}
	s.l.mu.Lock()
	conn := s.l.conn
	s.l.mu.Unlock()
	if conn == nil || s.l.State() != Connected {
		return ErrNotConnected
	}
	return conn.Write(payload)
}

// SendChat posts a chat line to the board.
func (s *Subscription) SendChat(content string) error {
	return s.Send(map[string]string{"type": "message", "content": content})
}

func (l *Listener) closeConn() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		_ = l.conn.Close()
		l.conn = nil
	}
}

func (l *Listener) run(ctx context.Context) {
	defer l.setState(Disconnected)
	target := l.URL()

	for {
		l.setState(Connecting)
		connID := uuid.NewString()
		conn, err := l.opts.Dialer.Dial(ctx, target)
		if err == nil {
			l.mu.Lock()
			l.conn = conn
			l.mu.Unlock()
			if ctx.Err() != nil {
				l.closeConn()
				return
			}
			l.attempts.Store(0)
			l.setState(Connected)
			slog.Debug("push channel connected", "board_id", l.opts.BoardID, "conn_id", connID)

			stop := context.AfterFunc(ctx, l.closeConn)
			err = l.readLoop(ctx, conn)
			stop()
			l.closeConn()
		}
		if ctx.Err() != nil {
			return
		}

		attempt := int(l.attempts.Add(1))
		delay := Backoff(l.opts.BaseDelay, l.opts.MaxDelay, attempt)
		slog.Debug("push channel down, reconnecting",
			"board_id", l.opts.BoardID,
			"delay", delay,
			"error", &ConnectionError{ConnID: connID, Attempt: attempt, Err: err})
		l.setState(Disconnected)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (l *Listener) readLoop(ctx context.Context, conn Conn) error {
	for {
		raw, err := conn.Read()
		if err != nil {
			return err
		}
		l.handle(ctx, raw)
	}
}

func (l *Listener) handle(ctx context.Context, raw []byte) {
	msg, chat, err := Decode(raw)
	if err != nil {
		slog.Debug("dropping push message", "board_id", l.opts.BoardID, "error", err)
		return
	}
	if chat != nil {
		if l.opts.OnChat != nil {
			l.opts.OnChat(*chat)
		}
		return
	}

	if ref, ok := msg.Ref(); ok && l.opts.Edits.IsOpen(ref) {
		n := int(l.pending.Add(1))
		slog.Debug("change held back by open edit", "event", msg.Event, "kind", ref.Kind, "id", ref.ID, "pending", n)
		l.notifyPending(n)
		return
	}

	if err := l.opts.Reload(ctx); err != nil && ctx.Err() == nil {
		slog.Warn("reload after push notification failed", "board_id", l.opts.BoardID, "event", msg.Event, "error", err)
	}
}
