package live_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cardtrack/internal/live"
	"cardtrack/internal/testutil/fakeapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 3 * time.Second
const tick = 5 * time.Millisecond

type harness struct {
	srv     *fakeapi.Server
	boardID int64
	reloads atomic.Int32
	chats   chan live.ChatMessage
	pending chan int
	l       *live.Listener
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := fakeapi.New(t)
	owner, token := srv.AddUser("Ann", "ann@example.com", "secret1")
	b := srv.AddBoard(owner.ID, "Live")

	h := &harness{
		srv:     srv,
		boardID: b.ID,
		chats:   make(chan live.ChatMessage, 8),
		pending: make(chan int, 8),
	}
	h.l = live.NewListener(live.Options{
		BaseURL:   srv.WSURL(),
		Token:     token,
		BoardID:   b.ID,
		BaseDelay: 10 * time.Millisecond,
		MaxDelay:  50 * time.Millisecond,
		Reload: func(ctx context.Context) error {
			h.reloads.Add(1)
			return nil
		},
		OnChat:    func(m live.ChatMessage) { h.chats <- m },
		OnPending: func(n int) { h.pending <- n },
	})
	return h
}

func (h *harness) start(t *testing.T) *live.Subscription {
	t.Helper()
	sub := h.l.Start(context.Background())
	t.Cleanup(sub.Stop)
	h.waitConnected(t, 1)
	return sub
}

func (h *harness) waitConnected(t *testing.T, dials int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.l.State() == live.Connected && h.srv.Connections(h.boardID) == 1 && h.srv.Dials(h.boardID) >= dials
	}, waitFor, tick)
}

// barrier sends a chat line and waits for it to come back. Frames are
// handled in order, so everything sent before it has been processed.
func (h *harness) barrier(t *testing.T, sub *live.Subscription) {
	t.Helper()
	require.NoError(t, sub.SendChat("barrier"))
	select {
	case m := <-h.chats:
		require.Equal(t, "barrier", m.Content)
	case <-time.After(waitFor):
		t.Fatal("chat echo not received")
	}
}

func TestListener_URL(t *testing.T) {
	l := live.NewListener(live.Options{BaseURL: "wss://cards.example.com/", Token: "fake-token-a@b.c", BoardID: 4})

	assert.Equal(t, "wss://cards.example.com/ws/boards/4/?token=fake-token-a%40b.c", l.URL())
}

func TestListener_NotificationWithoutOpenFormReloadsOnce(t *testing.T) {
	// Arrange
	h := newHarness(t)
	sub := h.start(t)

	// Act
	h.srv.Broadcast(h.boardID, "card_updated", map[string]any{"id": 12})
	h.barrier(t, sub)

	// Assert
	assert.EqualValues(t, 1, h.reloads.Load())
	assert.Zero(t, h.l.Pending())
}

func TestListener_NotificationForOpenFormIsHeldBack(t *testing.T) {
	// Arrange
	h := newHarness(t)
	sub := h.start(t)
	h.l.Edits().Begin(live.Edit{Ref: live.CardRef(12), Title: "my draft", Description: "unsaved"})

	// Act
	h.srv.Broadcast(h.boardID, "card_updated", map[string]any{"id": 12, "title": "theirs"})
	h.barrier(t, sub)

	// Assert
	assert.Zero(t, h.reloads.Load(), "board is not reloaded")
	assert.Equal(t, 1, h.l.Pending())
	assert.Equal(t, 1, <-h.pending)
	edit, ok := h.l.Edits().Get(live.CardRef(12))
	require.True(t, ok)
	assert.Equal(t, "my draft", edit.Title)
	assert.Equal(t, "unsaved", edit.Description)

	// Уведомление о другой карточке применяется сразу
	h.srv.Broadcast(h.boardID, "card_updated", map[string]any{"card_id": 13})
	h.barrier(t, sub)
	assert.EqualValues(t, 1, h.reloads.Load())
}

func TestListener_ApplyPending(t *testing.T) {
	h := newHarness(t)
	sub := h.start(t)
	h.l.Edits().Begin(live.Edit{Ref: live.ColumnRef(3)})
	h.srv.Broadcast(h.boardID, "column_renamed", map[string]any{"column_id": 3})
	h.srv.Broadcast(h.boardID, "column_renamed", map[string]any{"column_id": 3})
	h.barrier(t, sub)
	require.Equal(t, 2, h.l.Pending())

	err := h.l.ApplyPending(context.Background())

	require.NoError(t, err)
	assert.Zero(t, h.l.Pending())
	assert.EqualValues(t, 1, h.reloads.Load())
}

func TestListener_InvalidFramesAreDropped(t *testing.T) {
	h := newHarness(t)
	sub := h.start(t)

	h.srv.BroadcastRaw(h.boardID, []byte("{not json"))
	h.srv.BroadcastRaw(h.boardID, []byte(`{"hello":"world"}`))
	h.barrier(t, sub)

	assert.Zero(t, h.reloads.Load())
	assert.Equal(t, live.Connected, h.l.State())
}

func TestListener_ReconnectsAndResetsAttempts(t *testing.T) {
	// Arrange
	h := newHarness(t)
	h.start(t)

	// Act
	h.srv.DropConnections(h.boardID)

	// Assert
	h.waitConnected(t, 2)
	assert.Zero(t, h.l.Attempts())
}

func TestListener_SendChat(t *testing.T) {
	h := newHarness(t)
	sub := h.start(t)

	require.NoError(t, sub.SendChat("hello team"))

	select {
	case m := <-h.chats:
		assert.Equal(t, "hello team", m.Content)
		assert.Equal(t, h.boardID, m.Board)
	case <-time.After(waitFor):
		t.Fatal("chat echo not received")
	}
	require.Len(t, h.srv.Received(h.boardID), 1)
}

func TestListener_StopTearsDown(t *testing.T) {
	// Arrange
	h := newHarness(t)
	sub := h.start(t)

	// Act
	sub.Stop()

	// Assert
	assert.Equal(t, live.Disconnected, h.l.State())
	assert.ErrorIs(t, sub.SendChat("late"), live.ErrNotConnected)
	require.Eventually(t, func() bool { return h.srv.Connections(h.boardID) == 0 }, waitFor, tick)
	dials := h.srv.Dials(h.boardID)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, dials, h.srv.Dials(h.boardID), "no reconnect after stop")
	sub.Stop()
}

type failingDialer struct {
	mu    sync.Mutex
	times []time.Time
}

func (d *failingDialer) Dial(ctx context.Context, url string) (live.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.times = append(d.times, time.Now())
	return nil, errors.New("connection refused")
}

func (d *failingDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.times)
}

func TestListener_BacksOffAndStopCancelsTimer(t *testing.T) {
	// Arrange
	dialer := &failingDialer{}
	var states []live.State
	var mu sync.Mutex
	l := live.NewListener(live.Options{
		BaseURL:   "ws://127.0.0.1:1",
		BoardID:   1,
		BaseDelay: 20 * time.Millisecond,
		MaxDelay:  40 * time.Millisecond,
		Dialer:    dialer,
		Reload:    func(context.Context) error { return nil },
		OnState: func(s live.State) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, s)
		},
	})

	// Act
	sub := l.Start(context.Background())
	require.Eventually(t, func() bool { return dialer.count() >= 4 }, waitFor, tick)
	stopped := time.Now()
	sub.Stop()

	// Assert
	assert.Less(t, time.Since(stopped), 40*time.Millisecond, "stop does not wait out the reconnect timer")
	assert.GreaterOrEqual(t, l.Attempts(), 3)
	dialer.mu.Lock()
	gap := dialer.times[3].Sub(dialer.times[2])
	dialer.mu.Unlock()
	assert.GreaterOrEqual(t, gap, 40*time.Millisecond, "delay is capped at the maximum")
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, live.Connecting, states[0])
	assert.Equal(t, live.Disconnected, states[len(states)-1])
}
