// Package session runs one open board: it loads the board store, keeps it
// in sync with the push channel and routes every user intent through the
// role gate, the reorder reconciler or the mutation gateway, reloading the
// board afterwards.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"cardtrack/internal/api"
	"cardtrack/internal/board"
	"cardtrack/internal/gateway"
	"cardtrack/internal/live"
	"cardtrack/internal/model"
	"cardtrack/internal/reorder"
	"cardtrack/internal/role"
)

type Deps struct {
	Client  *api.Client
	Session model.Session
	BoardID int64

	// WSURL is the push channel root. Empty disables live updates.
	WSURL         string
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
	Dialer        live.Dialer

	// OnError receives every failed mutation after it has been normalized.
	OnError   func(err error)
	OnPending func(count int)
	OnChat    func(live.ChatMessage)
	OnState   func(live.State)

	// OnReload runs after the push channel reloaded the board.
	OnReload func(*board.Store)
}

type Manager struct {
	deps     Deps
	store    *board.Store
	rec      *reorder.Reconciler
	gw       *gateway.Gateway
	listener *live.Listener

	mu  sync.Mutex
	sub *live.Subscription
}

func New(d Deps) *Manager {
	client := d.Client.WithSessionToken(d.Session.Token)
	store := board.NewStore(client, d.Session, d.BoardID)
	m := &Manager{
		deps:  d,
		store: store,
		rec:   reorder.NewReconciler(client, store),
		gw:    gateway.New(client, store),
	}
	m.listener = live.NewListener(live.Options{
		BaseURL:   d.WSURL,
		Token:     d.Session.Token,
		BoardID:   d.BoardID,
		BaseDelay: d.ReconnectBase,
		MaxDelay:  d.ReconnectMax,
		Dialer:    d.Dialer,
		Reload:    m.pushReload,
		OnPending: d.OnPending,
		OnChat:    d.OnChat,
		OnState:   d.OnState,
	})
	return m
}

func (m *Manager) pushReload(ctx context.Context) error {
	if err := m.store.Load(ctx); err != nil {
		return err
	}
	if m.deps.OnReload != nil {
		m.deps.OnReload(m.store)
	}
	return nil
}

func (m *Manager) Store() *board.Store { return m.store }

func (m *Manager) Listener() *live.Listener { return m.listener }

// CanMutate reports whether the acting user may change the board.
func (m *Manager) CanMutate() bool { return role.CanMutate(m.store.Role()) }

// Open loads the board and starts listening for changes. A load failure
// is returned as *board.LoadError and no listener is started.
func (m *Manager) Open(ctx context.Context) error {
	if err := m.store.Load(ctx); err != nil {
		return err
	}
	if m.deps.WSURL == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sub == nil {
		m.sub = m.listener.Start(ctx)
	}
	return nil
}

// Close stops the listener. It is safe to call more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	sub := m.sub
	m.sub = nil
	m.mu.Unlock()
	if sub != nil {
		sub.Stop()
	}
}

func (m *Manager) Reload(ctx context.Context) error {
	return m.store.Load(ctx)
}

// finish reports a failed mutation and resynchronizes the board. Requests
// refused by the role gate never reached the server and skip the reload.
func (m *Manager) finish(ctx context.Context, err error) error {
	if errors.Is(err, role.ErrPermissionDenied) {
		return err
	}
	if err != nil {
		m.report(err)
	}
	if loadErr := m.store.Load(ctx); loadErr != nil {
		slog.Warn("reload after mutation failed", "board_id", m.store.BoardID(), "error", loadErr)
		return errors.Join(err, loadErr)
	}
	return err
}

func (m *Manager) report(err error) {
	slog.Info("mutation failed", "board_id", m.store.BoardID(), "message", api.UserMessage(err))
	if m.deps.OnError != nil {
		m.deps.OnError(err)
	}
}

// drag reports reconciler failures; the reconciler has already reloaded.
func (m *Manager) drag(err error) error {
	if err != nil {
		m.report(err)
	}
	return err
}

func (m *Manager) ReorderColumns(ctx context.Context, sourceID, targetID int64) error {
	return m.drag(m.rec.ReorderColumns(ctx, sourceID, targetID))
}

func (m *Manager) MoveCard(ctx context.Context, sourceColumnID, cardID, targetColumnID int64, drop reorder.Drop) error {
	return m.drag(m.rec.MoveCard(ctx, sourceColumnID, cardID, targetColumnID, drop))
}

// DeleteColumn deletes a column after moving its cards next door.
func (m *Manager) DeleteColumn(ctx context.Context, columnID int64) error {
	return m.drag(m.rec.DeleteColumn(ctx, columnID))
}

// DeleteCard deletes a card and renumbers its siblings.
func (m *Manager) DeleteCard(ctx context.Context, columnID, cardID int64) error {
	return m.drag(m.rec.DeleteCard(ctx, columnID, cardID))
}

func (m *Manager) CreateColumn(ctx context.Context, title, color string) error {
	_, err := m.gw.CreateColumn(ctx, title, color)
	return m.finish(ctx, err)
}

func (m *Manager) UpdateColumn(ctx context.Context, columnID int64, patch api.ColumnPatch) error {
	_, err := m.gw.UpdateColumn(ctx, columnID, patch)
	return m.finish(ctx, err)
}

func (m *Manager) CreateCard(ctx context.Context, columnID int64, input api.CreateCardRequest) error {
	_, err := m.gw.CreateCard(ctx, columnID, input)
	return m.finish(ctx, err)
}

// UpdateCard saves a card and closes its edit form on success.
func (m *Manager) UpdateCard(ctx context.Context, columnID, cardID int64, patch api.CardPatch) error {
	_, err := m.gw.UpdateCard(ctx, columnID, cardID, patch)
	if err == nil {
		m.EndEdit(live.CardRef(cardID))
	}
	return m.finish(ctx, err)
}

func (m *Manager) UpdateBoard(ctx context.Context, patch api.BoardPatch) error {
	_, err := m.gw.UpdateBoard(ctx, patch)
	return m.finish(ctx, err)
}

func (m *Manager) InviteMember(ctx context.Context, email string, r model.Role) error {
	_, err := m.gw.InviteMember(ctx, email, r)
	return m.finish(ctx, err)
}

func (m *Manager) UpdateMemberRole(ctx context.Context, memberID int64, r model.Role) error {
	_, err := m.gw.UpdateMemberRole(ctx, memberID, r)
	return m.finish(ctx, err)
}

// LeaveBoard leaves the board and closes the session.
func (m *Manager) LeaveBoard(ctx context.Context) error {
	if err := m.gw.LeaveBoard(ctx); err != nil {
		return m.finish(ctx, err)
	}
	m.Close()
	return nil
}

// DeleteBoard deletes the board and closes the session.
func (m *Manager) DeleteBoard(ctx context.Context) error {
	if err := m.gw.DeleteBoard(ctx); err != nil {
		return m.finish(ctx, err)
	}
	m.Close()
	return nil
}

// BeginEdit marks a card or column as being edited. Change notifications
// for it are counted as pending instead of reloading the board.
func (m *Manager) BeginEdit(ref live.Ref, title, description string) {
	m.listener.Edits().Begin(live.Edit{Ref: ref, Title: title, Description: description})
}

func (m *Manager) EndEdit(ref live.Ref) {
	m.listener.Edits().End(ref)
}

func (m *Manager) Pending() int { return m.listener.Pending() }

func (m *Manager) ApplyPending(ctx context.Context) error {
	return m.listener.ApplyPending(ctx)
}

// SendChat posts a chat line on the board's push channel.
func (m *Manager) SendChat(content string) error {
	m.mu.Lock()
	sub := m.sub
	m.mu.Unlock()
	if sub == nil {
		return live.ErrNotConnected
	}
	return sub.SendChat(content)
}
