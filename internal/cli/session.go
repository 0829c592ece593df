package cli

import (
	"context"
	"fmt"
	"strconv"

	"cardtrack/internal/api"
	"cardtrack/internal/auth"
	"cardtrack/internal/model"
	"cardtrack/internal/session"
)

func (o *RootOptions) client() *api.Client {
	return api.NewClient(o.Config.APIURL, api.WithTimeout(o.Config.Timeout), api.WithToken(o.Config.Token))
}

// currentSession derives the acting user from the configured token.
func (o *RootOptions) currentSession() (model.Session, error) {
	if o.Config.Token == "" {
		return model.Session{}, NewExitError(ExitCommandError, "not logged in: set CARDTRACK_TOKEN (see cardtrack login)")
	}
	s, err := auth.SessionFromToken(o.Config.Token)
	if err != nil {
		return model.Session{}, &ExitError{Code: ExitCommandError, Message: "unusable CARDTRACK_TOKEN", Err: err}
	}
	if o.Config.Email != "" {
		s.Email = o.Config.Email
	}
	return s, nil
}

// openBoard loads a board into a session manager. Live updates stay off
// unless configure sets a WSURL.
func (o *RootOptions) openBoard(ctx context.Context, boardID int64, configure ...func(*session.Deps)) (*session.Manager, error) {
	s, err := o.currentSession()
	if err != nil {
		return nil, err
	}
	deps := session.Deps{
		Client:        o.client(),
		Session:       s,
		BoardID:       boardID,
		ReconnectBase: o.Config.ReconnectBase,
		ReconnectMax:  o.Config.ReconnectMax,
	}
	for _, fn := range configure {
		fn(&deps)
	}
	m := session.New(deps)
	if err := m.Open(ctx); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid %s id %q", kind, arg))
	}
	return id, nil
}

func parseIDs(kinds []string, args []string) ([]int64, error) {
	ids := make([]int64, len(kinds))
	for i, kind := range kinds {
		id, err := parseID(kind, args[i])
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// columnOfCard finds the column currently holding cardID.
func columnOfCard(m *session.Manager, cardID int64) (int64, error) {
	for _, col := range m.Store().Columns() {
		if model.IndexOfCard(col.Cards, cardID) >= 0 {
			return col.ID, nil
		}
	}
	return 0, NewExitError(ExitCommandError, fmt.Sprintf("card %d is not on this board", cardID))
}
