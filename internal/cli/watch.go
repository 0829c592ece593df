package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"cardtrack/internal/board"
	"cardtrack/internal/live"
	"cardtrack/internal/session"

	"github.com/spf13/cobra"
)

// watchEvent is one line of watch output.
type watchEvent struct {
	Type    string            `json:"type"`
	State   string            `json:"state,omitempty"`
	Columns int               `json:"columns,omitempty"`
	Cards   int               `json:"cards,omitempty"`
	Chat    *live.ChatMessage `json:"chat,omitempty"`
}

func newWatchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <board>",
		Short: "Follow a board live; lines typed on stdin are sent to the board chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := parseID("board", args[0])
			if err != nil {
				return err
			}
			if opts.Config.WSURL == "" {
				return NewExitError(ExitCommandError, "no push channel configured: set CARDTRACK_WS_URL")
			}
			ctx := cmd.Context()
			out := opts.output(cmd)

			var mu sync.Mutex
			emit := func(ev watchEvent) {
				mu.Lock()
				defer mu.Unlock()
				if err := out.Print(ev, func(w io.Writer) { renderEvent(w, ev) }); err != nil {
					slog.Warn("write watch output", "error", err)
				}
			}
			m, err := opts.openBoard(ctx, boardID, func(d *session.Deps) {
				d.WSURL = opts.Config.WSURL
				d.OnState = func(s live.State) {
					emit(watchEvent{Type: "state", State: s.String()})
				}
				d.OnReload = func(store *board.Store) {
					emit(boardSummary(store))
				}
				d.OnChat = func(msg live.ChatMessage) {
					emit(watchEvent{Type: "chat", Chat: &msg})
				}
			})
			if err != nil {
				return err
			}
			defer m.Close()
			emit(boardSummary(m.Store()))

			relayChat(ctx, cmd.InOrStdin(), m.SendChat)
			return nil
		},
	}
}

// relayChat sends every non-empty line read from r to the board chat
// until ctx is done. A closable reader other than stdin is closed then, so
// the scanning goroutine exits too.
func relayChat(ctx context.Context, r io.Reader, send func(string) error) {
	if c, ok := r.(io.Closer); ok && r != os.Stdin {
		context.AfterFunc(ctx, func() { _ = c.Close() })
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if err := send(line); err != nil {
				slog.Warn("chat message not sent", "error", err)
			}
		}
	}
}

func boardSummary(store *board.Store) watchEvent {
	cols := store.Columns()
	ev := watchEvent{Type: "board", Columns: len(cols)}
	for _, c := range cols {
		ev.Cards += len(c.Cards)
	}
	return ev
}

func renderEvent(w io.Writer, ev watchEvent) {
	switch ev.Type {
	case "state":
		fmt.Fprintf(w, "* %s\n", ev.State)
	case "chat":
		fmt.Fprintf(w, "<user #%d> %s\n", ev.Chat.User, ev.Chat.Content)
	default:
		fmt.Fprintf(w, "board: %d columns, %d cards\n", ev.Columns, ev.Cards)
	}
}
