package cli

import (
	"fmt"
	"io"
	"strings"

	"cardtrack/internal/api"
	"cardtrack/internal/gateway"
	"cardtrack/internal/model"

	"github.com/spf13/cobra"
)

// DefaultColumns are created with every new board unless --column is given.
var DefaultColumns = []string{"To Do", "In Progress", "Done"}

func newBoardsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boards",
		Short: "List, create and delete boards",
	}
	cmd.AddCommand(newBoardsListCommand(opts))
	cmd.AddCommand(newBoardsCreateCommand(opts))
	cmd.AddCommand(newBoardsDeleteCommand(opts))
	return cmd
}

func newBoardsListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the boards you are a member of",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.currentSession(); err != nil {
				return err
			}
			boards, err := opts.client().ListBoards(cmd.Context())
			if err != nil {
				return fmt.Errorf("list boards: %s", api.UserMessage(err))
			}
			if boards == nil {
				boards = []model.Board{}
			}
			return opts.output(cmd).Print(boards, func(w io.Writer) {
				if len(boards) == 0 {
					fmt.Fprintln(w, "No boards yet.")
					return
				}
				for _, b := range boards {
					fmt.Fprintf(w, "#%d\t%s\n", b.ID, b.Title)
				}
			})
		},
	}
}

type createdBoard struct {
	Board   *model.Board   `json:"board"`
	Columns []model.Column `json:"columns"`
}

func newBoardsCreateCommand(opts *RootOptions) *cobra.Command {
	var description string
	var columns []string

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a board with its initial columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.currentSession(); err != nil {
				return err
			}
			gw := gateway.New(opts.client(), nil)
			b, cols, err := gw.CreateBoard(cmd.Context(), args[0], description, columns...)
			if err != nil {
				return err
			}
			res := createdBoard{Board: b, Columns: cols}
			return opts.output(cmd).Print(res, func(w io.Writer) {
				titles := make([]string, len(cols))
				for i, c := range cols {
					titles[i] = c.Title
				}
				fmt.Fprintf(w, "Created board #%d %s [%s]\n", b.ID, b.Title, strings.Join(titles, ", "))
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "board description")
	cmd.Flags().StringSliceVarP(&columns, "column", "c", DefaultColumns, "initial column (repeatable)")
	return cmd
}

func newBoardsDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <board>",
		Short: "Delete a board you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := parseID("board", args[0])
			if err != nil {
				return err
			}
			m, err := opts.openBoard(cmd.Context(), boardID)
			if err != nil {
				return err
			}
			defer m.Close()
			if err := m.DeleteBoard(cmd.Context()); err != nil {
				return err
			}
			return opts.output(cmd).Done(fmt.Sprintf("Deleted board #%d", boardID))
		},
	}
}

type boardView struct {
	Board   model.Board    `json:"board"`
	Role    model.Role     `json:"role"`
	Columns []model.Column `json:"columns"`
	Members []model.Member `json:"members"`
}

func newBoardCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Inspect a board",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <board>",
		Short: "Show a board with its columns, cards and members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := parseID("board", args[0])
			if err != nil {
				return err
			}
			m, err := opts.openBoard(cmd.Context(), boardID)
			if err != nil {
				return err
			}
			defer m.Close()
			store := m.Store()
			view := boardView{Board: store.Board(), Role: store.Role(), Columns: store.Columns(), Members: store.Members()}
			return opts.output(cmd).Print(view, func(w io.Writer) { renderBoard(w, view) })
		},
	})
	return cmd
}

func renderBoard(w io.Writer, v boardView) {
	r := string(v.Role)
	if r == "" {
		r = "unknown"
	}
	fmt.Fprintf(w, "%s (#%d) role: %s\n", v.Board.Title, v.Board.ID, r)
	if v.Board.Description != "" {
		fmt.Fprintln(w, v.Board.Description)
	}
	for _, col := range v.Columns {
		fmt.Fprintf(w, "\n[%s] #%d\n", col.Title, col.ID)
		if len(col.Cards) == 0 {
			fmt.Fprintln(w, "  (empty)")
		}
		for _, card := range col.Cards {
			fmt.Fprintf(w, "  %d. #%d %s", card.Position, card.ID, card.Title)
			if card.Priority != "" {
				fmt.Fprintf(w, " [%s]", card.Priority)
			}
			if card.DueDate != nil {
				fmt.Fprintf(w, " due %s", *card.DueDate)
			}
			if items, ok := model.ParseChecklist(card.Description); ok {
				fmt.Fprintf(w, " [%d/%d]", checkedCount(items), len(items))
			}
			if card.IsCompleted {
				fmt.Fprint(w, " done")
			}
			fmt.Fprintln(w)
		}
	}
	if len(v.Members) > 0 {
		fmt.Fprintln(w)
		renderMembers(w, v.Members)
	}
}

func checkedCount(items []model.ChecklistItem) int {
	n := 0
	for _, it := range items {
		if it.Checked {
			n++
		}
	}
	return n
}
