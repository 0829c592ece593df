package cli

import (
	"fmt"

	"cardtrack/internal/api"
	"cardtrack/internal/reorder"
	"cardtrack/internal/role"

	"github.com/spf13/cobra"
)

func newCardCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Add, edit, delete and move cards",
	}
	cmd.AddCommand(newCardAddCommand(opts))
	cmd.AddCommand(newCardEditCommand(opts))
	cmd.AddCommand(newCardDeleteCommand(opts))
	cmd.AddCommand(newCardMoveCommand(opts))
	return cmd
}

func newCardAddCommand(opts *RootOptions) *cobra.Command {
	var req api.CreateCardRequest
	var due string

	cmd := &cobra.Command{
		Use:   "add <board> <column> <title>",
		Short: "Append a card to a column",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs([]string{"board", "column"}, args)
			if err != nil {
				return err
			}
			req.Title = args[2]
			if due != "" {
				req.DueDate = &due
			}
			m, err := opts.openBoard(cmd.Context(), ids[0])
			if err != nil {
				return err
			}
			defer m.Close()
			if err := m.CreateCard(cmd.Context(), ids[1], req); err != nil {
				return err
			}
			return opts.output(cmd).Done(fmt.Sprintf("Added card %q", req.Title))
		},
	}

	cmd.Flags().StringVarP(&req.Description, "description", "d", "", "card description")
	cmd.Flags().StringVar(&req.Priority, "priority", "", "low, medium or high (default medium)")
	cmd.Flags().StringVar(&due, "due", "", "due date as YYYY-MM-DD")
	return cmd
}

func newCardEditCommand(opts *RootOptions) *cobra.Command {
	var title, description, priority, due string
	var completed bool

	cmd := &cobra.Command{
		Use:   "edit <board> <card>",
		Short: "Change a card's fields",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs([]string{"board", "card"}, args)
			if err != nil {
				return err
			}
			var patch api.CardPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("priority") {
				patch.Priority = &priority
			}
			if flags.Changed("due") {
				patch.DueDate = &due
			}
			if flags.Changed("completed") {
				patch.IsCompleted = &completed
			}
			if patch == (api.CardPatch{}) {
				return NewExitError(ExitCommandError, "nothing to change")
			}
			m, err := opts.openBoard(cmd.Context(), ids[0])
			if err != nil {
				return err
			}
			defer m.Close()
			columnID, err := columnOfCard(m, ids[1])
			if err != nil {
				return err
			}
			if err := m.UpdateCard(cmd.Context(), columnID, ids[1], patch); err != nil {
				return err
			}
			return opts.output(cmd).Done(fmt.Sprintf("Updated card #%d", ids[1]))
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium or high")
	cmd.Flags().StringVar(&due, "due", "", "due date as YYYY-MM-DD")
	cmd.Flags().BoolVar(&completed, "completed", false, "mark the card completed")
	return cmd
}

func newCardDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <board> <card>",
		Short: "Delete a card",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs([]string{"board", "card"}, args)
			if err != nil {
				return err
			}
			m, err := opts.openBoard(cmd.Context(), ids[0])
			if err != nil {
				return err
			}
			defer m.Close()
			if !m.CanMutate() {
				return fmt.Errorf("delete card: %w", role.ErrPermissionDenied)
			}
			columnID, err := columnOfCard(m, ids[1])
			if err != nil {
				return err
			}
			if err := m.DeleteCard(cmd.Context(), columnID, ids[1]); err != nil {
				return err
			}
			return opts.output(cmd).Done(fmt.Sprintf("Deleted card #%d", ids[1]))
		},
	}
}

func newCardMoveCommand(opts *RootOptions) *cobra.Command {
	var before int64

	cmd := &cobra.Command{
		Use:   "move <board> <card> <column>",
		Short: "Drag a card to the end of a column, or before another card with --before",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs([]string{"board", "card", "column"}, args)
			if err != nil {
				return err
			}
			drop := reorder.DropAtEnd()
			if before > 0 {
				drop = reorder.DropOnCard(before)
			}
			m, err := opts.openBoard(cmd.Context(), ids[0])
			if err != nil {
				return err
			}
			defer m.Close()
			if !m.CanMutate() {
				return fmt.Errorf("move card: %w", role.ErrPermissionDenied)
			}
			sourceID, err := columnOfCard(m, ids[1])
			if err != nil {
				return err
			}
			if err := m.MoveCard(cmd.Context(), sourceID, ids[1], ids[2], drop); err != nil {
				return err
			}
			return opts.output(cmd).Done(fmt.Sprintf("Moved card #%d", ids[1]))
		},
	}

	cmd.Flags().Int64Var(&before, "before", 0, "drop onto this card instead of the column's end")
	return cmd
}
