package cli

import (
	"fmt"

	"cardtrack/internal/api"
	"cardtrack/internal/role"

	"github.com/spf13/cobra"
)

func newColumnCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "column",
		Short: "Add, edit, delete and reorder columns",
	}
	cmd.AddCommand(newColumnAddCommand(opts))
	cmd.AddCommand(newColumnEditCommand(opts))
	cmd.AddCommand(newColumnDeleteCommand(opts))
	cmd.AddCommand(newColumnMoveCommand(opts))
	return cmd
}

func newColumnAddCommand(opts *RootOptions) *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "add <board> <title>",
		Short: "Append a column to a board",
		Args:  cobra.ExactArgs(2),
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
			if err := m.CreateColumn(cmd.Context(), args[1], color); err != nil {
				return err
			}
			return opts.output(cmd).Done(fmt.Sprintf("Added column %q", args[1]))
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "header color such as #007ACF")
	return cmd
}

func newColumnEditCommand(opts *RootOptions) *cobra.Command {
	var title, color string

	cmd := &cobra.Command{
		Use:   "edit <board> <column>",
		Short: "Rename or recolor a column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs([]string{"board", "column"}, args)
			if err != nil {
				return err
			}
			var patch api.ColumnPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("color") {
				patch.Color = &color
			}
			if patch.Title == nil && patch.Color == nil {
				return NewExitError(ExitCommandError, "nothing to change: pass --title or --color")
			}
			m, err := opts.openBoard(cmd.Context(), ids[0])
			if err != nil {
				return err
			}
			defer m.Close()
			if err := m.UpdateColumn(cmd.Context(), ids[1], patch); err != nil {
				return err
			}
			return opts.output(cmd).Done(fmt.Sprintf("Updated column #%d", ids[1]))
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&color, "color", "", "new header color")
	return cmd
}

func newColumnDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <board> <column>",
		Short: "Delete a column, moving its cards to the neighbouring column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs([]string{"board", "column"}, args)
			if err != nil {
				return err
			}
			m, err := opts.openBoard(cmd.Context(), ids[0])
			if err != nil {
				return err
			}
			defer m.Close()
			if !m.CanMutate() {
				return fmt.Errorf("delete column: %w", role.ErrPermissionDenied)
			}
			if err := m.DeleteColumn(cmd.Context(), ids[1]); err != nil {
				return err
			}
			return opts.output(cmd).Done(fmt.Sprintf("Deleted column #%d", ids[1]))
		},
	}
}

func newColumnMoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <board> <column> <onto-column>",
		Short: "Drag a column onto another column's slot",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs([]string{"board", "column", "target column"}, args)
			if err != nil {
				return err
			}
			m, err := opts.openBoard(cmd.Context(), ids[0])
			if err != nil {
				return err
			}
			defer m.Close()
			if !m.CanMutate() {
				return fmt.Errorf("move column: %w", role.ErrPermissionDenied)
			}
			if err := m.ReorderColumns(cmd.Context(), ids[1], ids[2]); err != nil {
				return err
			}
			return opts.output(cmd).Done(fmt.Sprintf("Moved column #%d", ids[1]))
		},
	}
}
