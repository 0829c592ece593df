package cli

import (
	"fmt"
	"io"

	"cardtrack/internal/model"

	"github.com/spf13/cobra"
)

func newMemberCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage who can see and edit a board",
	}
	cmd.AddCommand(newMemberListCommand(opts))
	cmd.AddCommand(newMemberInviteCommand(opts))
	cmd.AddCommand(newMemberRoleCommand(opts))
	cmd.AddCommand(newMemberLeaveCommand(opts))
	return cmd
}

func renderMembers(w io.Writer, members []model.Member) {
	for _, m := range members {
		name := m.UserName
		if name == "" {
			name = fmt.Sprintf("user #%d", m.UserID)
		}
		fmt.Fprintf(w, "#%d\t%s\t%s\t%s\n", m.ID, m.Role, name, m.UserEmail)
	}
}

func newMemberListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <board>",
		Short: "List board members and their roles",
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
			members := m.Store().Members()
			if members == nil {
				members = []model.Member{}
			}
			return opts.output(cmd).Print(members, func(w io.Writer) { renderMembers(w, members) })
		},
	}
}

func newMemberInviteCommand(opts *RootOptions) *cobra.Command {
	var r string

	cmd := &cobra.Command{
		Use:   "invite <board> <email>",
		Short: "Invite a registered user to a board",
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
			if err := m.InviteMember(cmd.Context(), args[1], model.Role(r)); err != nil {
				return err
			}
			return opts.output(cmd).Done(fmt.Sprintf("Invited %s", args[1]))
		},
	}

	cmd.Flags().StringVarP(&r, "role", "r", string(model.RoleViewer), "viewer, editor or owner")
	return cmd
}

func newMemberRoleCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "role <board> <member> <role>",
		Short: "Change a member's role",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs([]string{"board", "member"}, args)
			if err != nil {
				return err
			}
			next := model.Role(args[2])
			if !next.Valid() {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid role %q: must be viewer, editor or owner", args[2]))
			}
			m, err := opts.openBoard(cmd.Context(), ids[0])
			if err != nil {
				return err
			}
			defer m.Close()
			if err := m.UpdateMemberRole(cmd.Context(), ids[1], next); err != nil {
				return err
			}
			return opts.output(cmd).Done(fmt.Sprintf("Member #%d is now %s", ids[1], next))
		},
	}
}

func newMemberLeaveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "leave <board>",
		Short: "Leave a board",
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
			if err := m.LeaveBoard(cmd.Context()); err != nil {
				return err
			}
			return opts.output(cmd).Done(fmt.Sprintf("Left board #%d", boardID))
		},
	}
}
