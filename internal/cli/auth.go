package cli

import (
	"fmt"
	"io"

	"cardtrack/internal/api"

	"github.com/spf13/cobra"
)

func newLoginCommand(opts *RootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print a session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().Login(cmd.Context(), api.LoginRequest{Email: email, Password: password})
			if err != nil {
				return fmt.Errorf("login: %s", api.UserMessage(err))
			}
			return opts.output(cmd).Print(resp, func(w io.Writer) {
				fmt.Fprintf(w, "Logged in as %s <%s>\n", resp.Name, resp.Email)
				fmt.Fprintf(w, "export CARDTRACK_TOKEN=%s\n", resp.Token)
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newRegisterCommand(opts *RootOptions) *cobra.Command {
	var req api.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := opts.client().Register(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("register: %s", api.UserMessage(err))
			}
			return opts.output(cmd).Print(user, func(w io.Writer) {
				fmt.Fprintf(w, "Registered %s <%s> (#%d)\n", user.Name, user.Email, user.ID)
			})
		},
	}

	cmd.Flags().StringVarP(&req.Name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newWhoamiCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user the configured token belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.currentSession(); err != nil {
				return err
			}
			user, err := opts.client().Me(cmd.Context())
			if err != nil {
				return fmt.Errorf("whoami: %s", api.UserMessage(err))
			}
			return opts.output(cmd).Print(user, func(w io.Writer) {
				fmt.Fprintf(w, "%s <%s> (#%d)\n", user.Name, user.Email, user.ID)
			})
		},
	}
}
