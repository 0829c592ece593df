package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"cardtrack/internal/api"
	"cardtrack/internal/gateway"
	"cardtrack/internal/model"

	"github.com/spf13/cobra"
)

func newProfileCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
	}
	cmd.AddCommand(newProfileShowCommand(opts))
	cmd.AddCommand(newProfileEditCommand(opts))
	return cmd
}

func renderProfile(w io.Writer, u *model.User) {
	fmt.Fprintf(w, "%s <%s> (#%d)\n", u.Name, u.Email, u.ID)
	if u.AboutMe != "" {
		fmt.Fprintln(w, u.AboutMe)
	}
	if u.ProfilePicture != "" {
		fmt.Fprintf(w, "picture: %s\n", u.ProfilePicture)
	}
}

// currentUserID resolves the acting user's id, asking the API when the
// token does not carry it.
func (o *RootOptions) currentUserID(ctx context.Context, client *api.Client) (int64, error) {
	s, err := o.currentSession()
	if err != nil {
		return 0, err
	}
	if s.UserID > 0 {
		return s.UserID, nil
	}
	me, err := client.Me(ctx)
	if err != nil {
		return 0, fmt.Errorf("whoami: %s", api.UserMessage(err))
	}
	return me.ID, nil
}

func newProfileShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.currentSession(); err != nil {
				return err
			}
			me, err := opts.client().Me(cmd.Context())
			if err != nil {
				return fmt.Errorf("profile: %s", api.UserMessage(err))
			}
			return opts.output(cmd).Print(me, func(w io.Writer) { renderProfile(w, me) })
		},
	}
}

func newProfileEditCommand(opts *RootOptions) *cobra.Command {
	var name, about, picture string

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Change your name, about text or picture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch api.UserPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("about") {
				patch.AboutMe = &about
			}
			if patch == (api.UserPatch{}) && picture == "" {
				return NewExitError(ExitCommandError, "nothing to change: pass --name, --about or --picture")
			}

			ctx := cmd.Context()
			client := opts.client()
			userID, err := opts.currentUserID(ctx, client)
			if err != nil {
				return err
			}

			var user *model.User
			if patch != (api.UserPatch{}) {
				if user, err = gateway.New(client, nil).UpdateProfile(ctx, userID, patch); err != nil {
					return err
				}
			}
			if picture != "" {
				if user, err = uploadPicture(ctx, client, userID, picture); err != nil {
					return err
				}
			}
			return opts.output(cmd).Print(user, func(w io.Writer) { renderProfile(w, user) })
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	cmd.Flags().StringVar(&about, "about", "", "about me text (up to 255 characters)")
	cmd.Flags().StringVar(&picture, "picture", "", "path of an image to use as profile picture")
	return cmd
}

func uploadPicture(ctx context.Context, client *api.Client, userID int64, path string) (*model.User, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, Message: "cannot read picture", Err: err}
	}
	defer f.Close()
	u, err := client.UploadProfilePicture(ctx, userID, path, f)
	return u, api.Normalize("update profile picture", err)
}
