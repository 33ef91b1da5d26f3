package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/muhammadolammi/jobmatch/internal/authsession"
	"github.com/spf13/cobra"
)

var errAuthDisabled = errors.New("REDIS_URL is not set; authentication is disabled")

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or change the stored sign-in session",
	}
	cmd.AddCommand(
		newSessionStatusCmd(a),
		newSessionLoginCmd(a),
		newSessionLogoutCmd(a),
	)
	return cmd
}

func newSessionStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.close()
			if err := a.open(cmd.Context()); err != nil {
				return err
			}

			st := a.manager.State()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "status: %s\n", st.Status)
			switch {
			case !st.Enabled:
				fmt.Fprintln(out, "auth: disabled")
			case st.Session == nil:
				fmt.Fprintln(out, "signed in: no")
			default:
				fmt.Fprintln(out, "signed in: yes")
				if st.User != nil {
					fmt.Fprintf(out, "user: %s\n", st.User.Email)
				}
				if !st.Session.ExpiresAt.IsZero() {
					fmt.Fprintf(out, "expires: %s\n", st.Session.ExpiresAt.Format(time.RFC3339))
				}
			}
			return nil
		},
	}
}

func newSessionLoginCmd(a *app) *cobra.Command {
	var (
		accessToken  string
		refreshToken string
		email        string
		ttl          time.Duration
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token issued by the auth provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.close()
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			if a.store == nil {
				return errAuthDisabled
			}

			s := &authsession.Session{
				AccessToken:  accessToken,
				RefreshToken: refreshToken,
				User:         &authsession.User{ID: uuid.NewString(), Email: email},
			}
			if ttl > 0 {
				s.ExpiresAt = time.Now().Add(ttl)
			}
			if err := a.store.SignIn(cmd.Context(), s); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed in")
			return nil
		},
	}

	cmd.Flags().StringVar(&accessToken, "access-token", "", "bearer token for the backend")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "refresh token")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "session lifetime (default 7 days)")
	_ = cmd.MarkFlagRequired("access-token")
	return cmd
}

func newSessionLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.close()
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			if a.store == nil {
				return errAuthDisabled
			}

			if err := a.store.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}
