package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/icebreaker/internal/auth"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in to X in a browser window and keep the session for headless runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			m := auth.NewManager(auth.NewCookieStore(st), a.logger)
			ctx := cmd.Context()
			if m.IsAuthenticated(ctx) {
				fmt.Fprintln(cmd.OutOrStdout(), "Already logged in. Run logout first to switch accounts.")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Log in to X in the browser window that opens...")
			if err := m.Login(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored X session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := auth.NewManager(auth.NewCookieStore(st), a.logger).Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}
