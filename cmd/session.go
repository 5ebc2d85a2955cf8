package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/employee-portal/internal/session"
	"github.com/spf13/cobra"
)

var (
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and keep the session on this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginPassword == "" {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read password: %w", err)
			}
			loginPassword = strings.TrimRight(line, "\r\n")
		}

		return withDeps(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			user, err := deps.Sessions.Login(ctx, session.Credentials{Username: loginUsername, Password: loginPassword})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.Username, user.RoleLabel())
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			if err := deps.Sessions.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			user, err := deps.Sessions.RequireUser()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := newTable(out, "FIELD", "VALUE")
			row(tw, "id", user.ID)
			row(tw, "username", user.Username)
			row(tw, "role", user.RoleLabel())
			row(tw, "wallet", user.WalletAddress)
			if url := user.AvatarURL(deps.Config.API.ImageGateway()); url != "" {
				row(tw, "avatar", url)
			}
			if exp, ok := deps.Sessions.TokenExpiry(); ok {
				row(tw, "token expires", exp.Local().Format(time.RFC1123))
			}
			return tw.Flush()
		})
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "account name")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "password; read from stdin when omitted")
	_ = loginCmd.MarkFlagRequired("username")
}
