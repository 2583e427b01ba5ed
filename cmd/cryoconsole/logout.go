package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cryostatio/cryostat-sub001/pkg/session"
)

func logoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the backend session",
		Long: `End the backend session and forget any remembered credential.

The remembered credential, if any, is used to resume the session
before logging out. Backends that answer with a redirect are followed
once.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context())
		},
	}
	return cmd
}

func runLogout(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := openConsole()
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Start(ctx); err != nil {
		return err
	}
	if c.Session().Get() == session.NoSession {
		info("No active session")
	}
	if err := c.Logout(ctx); err != nil {
		return err
	}
	success("Logged out")
	return nil
}
