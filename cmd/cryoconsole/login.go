package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cryostatio/cryostat-sub001/internal/errors"
	"github.com/cryostatio/cryostat-sub001/pkg/auth"
	"github.com/cryostatio/cryostat-sub001/pkg/console"
)

// credentialFlags are shared by login and watch.
type credentialFlags struct {
	username string
	password string
	token    string
	remember bool
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "Username for Basic auth")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "Password for Basic auth (default: $CRYOCONSOLE_PASSWORD)")
	cmd.Flags().StringVarP(&f.token, "token", "t", "", "Bearer token (default: $CRYOCONSOLE_TOKEN)")
	cmd.Flags().BoolVarP(&f.remember, "remember", "r", false, "Remember the credential in credentials.path")
}

func (f *credentialFlags) given() bool {
	return f.username != "" || f.token != "" || os.Getenv("CRYOCONSOLE_TOKEN") != ""
}

// rawToken returns the credential in the form the method expects.
func (f *credentialFlags) rawToken(method auth.Method) string {
	switch method {
	case auth.MethodBearer:
		if f.token != "" {
			return f.token
		}
		return os.Getenv("CRYOCONSOLE_TOKEN")
	case auth.MethodBasic:
		password := f.password
		if password == "" {
			password = os.Getenv("CRYOCONSOLE_PASSWORD")
		}
		return console.BasicToken(f.username, password)
	default:
		return ""
	}
}

func loginCmd() *cobra.Command {
	var (
		creds   credentialFlags
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the backend",
		Long: `Authenticate against the backend and wait until the notification
channel is open.

The backend's auth method is probed first. Basic backends need
--username and a password, Bearer backends a token. With --remember
and credentials.path set, later commands reuse the credential.

Examples:
  cryoconsole login -u admin -p secret --remember
  CRYOCONSOLE_TOKEN=ey... cryoconsole login
  cryoconsole login --backend https://cryostat:8181`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), creds, timeout)
		},
	}

	creds.register(cmd)
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "How long to wait for the notification channel")

	return cmd
}

func runLogin(ctx context.Context, creds credentialFlags, timeout time.Duration) error {
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
	method := c.Gateway().Method()
	info("Auth method: %s", method)

	if !c.Login(ctx, creds.rawToken(method), creds.remember) {
		return errors.New("E100").WithDetail("The backend rejected the credential for " + c.Config().Backend.URL)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := c.WaitReady(waitCtx); err != nil {
		warn("Logged in, but the notification channel did not open within %s", timeout)
		return nil
	}

	if user := c.Gateway().Username(); user != "" {
		success("Logged in as %s", user)
	} else {
		success("Logged in")
	}
	if creds.remember && c.Config().Credentials.Path == "" {
		warn("--remember has no effect without credentials.path")
	}
	return nil
}
