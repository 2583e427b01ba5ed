package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	consoleerrors "github.com/cryostatio/cryostat-sub001/internal/errors"
	"github.com/cryostatio/cryostat-sub001/pkg/notify"
)

func watchCmd() *cobra.Command {
	var (
		creds      credentialFlags
		statusAddr string
		all        bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream backend notifications",
		Long: `Keep the notification channel open and print every notification
as it arrives.

A credential given on the command line is used to log in; otherwise a
remembered credential is resumed. The channel reconnects on its own
until the backend ends the session.

With --status-addr a local HTTP server exposes:
  /metrics         Prometheus metrics
  /notifications   JSON notification log (?view=unread|actions|status|problems)
  /session         JSON session and connection state
  /healthz         liveness

Examples:
  cryoconsole watch -u admin -p secret
  cryoconsole watch --status-addr=127.0.0.1:9090
  cryoconsole watch --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(creds, statusAddr, all)
		},
	}

	creds.register(cmd)
	cmd.Flags().StringVar(&statusAddr, "status-addr", "", "Listen address of the status server (default from cryoconsole.json)")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Also print hidden status notifications")

	return cmd
}

func runWatch(creds credentialFlags, statusAddr string, all bool) error {
	c, err := openConsole()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := c.Start(ctx); err != nil {
		return err
	}
	if creds.given() {
		if !c.Login(ctx, creds.rawToken(c.Gateway().Method()), creds.remember) {
			return consoleerrors.New("E100")
		}
	}

	printBanner()
	fmt.Println("  watch")
	fmt.Println()
	info("Backend:  %s", c.Config().Backend.URL)
	info("Method:   %s", c.Gateway().Method())
	info("Session:  %s", c.Session().Get())

	if statusAddr == "" {
		statusAddr = c.Config().Status.Address
	}
	if statusAddr != "" {
		srv := &http.Server{
			Addr:              statusAddr,
			Handler:           c.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errorMsg("Status server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
		info("Status:   http://%s", statusAddr)
	}
	fmt.Println()

	sub := c.Notifications().Subscribe()
	defer sub.Close()
	seen := make(map[string]bool)

	for {
		select {
		case <-sigCh:
			fmt.Println("\n\n  Shutting down...")
			return nil

		case ns := <-sub.C():
			printNew(ns, seen, all)
		}
	}
}

// printNew prints the notifications not printed before, oldest first.
func printNew(ns []notify.Notification, seen map[string]bool, all bool) {
	for _, n := range slices.Backward(ns) {
		if seen[n.Key] {
			continue
		}
		seen[n.Key] = true
		if n.Hidden && !all {
			continue
		}
		printNotification(n)
	}
}

func printNotification(n notify.Notification) {
	at := time.UnixMilli(n.Timestamp).Format(time.TimeOnly)
	line := fmt.Sprintf("%s  %s: %s", at, n.Title, n.Message)
	switch n.Variant {
	case notify.VariantSuccess:
		success("%s", line)
	case notify.VariantWarning:
		warn("%s", line)
	case notify.VariantDanger:
		errorMsg("%s", line)
	default:
		info("%s", line)
	}
	slog.Debug("notification printed", "key", n.Key, "category", n.Category)
}
