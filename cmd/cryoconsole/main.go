package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cryostatio/cryostat-sub001/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┬─┐┬ ┬┌─┐┌─┐┌─┐┌┐┌┌─┐┌─┐┬  ┌─┐
  │  ├┬┘└┬┘│ ││  │ ││││└─┐│ ││  ├┤
  └─┘┴└─ ┴ └─┘└─┘└─┘┘└┘└─┘└─┘┴─┘└─┘
`

// global flags
var (
	configPath string
	backendURL string
	logLevel   string
	noColor    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cryoconsole",
		Short: "Session and notification client for a Cryostat backend",
		Long: `cryoconsole authenticates against a Cryostat backend and keeps the
push notification channel open while a session is active.

  • Basic, Bearer and credential-less backends
  • Remembered credentials in a local bbolt file
  • Live notifications with automatic reconnect
  • Prometheus metrics and a JSON status view`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				errors.DisableColors()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to cryoconsole.json (default: ./cryoconsole.json if present)")
	flags.StringVarP(&backendURL, "backend", "b", "", "Backend URL (overrides the config file)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		loginCmd(),
		logoutCmd(),
		watchCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

// printBanner prints the ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
