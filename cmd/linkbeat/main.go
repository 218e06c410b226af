// linkbeat keeps a station on its wireless network and proves the uplink
// with a periodic MQTT heartbeat.
//
// One goroutine runs the connection manager and reports link transitions
// over a narrow word channel. A second goroutine drains that channel,
// drives the status panel and publishes the heartbeat.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnv names the environment variable that overrides the config path.
const configEnv = "LINKBEAT_CONFIG"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. A bare invocation runs the relay.
func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "linkbeat",
		Short:         "Wi-Fi link keeper with an MQTT heartbeat",
		Long:          "linkbeat associates with the configured wireless network, reconnects on loss, and publishes a heartbeat to an MQTT broker once the link is up.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), resolveConfigPath(cfgPath))
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (default $"+configEnv+" or "+defaultConfigPath+")")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the link manager and heartbeat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), resolveConfigPath(cfgPath))
		},
	})
	root.AddCommand(newVersionCmd())
	root.AddCommand(newDecodeCmd())
	root.AddCommand(newCheckCmd(&cfgPath))

	return root
}

// resolveConfigPath returns the configuration file path: the flag if set,
// then LINKBEAT_CONFIG, then the default.
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "linkbeat %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
