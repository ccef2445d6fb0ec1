// balltrack - tennis ball tracking for swing overlays
//
// Replays a frame sequence through the color or neural grid tracker and
// streams positions to overlay renderers over websocket.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-balltrack/internal/config"
	"github.com/teslashibe/go-balltrack/internal/log"
	"github.com/teslashibe/go-balltrack/pkg/debug"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := NewCmd().ExecuteContext(ctx); err != nil {
		log.Error("balltrack failed", "error", err)
		os.Exit(1)
	}
}

// NewCmd builds the command tree.
func NewCmd() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "balltrack [command] [flags]",
		Short:         "balltrack tracks a tennis ball and streams it to overlays",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "`<path>` to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("debug", false, "enable verbose debug logging")
	rootCmd.PersistentFlags().Bool("debug-tracking", false, "log every color match, gate rejection and inference")

	rootCmd.AddCommand(
		newServeCmd(),
		newDecodeCmd(),
		newStatusCmd(),
		newBackendCmd(),
		newResetCmd(),
		newWatchCmd(),
	)
	return rootCmd
}

// loadConfig reads the config file, applies flag overrides and initializes
// logging.
func loadConfig(cmd *cobra.Command) (config.File, error) {
	path, _ := cmd.Flags().GetString("config")
	f, err := config.Load(path)
	if err != nil {
		return f, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		f.Log.Level = level
	}
	debug.Enabled, _ = cmd.Flags().GetBool("debug")
	debug.Tracking, _ = cmd.Flags().GetBool("debug-tracking")
	if debug.Enabled || debug.Tracking {
		f.Log.Level = "debug"
	}

	log.InitWithOptions(f.LogOptions())
	return f, nil
}
