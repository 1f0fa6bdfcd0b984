// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/caden602/NIST-LAC1550/internal/config"
	"github.com/caden602/NIST-LAC1550/protocol/register"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
	table   *register.Table
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lacbus",
	Short: "Talk to LAC1550 laser controllers over the serial register protocol",
	Long: `lacbus reads and writes registers of LAC1550 controllers.

The link to the device is a serial port, a TCP serial server or an in-process
emulator, selected in the config file (transport.type). The same binary can
emulate a device and bridge remote hosts to local devices.

Example usage:
  lacbus read current temperature
  lacbus write current 1500 --dest 0x42
  lacbus send 0x04 10
  lacbus emulate
  lacbus gateway`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile, config.WithFlags(cmd.Flags(), map[string]string{
			"log-level": "log.level",
			"registers": "registers",
			"dest":      "protocol.destination",
			"timeout":   "protocol.timeout",
			"attempts":  "protocol.max_attempts",
			"transport": "transport.type",
		}))
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		setupLogger(cfg.Log, cmd.ErrOrStderr())

		table = nil
		if cfg.Registers != "" {
			table, err = register.LoadTable(cfg.Registers)
			if err != nil {
				return err
			}
			slog.Debug("Loaded register table", "path", cfg.Registers, "registers", table.Len())
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// SIGINT and SIGTERM cancel the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Path to config file")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("registers", "", "Path to a TOML register table")
	pf.Int("dest", 0x42, "Destination node address")
	pf.Duration("timeout", 0, "Per-attempt response timeout")
	pf.Int("attempts", 0, "Send attempts per request")
	pf.StringP("transport", "t", "", "Link type (serial, tcp, local)")
}

// setupLogger installs the default logger. Logs go to w unless a file is
// configured.
func setupLogger(cfg config.LogConfig, w io.Writer) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(w, "Failed to open log file, falling back to stderr: %v\n", err)
			handler = slog.NewTextHandler(w, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}
