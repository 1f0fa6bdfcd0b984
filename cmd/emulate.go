// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/caden602/NIST-LAC1550/exchange"
	"github.com/caden602/NIST-LAC1550/internal/config"
	"github.com/caden602/NIST-LAC1550/internal/emulator"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// emulateCmd represents the emulate command
var emulateCmd = &cobra.Command{
	Use:   "emulate",
	Short: "Emulate a device on serial or TCP links",
	Long: `Serve an emulated LAC1550 register file to hosts connecting on the
upstreams configured under emulator.upstreams, or on the TCP address given
with --listen. Register values persist according to emulator.persistence.

Example usage:
  lacbus emulate --listen 127.0.0.1:4001
  lacbus emulate --config bench.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		upstreams := cfg.Emulator.Upstreams
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			upstreams = append(upstreams, config.UpstreamConfig{Type: "tcp", Tcp: config.TcpConfig{Address: listen}})
		}
		if len(upstreams) == 0 {
			return errors.New("no emulator upstreams configured")
		}

		codec, err := exchange.NewCodec(cfg.Protocol)
		if err != nil {
			return err
		}

		dev := emulator.Open(byte(cfg.Emulator.Address), cfg.Emulator.Persistence, table)
		dev.Commands = exchange.Commands(cfg.Protocol)
		defer dev.Close()

		g, gctx := errgroup.WithContext(ctx)
		for i, uc := range upstreams {
			us, err := newUpstream(uc, codec)
			if err != nil {
				return fmt.Errorf("emulator upstream %d: %w", i, err)
			}
			g.Go(func() error {
				return us.Start(gctx, dev.Handle)
			})
		}

		slog.Info("Emulator running", "address", fmt.Sprintf("%#02x", dev.Address), "upstreams", len(upstreams), "registers", table.Len())
		err = g.Wait()
		slog.Info("Emulator stopped")
		return err
	},
}

func init() {
	rootCmd.AddCommand(emulateCmd)
	emulateCmd.Flags().String("listen", "", "Also serve on this TCP address")
}
