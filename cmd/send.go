// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/caden602/NIST-LAC1550/exchange"
	"github.com/caden602/NIST-LAC1550/protocol/frame"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <command> [payload]",
	Short: "Send a raw frame and print the reply",
	Long: `Send a frame with an arbitrary command code and hex payload to the
destination device and print the first reply it sends back.

Example usage:
  lacbus send 0x04 10
  lacbus send 0x06 "10 05 dc" --expect 0x01`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		code, err := strconv.ParseUint(args[0], 0, 8)
		if err != nil {
			return fmt.Errorf("invalid command %q: %w", args[0], err)
		}
		var payload []byte
		if len(args) == 2 {
			payload, err = hex.DecodeString(strings.ReplaceAll(args[1], " ", ""))
			if err != nil {
				return fmt.Errorf("invalid hex payload: %w", err)
			}
		}

		var expect []byte
		expectFlags, _ := cmd.Flags().GetStringSlice("expect")
		for _, s := range expectFlags {
			n, err := strconv.ParseUint(s, 0, 8)
			if err != nil {
				return fmt.Errorf("invalid expected command %q: %w", s, err)
			}
			expect = append(expect, byte(n))
		}

		engine, link, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer link.Close()

		res, err := engine.Do(cmd.Context(), exchange.Request{
			Frame: frame.Frame{
				Destination: byte(cfg.Protocol.Destination),
				Source:      engine.Address(),
				Command:     byte(code),
				Payload:     payload,
			},
			Expect: expect,
		})
		var nack *exchange.NackError
		if err != nil && !errors.As(err, &nack) {
			fmt.Fprintln(out, errorStyle.Render(describe(err)))
			return err
		}

		fmt.Fprintln(out, labelStyle.Render("reply"), valueStyle.Render(res.Frame.String()), infoStyle.Render(fmt.Sprintf("(%d attempts)", res.Attempts)))
		if nack != nil {
			fmt.Fprintln(out, errorStyle.Render(describe(nack)))
			return nack
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringSlice("expect", nil, "Reply command codes to wait for (default any)")
}
