// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/caden602/NIST-LAC1550/protocol/register"
	"github.com/spf13/cobra"
)

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write <register> <value>",
	Short: "Write a register on a device",
	Long: `Write a value to a register of the destination device and wait for
the acknowledgement.

The value is parsed according to the type of the register: integers in any
base, true/false, YYYY-MM-DD dates, HH:MM:SS times, text, or hex for raw
registers. --hex always takes the wire bytes in hex.

Example usage:
  lacbus write current 1500
  lacbus write date 2026-10-16
  lacbus write 0x30 0102ff --hex`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		hexMode, _ := cmd.Flags().GetBool("hex")
		out := cmd.OutOrStdout()

		engine, link, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer link.Close()

		r, err := engine.Resolve(args[0])
		if err != nil {
			return err
		}

		var v register.Value
		if hexMode {
			b, err := hex.DecodeString(strings.ReplaceAll(args[1], " ", ""))
			if err != nil {
				return fmt.Errorf("invalid hex value: %w", err)
			}
			v = register.Value{Type: r.Type, Raw: b}
		} else {
			v, err = register.Parse(r.Type, args[1])
			if err != nil {
				return err
			}
		}

		if err := engine.WriteRegister(cmd.Context(), byte(cfg.Protocol.Destination), r.ID, v); err != nil {
			fmt.Fprintln(out, labelStyle.Render(r.String()), errorStyle.Render(describe(err)))
			return err
		}
		fmt.Fprintln(out, labelStyle.Render(r.String()), successStyle.Render("OK"), infoStyle.Render(v.String()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(writeCmd)
	writeCmd.Flags().Bool("hex", false, "Value is given as hex bytes")
}
