// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read <register>...",
	Short: "Read registers from a device",
	Long: `Read one or more registers from the destination device.

Registers are given by name from the register table or by id. Values are
decoded according to the type of the register; without a register table
they are printed as hex.

Example usage:
  lacbus read current
  lacbus read 0x10 0x11 --raw`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")
		out := cmd.OutOrStdout()

		engine, link, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer link.Close()

		dst := byte(cfg.Protocol.Destination)
		var errs []error
		for _, arg := range args {
			r, err := engine.Resolve(arg)
			if err != nil {
				errs = append(errs, err)
				fmt.Fprintln(out, errorStyle.Render(err.Error()))
				continue
			}

			v, err := engine.ReadRegister(cmd.Context(), dst, r.ID)
			if err != nil {
				errs = append(errs, err)
				fmt.Fprintln(out, labelStyle.Render(r.String()), errorStyle.Render(describe(err)))
				continue
			}

			text := v.String()
			if raw {
				text = hex.EncodeToString(v.Raw)
			}
			fmt.Fprintln(out, labelStyle.Render(r.String()), valueStyle.Render(text))
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().Bool("raw", false, "Print values as hex")
}
