// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// registersCmd represents the registers command
var registersCmd = &cobra.Command{
	Use:   "registers",
	Short: "List the register table",
	Long: `List the registers of the loaded register table with their ids, types
and units. --toml prints the table in the register file format.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if asToml, _ := cmd.Flags().GetBool("toml"); asToml {
			return table.Encode(out)
		}

		if table.Len() == 0 {
			fmt.Fprintln(out, infoStyle.Render("No register table loaded (set registers or --registers)"))
			return nil
		}

		header := fmt.Sprintf("%-6s %-24s %-20s %-6s %s", "ID", "Name", "Type", "Unit", "Description")
		fmt.Fprintln(out, headerStyle.Render(header))
		for _, r := range table.Sorted() {
			info := r.Type.Info()
			fmt.Fprintf(out, "%-6s %-24s %-20s %-6s %s\n",
				fmt.Sprintf("%#02x", r.ID), r.Name, r.Type, info.Unit, infoStyle.Render(r.Desc))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registersCmd)
	registersCmd.Flags().Bool("toml", false, "Print the table as TOML")
}
