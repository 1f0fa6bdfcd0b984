// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import "github.com/caden602/NIST-LAC1550/cmd"

func main() {
	cmd.Execute()
}
