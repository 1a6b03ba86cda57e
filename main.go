// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Passmaster.
//
// Usage:
//
//	go run . [flags]
//	./passmaster [flags]
//
// Without a subcommand the vault is unlocked and the browser opens. See
// --help for the other commands.
package main

import (
	"fmt"
	"os"

	"github.com/toeirei/passmaster/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
