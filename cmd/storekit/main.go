/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package main provides the storekit CLI for inspecting configured
// store backends.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
