/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"github.com/spf13/cobra"
)

// flagConfig is set by the --config flag.
var flagConfig string

var rootCmd = &cobra.Command{
	Use:   "storekit",
	Short: "StoreKit manages entity store backends",
	Long: `StoreKit maps domain entities onto pluggable storage backends.
The CLI loads the backend configuration and verifies connectivity,
so deployments can check their wiring before serving traffic.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"config file (default: ./storekit.yaml or ~/.storekit/storekit.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(checkCmd)
}
