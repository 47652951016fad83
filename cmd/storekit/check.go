/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/suparena/storekit"
)

const checkTimeout = 10 * time.Second

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configured backend is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(flagConfig)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
		defer cancel()

		h, err := storekit.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open %s backend: %w", cfg.Backend, err)
		}
		defer h.Close()

		if err := h.Ping(ctx); err != nil {
			return fmt.Errorf("ping %s backend: %w", cfg.Backend, err)
		}
		fmt.Printf("%s backend is reachable\n", h.Backend())
		return nil
	},
}
