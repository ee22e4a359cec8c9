// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aegis-fin/aegis/internal/config"
	"github.com/aegis-fin/aegis/internal/secrets"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the aegis gateway",
		Long:  "Load configuration, initialize the resilience subsystems, and start the HTTP server.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	_ = viper.BindPFlag("networking.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()

	if viper.GetBool("verbose") {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// Config files hold provider API keys, so a world-readable file is
	// worth a warning before anything else happens.
	config.WarnInsecurePermissions(v.ConfigFileUsed())

	// Replace keyring:// URIs with real secret values before unmarshal.
	secrets.ResolveViperSecrets(v, secrets.NewKeyringStore())

	cfg, err := config.FromViper(v)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := WireGateway(ctx, cfg)
	if err != nil {
		return fmt.Errorf("wiring gateway: %w", err)
	}
	defer func() {
		if cerr := gw.Close(); cerr != nil {
			slog.Warn("closing gateway", "error", cerr)
		}
	}()

	slog.Info("starting aegis gateway",
		"listen", cfg.Networking.Listen,
		"providers", len(cfg.Providers),
		"backend", cfg.Storage.Backend)

	return gw.Start(ctx)
}
