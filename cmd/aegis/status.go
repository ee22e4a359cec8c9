// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aegis-fin/aegis/internal/server"
)

// defaultGatewayAddr is where client commands look for a running gateway.
const defaultGatewayAddr = "127.0.0.1:18990"

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show gateway status",
		Long:  "Check the running gateway's status endpoint and display status information.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", defaultGatewayAddr, "gateway address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	gw := newGatewayClient(addr)
	var body server.GatewayStatus
	if err := gw.getJSON("/api/v1/status", &body); err != nil {
		if errors.Is(err, ErrGatewayNotRunning) {
			_, _ = fmt.Fprintf(out, "Gateway at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Gateway at %s: %s\n", addr, err)
		return nil
	}

	_, _ = fmt.Fprintf(out, "Gateway at %s\n", addr)
	_, _ = fmt.Fprintf(out, "  version:   %s\n", body.Version)
	_, _ = fmt.Fprintf(out, "  uptime:    %ds\n", body.UptimeSeconds)
	_, _ = fmt.Fprintf(out, "  backend:   %s\n", body.Backend)
	_, _ = fmt.Fprintf(out, "  mappings:  %d\n", body.Mappings)
	if len(body.Providers) > 0 {
		_, _ = fmt.Fprintf(out, "  providers: %s\n", strings.Join(body.Providers, ", "))
	} else {
		_, _ = fmt.Fprintln(out, "  providers: none configured")
	}
	return nil
}
