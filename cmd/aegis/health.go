// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package main

import (
	"errors"
	"fmt"
	"net/url"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aegis-fin/aegis/pkg/health"
)

func newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show provider health",
		Long:  "Display rolling-window health and circuit state for every provider the gateway has called.",
		RunE:  runHealth,
	}

	cmd.Flags().String("address", defaultGatewayAddr, "gateway address to check")
	cmd.Flags().String("region", "", "filter to one region")

	return cmd
}

func runHealth(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	region, _ := cmd.Flags().GetString("region")
	out := cmd.OutOrStdout()

	path := "/api/v1/providers/health"
	if region != "" {
		path += "?region=" + url.QueryEscape(region)
	}

	gw := newGatewayClient(addr)
	var body struct {
		Providers []health.ProviderHealth `json:"providers"`
	}
	if err := gw.getJSON(path, &body); err != nil {
		if errors.Is(err, ErrGatewayNotRunning) {
			_, _ = fmt.Fprintf(out, "Gateway at %s is not running (connection refused)\n", addr)
			return nil
		}
		return err
	}

	if len(body.Providers) == 0 {
		_, _ = fmt.Fprintln(out, "No provider health recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PROVIDER\tREGION\tSTATUS\tERROR RATE\tAVG MS\tCALLS\tCIRCUIT")
	for _, p := range body.Providers {
		circuit := "closed"
		if p.CircuitOpen {
			circuit = "open"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.1f%%\t%.0f\t%d\t%s\n",
			p.Provider, p.Region, p.Status, p.ErrorRate, p.AvgResponseMs,
			p.SuccessCount+p.FailureCount, circuit)
	}
	return w.Flush()
}
