// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package main

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aegis-fin/aegis/internal/server"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <account-id>",
		Short: "Show connection attempt history for an account",
		Long:  "Display the immutable audit trail of provider connection attempts for one account, newest first.",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}

	cmd.Flags().String("address", defaultGatewayAddr, "gateway address to check")
	cmd.Flags().Int("limit", 20, "maximum records to show")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("address")
	limit, _ := cmd.Flags().GetInt("limit")
	out := cmd.OutOrStdout()

	path := "/api/v1/accounts/" + url.PathEscape(args[0]) + "/attempts?limit=" + strconv.Itoa(limit)

	gw := newGatewayClient(addr)
	var body struct {
		Attempts []server.ConnectionAttemptView `json:"attempts"`
	}
	if err := gw.getJSON(path, &body); err != nil {
		if errors.Is(err, ErrGatewayNotRunning) {
			_, _ = fmt.Fprintf(out, "Gateway at %s is not running (connection refused)\n", addr)
			return nil
		}
		return err
	}

	if len(body.Attempts) == 0 {
		_, _ = fmt.Fprintln(out, "No connection attempts recorded for this account.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIME\tPROVIDER\tOPERATION\tOUTCOME\tMS\tFAILOVER\tERROR")
	for _, a := range body.Attempts {
		failover := ""
		if a.Failover {
			failover = "yes"
		}
		errCol := a.ErrorMessage
		if a.ErrorKind != "" {
			errCol = a.ErrorKind + ": " + errCol
		}
		_, _ = fmt.Fprintf(w, "%s\t%s@%s\t%s\t%s\t%d\t%s\t%s\n",
			a.CreatedAt, a.Provider, a.Region, a.Operation, a.Outcome,
			a.ResponseMs, failover, errCol)
	}
	return w.Flush()
}
