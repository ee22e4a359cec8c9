// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
	"github.com/aegis-fin/aegis/pkg/health"
)

// dashboardPollInterval is how often the dashboard refreshes provider health.
const dashboardPollInterval = 2 * time.Second

// --- lipgloss styles ---

var (
	dashTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	dashHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	healthyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	degradedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	downStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dashDimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dashErrStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dashBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

// --- bubbletea messages ---

type (
	healthSnapshotMsg struct{ providers []health.ProviderHealth }
	healthErrMsg      struct{ err error }
	pollTickMsg       time.Time
)

// dashboardModel is the bubbletea model for the live health dashboard.
type dashboardModel struct {
	client  *gatewayClient
	addr    string
	region  string
	spinner spinner.Model

	providers []health.ProviderHealth
	fetchErr  string
	loaded    bool
	updatedAt time.Time
}

func newDashboardModel(addr, region string) dashboardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return dashboardModel{
		client:  newGatewayClient(addr),
		addr:    addr,
		region:  region,
		spinner: sp,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, fetchHealthCmd(m.client, m.region))
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, fetchHealthCmd(m.client, m.region)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case healthSnapshotMsg:
		m.providers = msg.providers
		m.fetchErr = ""
		m.loaded = true
		m.updatedAt = time.Now()
		return m, pollCmd()

	case healthErrMsg:
		m.fetchErr = msg.err.Error()
		m.loaded = true
		return m, pollCmd()

	case pollTickMsg:
		return m, fetchHealthCmd(m.client, m.region)
	}

	return m, nil
}

func (m dashboardModel) View() string {
	var b strings.Builder

	b.WriteString(dashTitleStyle.Render("  Aegis Provider Health  ") + "\n")
	b.WriteString(dashDimStyle.Render("gateway "+m.addr) + "\n\n")

	switch {
	case !m.loaded:
		b.WriteString(m.spinner.View() + " Loading provider health…\n")

	case m.fetchErr != "":
		b.WriteString(dashErrStyle.Render("Error: "+m.fetchErr) + "\n")

	case len(m.providers) == 0:
		b.WriteString(dashDimStyle.Render("No provider health recorded yet.") + "\n")

	default:
		b.WriteString(dashHeaderStyle.Render(fmt.Sprintf("%-14s %-8s %-10s %9s %8s %7s  %s",
			"PROVIDER", "REGION", "STATUS", "ERR RATE", "AVG MS", "CALLS", "CIRCUIT")) + "\n")
		for _, p := range m.providers {
			b.WriteString(renderHealthRow(p) + "\n")
		}
	}

	b.WriteString("\n" + dashDimStyle.Render("r to refresh  q to quit"))
	if !m.updatedAt.IsZero() {
		b.WriteString(dashDimStyle.Render("  updated " + m.updatedAt.Format("15:04:05")))
	}

	return dashBoxStyle.Render(b.String())
}

// renderHealthRow formats one provider line, colored by status.
func renderHealthRow(p health.ProviderHealth) string {
	style := healthyStyle
	switch p.Status {
	case health.StatusDegraded:
		style = degradedStyle
	case health.StatusDown:
		style = downStyle
	}

	circuit := "closed"
	if p.CircuitOpen {
		circuit = downStyle.Render("OPEN")
	}

	row := fmt.Sprintf("%-14s %-8s %-10s %8.1f%% %8.0f %7d  ",
		p.Provider, p.Region, style.Render(string(p.Status)),
		p.ErrorRate, p.AvgResponseMs, p.SuccessCount+p.FailureCount)
	return row + circuit
}

// --- tea.Cmd factories ---

func fetchHealthCmd(client *gatewayClient, region string) tea.Cmd {
	return func() tea.Msg {
		path := "/api/v1/providers/health"
		if region != "" {
			path += "?region=" + region
		}
		var body struct {
			Providers []health.ProviderHealth `json:"providers"`
		}
		if err := client.getJSON(path, &body); err != nil {
			if errors.Is(err, ErrGatewayNotRunning) {
				return healthErrMsg{err: ErrGatewayNotRunning}
			}
			return healthErrMsg{err: err}
		}
		return healthSnapshotMsg{providers: body.Providers}
	}
}

func pollCmd() tea.Cmd {
	return tea.Tick(dashboardPollInterval, func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}

// --- Cobra command ---

func newDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Live provider health dashboard",
		Long:  "Run a terminal dashboard that polls the gateway's provider health endpoint and shows rolling-window status and circuit state per provider and region.",
		RunE:  runDashboard,
	}

	cmd.Flags().String("address", defaultGatewayAddr, "gateway address to watch")
	cmd.Flags().String("region", "", "filter to one region")

	return cmd
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	region, _ := cmd.Flags().GetString("region")

	p := tea.NewProgram(newDashboardModel(addr, region), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return aegiserr.Errorf(aegiserr.CodeCLISetupFailure, "dashboard error: %w", err)
	}
	return nil
}
