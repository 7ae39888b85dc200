package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderPool())
	b.WriteString("\n")
	b.WriteString(m.renderCalls())
	b.WriteString("\n")
	b.WriteString(m.renderLatency())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m Model) renderHeader() string {
	title := titleStyle.Render(fmt.Sprintf(" cairod %s ", m.cfg.Version))

	var uptime string
	if m.snap != nil {
		uptime = mutedStyle.Render("  uptime " + formatDuration(m.snap.Uptime))
	}

	return title + uptime
}

func (m Model) renderPool() string {
	var lines []string
	lines = append(lines, sectionStyle.Render("Executor Pool"))

	if m.snap == nil {
		lines = append(lines, mutedStyle.Render("waiting for data..."))
		return boxStyle.Width(m.panelWidth()).Render(strings.Join(lines, "\n"))
	}

	live := m.snap.LiveWorkers
	workers := fmt.Sprintf("workers     %d / %d", live, m.cfg.Workers)
	switch {
	case live >= int64(m.cfg.Workers):
		workers = statusOK.Render(workers)
	case live > 0:
		workers = statusWarn.Render(workers)
	default:
		workers = statusBad.Render(workers)
	}
	lines = append(lines, workers)

	lines = append(lines, baseStyle.Render(fmt.Sprintf("spawns      %d (%d emergency)",
		m.snap.Spawns, m.snap.EmergencySpawns)))

	failures := fmt.Sprintf("failures    %d", m.snap.Failures)
	if m.snap.Failures > 0 {
		lines = append(lines, statusWarn.Render(failures))
	} else {
		lines = append(lines, baseStyle.Render(failures))
	}

	return boxStyle.Width(m.panelWidth()).Render(strings.Join(lines, "\n"))
}

func (m Model) renderCalls() string {
	var lines []string
	lines = append(lines, sectionStyle.Render("Calls"))

	if m.snap == nil {
		lines = append(lines, mutedStyle.Render("waiting for data..."))
		return boxStyle.Width(m.panelWidth()).Render(strings.Join(lines, "\n"))
	}

	lines = append(lines, baseStyle.Render(fmt.Sprintf("total       %s", formatNumber(m.snap.TotalCalls))))
	lines = append(lines, baseStyle.Render(fmt.Sprintf("rate        %s (1s)   %s (60s)",
		formatRate(m.rates.Avg1s), formatRate(m.rates.Avg60s))))

	outcomes := make([]string, 0, len(m.snap.CallsByOutcome))
	for outcome := range m.snap.CallsByOutcome {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)

	for _, outcome := range outcomes {
		line := fmt.Sprintf("  %-9s %s", outcome, formatNumber(m.snap.CallsByOutcome[outcome]))
		if outcome == "ok" {
			lines = append(lines, statusOK.Render(line))
		} else {
			lines = append(lines, statusWarn.Render(line))
		}
	}

	return boxStyle.Width(m.panelWidth()).Render(strings.Join(lines, "\n"))
}

func (m Model) renderLatency() string {
	var lines []string
	lines = append(lines, sectionStyle.Render("Latency"))

	if m.snap == nil || m.snap.TotalCalls == 0 {
		lines = append(lines, mutedStyle.Render("no calls yet"))
		return boxStyle.Width(m.panelWidth()).Render(strings.Join(lines, "\n"))
	}

	lines = append(lines, baseStyle.Render(fmt.Sprintf("p50         %s", formatMs(m.snap.LatencyP50))))
	lines = append(lines, baseStyle.Render(fmt.Sprintf("p95         %s", formatMs(m.snap.LatencyP95))))
	lines = append(lines, baseStyle.Render(fmt.Sprintf("p99         %s", formatMs(m.snap.LatencyP99))))

	return boxStyle.Width(m.panelWidth()).Render(strings.Join(lines, "\n"))
}

func (m Model) renderFooter() string {
	endpoints := mutedStyle.Render(fmt.Sprintf("rpc %s   metrics %s", m.cfg.RPCAddr, m.cfg.MetricsAddr))
	help := mutedStyle.Render("q quit")
	return lipgloss.JoinHorizontal(lipgloss.Top, endpoints, "   ", help)
}

// panelWidth bounds panels to the terminal width.
func (m Model) panelWidth() int {
	w := m.width - 4
	if w > 72 {
		w = 72
	}
	if w < 30 {
		w = 30
	}
	return w
}
