package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// FormatSummary renders a snapshot as the multi-line exit summary printed
// after a run.
func FormatSummary(s *Snapshot) string {
	var b strings.Builder

	b.WriteString("=== cairod run summary ===\n")
	fmt.Fprintf(&b, "uptime:           %s\n", s.Uptime.Round(time.Second))
	fmt.Fprintf(&b, "calls:            %d (%.2f/s)\n", s.TotalCalls, s.CallRate)

	for _, status := range sortedOutcomes(s.CallsByOutcome) {
		fmt.Fprintf(&b, "  %-16s%d\n", status+":", s.CallsByOutcome[status])
	}

	if s.TotalCalls > 0 {
		fmt.Fprintf(&b, "latency p50/p95/p99: %.1f / %.1f / %.1f ms\n",
			s.LatencyP50, s.LatencyP95, s.LatencyP99)
	}

	fmt.Fprintf(&b, "workers spawned:  %d (%d emergency)\n", s.Spawns, s.EmergencySpawns)
	fmt.Fprintf(&b, "worker failures:  %d\n", s.Failures)
	fmt.Fprintf(&b, "worker exits:     %d\n", s.Exits)

	return b.String()
}

func sortedOutcomes(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
