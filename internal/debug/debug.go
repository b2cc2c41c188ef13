// Package debug provides verbose tracing of scheduler phases and
// individual enricher calls (spec §6's -v/--debug flag), mirroring the
// teacher's internal/debug's phase/call instrumentation but renamed from
// "tool execution" to "enricher call" to match this pipeline's domain.
package debug

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	enabled bool
	mu      sync.Mutex
	logs    []LogEntry
)

// LogEntry records one completed enricher call for the end-of-run summary.
type LogEntry struct {
	Timestamp time.Time     `json:"timestamp"`
	Call      string        `json:"call"`
	Args      string        `json:"args"`
	Duration  time.Duration `json:"duration"`
	Status    string        `json:"status"`
}

// Enable turns on debug logging.
func Enable() {
	mu.Lock()
	enabled = true
	mu.Unlock()
}

// IsEnabled reports whether debug logging is on.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// LogCallStart logs the start of one enricher call (e.g. "whois:example.com").
func LogCallStart(call string, args []string) time.Time {
	if !IsEnabled() {
		return time.Now()
	}
	start := time.Now()
	gray := color.New(color.FgHiBlack)
	gray.Printf("    [DEBUG %s] START: %s %s\n", start.Format("15:04:05.000"), call, strings.Join(args, " "))
	return start
}

// LogCallEnd logs the completion of one enricher call.
func LogCallEnd(call string, args []string, start time.Time, err error) {
	if !IsEnabled() {
		return
	}
	duration := time.Since(start)
	end := time.Now()

	status := "OK"
	statusColor := color.New(color.FgGreen)
	if err != nil {
		status = fmt.Sprintf("ERROR: %v", err)
		statusColor = color.New(color.FgRed)
	}

	gray := color.New(color.FgHiBlack)
	gray.Printf("    [DEBUG %s] END:   %s ", end.Format("15:04:05.000"), call)
	statusColor.Printf("%s", status)
	gray.Printf(" (duration: %s)\n", duration.Round(time.Millisecond))

	mu.Lock()
	logs = append(logs, LogEntry{
		Timestamp: end,
		Call:      call,
		Args:      strings.Join(args, " "),
		Duration:  duration,
		Status:    status,
	})
	mu.Unlock()
}

// LogPhaseStart logs the start of a scheduler phase (e.g. "seed:example.com:enrich").
func LogPhaseStart(phase string) time.Time {
	if !IsEnabled() {
		return time.Now()
	}
	start := time.Now()
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Printf("    [DEBUG %s] PHASE START: %s\n", start.Format("15:04:05.000"), phase)
	return start
}

// LogPhaseEnd logs the end of a scheduler phase.
func LogPhaseEnd(phase string, start time.Time) {
	if !IsEnabled() {
		return
	}
	duration := time.Since(start)
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Printf("    [DEBUG %s] PHASE END:   %s (total: %s)\n", time.Now().Format("15:04:05.000"), phase, duration.Round(time.Millisecond))
}

// Summary prints an end-of-run table of every logged enricher call.
func Summary() {
	if !IsEnabled() || len(logs) == 0 {
		return
	}

	cyan := color.New(color.FgCyan, color.Bold)
	fmt.Println()
	cyan.Println("═══════════════════════════════════════════════════════")
	cyan.Println("                    DEBUG SUMMARY")
	cyan.Println("═══════════════════════════════════════════════════════")

	var total time.Duration
	for _, l := range logs {
		status := "✓"
		if strings.HasPrefix(l.Status, "ERROR") {
			status = "✗"
		}
		fmt.Printf("  %s %-30s %10s\n", status, l.Call, l.Duration.Round(time.Millisecond))
		total += l.Duration
	}

	fmt.Println("───────────────────────────────────────────────────────")
	fmt.Printf("  Total enricher call time: %s\n", total.Round(time.Millisecond))
	fmt.Printf("  Calls logged: %d\n", len(logs))
	cyan.Println("═══════════════════════════════════════════════════════")
}

// GetLogs returns a copy of every logged call entry.
func GetLogs() []LogEntry {
	mu.Lock()
	defer mu.Unlock()
	return append([]LogEntry{}, logs...)
}
