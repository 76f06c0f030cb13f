package report

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Print writes the human-readable summary of r to w
func Print(w io.Writer, r *Report) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 60))
	fmt.Fprintf(w, "%s\n", center(strings.ToUpper(r.AppName)+" UI WORKFLOW REPORT", 60))
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Run: %s\n", r.RunID)
	fmt.Fprintf(w, "Target: %s (%s)\n", r.BaseURL, r.Profile)
	fmt.Fprintf(w, "Started: %s\n", r.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Total Scenarios: %d\n", r.Total)
	fmt.Fprintf(w, "Passed: %d\n", r.Passed)
	fmt.Fprintf(w, "Failed: %d\n", r.Failed)
	if r.Skipped > 0 {
		fmt.Fprintf(w, "Skipped: %d\n", r.Skipped)
	}
	fmt.Fprintf(w, "Success Rate: %.1f%%\n", r.SuccessRate())
	fmt.Fprintf(w, "Duration: %s\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintln(w, strings.Repeat("-", 60))

	for _, res := range r.Results {
		fmt.Fprintf(w, "%s %s (%s)\n", badge(res.Status), res.Name, res.Duration.Round(time.Millisecond))
		if res.Message != "" {
			label := "Error"
			if res.Kind != KindNone {
				label = strings.ToUpper(string(res.Kind)[:1]) + string(res.Kind)[1:]
			}
			fmt.Fprintf(w, "   %s: %s\n", label, res.Message)
		}
		for _, n := range res.Notes {
			fmt.Fprintf(w, "   Note: %s\n", n)
		}
		if res.Screenshot != "" {
			fmt.Fprintf(w, "   Screenshot: %s\n", res.Screenshot)
		}
	}

	fmt.Fprintln(w, strings.Repeat("=", 60))
	if r.Failed > 0 {
		fmt.Fprintf(w, "\n⚠️  %d scenario(s) failed\n", r.Failed)
	} else {
		fmt.Fprintln(w, "\n✅ All scenarios passed!")
	}
}

func badge(s Status) string {
	switch s {
	case StatusPassed:
		return "✅ PASSED"
	case StatusSkipped:
		return "⏭️  SKIPPED"
	default:
		return "❌ FAILED"
	}
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", (width-len(s))/2) + s
}
