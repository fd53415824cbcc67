// Package cli implements the slactl subcommands.
package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"civicpulse.app/sla/internal/policy"
	"civicpulse.app/sla/internal/sla"
)

func loadPolicy(cmd *cobra.Command) (*policy.Table, error) {
	path, _ := cmd.Flags().GetString("policy")
	return policy.Load(path)
}

// parseTime accepts RFC 3339 or YYYY-MM-DD. Empty means fallback.
func parseTime(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

func statusLabel(s sla.Status) string {
	switch s {
	case sla.StatusCompliant:
		return color.New(color.FgGreen).Sprint(s)
	case sla.StatusWarning:
		return color.New(color.FgYellow).Sprint(s)
	case sla.StatusCritical:
		return color.New(color.FgHiRed).Sprint(s)
	case sla.StatusBreached:
		return color.New(color.FgRed, color.Bold).Sprint(s)
	default:
		return color.New(color.FgBlue).Sprint(s)
	}
}

func percentLabel(p float64) string {
	text := fmt.Sprintf("%.2f%%", p)
	switch {
	case p >= 90:
		return color.New(color.FgGreen).Sprint(text)
	case p >= 75:
		return color.New(color.FgYellow).Sprint(text)
	default:
		return color.New(color.FgRed).Sprint(text)
	}
}
