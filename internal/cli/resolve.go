package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"civicpulse.app/sla/internal/model"
	"civicpulse.app/sla/internal/sla"
)

// ResolveCmd returns the resolve command.
func ResolveCmd() *cobra.Command {
	var (
		category  string
		priority  string
		areaID    string
		createdAt string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Compute the SLA deadline for a category, priority and area",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, p := model.Category(category), model.Priority(priority)
			if !c.Valid() {
				return fmt.Errorf("unknown category %q", category)
			}
			if !p.Valid() {
				return fmt.Errorf("unknown priority %q", priority)
			}
			created, err := parseTime(createdAt, time.Now().UTC())
			if err != nil {
				return err
			}

			table, err := loadPolicy(cmd)
			if err != nil {
				return err
			}

			res := table.Resolve(c, p, areaID, created)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "created:     %s\n", created.Format(time.RFC3339))
			fmt.Fprintf(out, "deadline:    %s\n", res.Deadline.Format(time.RFC3339))
			fmt.Fprintf(out, "target:      %.1fh (%s)\n", res.TargetHours, res.Source)
			fmt.Fprintf(out, "escalation:  %.1fh before deadline\n", res.EscalationHours)
			fmt.Fprintf(out, "status now:  %s\n", statusLabel(sla.Classify(time.Now(), res.Deadline, res.EscalationHours, nil)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "issue category")
	cmd.Flags().StringVarP(&priority, "priority", "p", string(model.PriorityMedium), "issue priority")
	cmd.Flags().StringVarP(&areaID, "area", "a", "", "area id for per-area overrides")
	cmd.Flags().StringVar(&createdAt, "created-at", "", "creation time (default now)")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

// ClassifyCmd returns the classify command.
func ClassifyCmd() *cobra.Command {
	var (
		deadline        string
		escalationHours float64
		resolvedAt      string
		at              string
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify an SLA deadline at a point in time",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseTime(deadline, time.Time{})
			if err != nil {
				return err
			}
			now, err := parseTime(at, time.Now().UTC())
			if err != nil {
				return err
			}
			var resolved *time.Time
			if resolvedAt != "" {
				r, err := parseTime(resolvedAt, time.Time{})
				if err != nil {
					return err
				}
				resolved = &r
			}

			a := sla.Evaluate(now, d, escalationHours, resolved)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "status:     %s\n", statusLabel(a.Status))
			if a.HoursOverdue > 0 {
				fmt.Fprintf(out, "overdue:    %.2fh\n", a.HoursOverdue)
			} else {
				fmt.Fprintf(out, "remaining:  %.2fh\n", a.HoursRemaining)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&deadline, "deadline", "", "SLA deadline")
	cmd.Flags().Float64Var(&escalationHours, "escalation-hours", 24, "hours before the deadline that count as critical")
	cmd.Flags().StringVar(&resolvedAt, "resolved-at", "", "resolution time, if resolved")
	cmd.Flags().StringVar(&at, "at", "", "evaluation time (default now)")
	_ = cmd.MarkFlagRequired("deadline")
	return cmd
}
