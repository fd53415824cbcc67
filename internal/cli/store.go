package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"civicpulse.app/sla/common/id"
	"civicpulse.app/sla/common/logger"
	"civicpulse.app/sla/core/config"
	"civicpulse.app/sla/internal/compliance"
	"civicpulse.app/sla/internal/store"
	"civicpulse.app/sla/internal/wire"
)

// SweepCmd returns the sweep command.
func SweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one monitor sweep against the configured store",
		Long: `Sweep runs a single escalation sweep with the server's configuration
(DB_DRIVER, NOTIFY_MODE, MONITOR_COOLDOWN_BACKEND) and prints the summary.
With the memory cooldown backend, warnings already sent by a running
monitor are not known to this process and may be sent again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(config.ServiceTypeCLI)
			if err != nil {
				return err
			}
			logger.Setup(cfg)
			if err := id.Init(cfg.NodeID); err != nil {
				return err
			}

			stores, closeStores, err := wire.Stores(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStores()

			table, err := loadPolicy(cmd)
			if err != nil {
				return err
			}

			var redisClient *redis.Client
			if cfg.NeedsRedis() {
				if redisClient, err = wire.Redis(ctx, cfg); err != nil {
					return err
				}
				defer redisClient.Close()
			}

			dispatcher, closeDispatcher, err := wire.Dispatcher(cfg, redisClient)
			if err != nil {
				return err
			}
			defer closeDispatcher()

			mon, err := wire.Monitor(cfg, stores.Issues(), table, dispatcher, redisClient)
			if err != nil {
				return err
			}

			summary, err := mon.Sweep(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sweep %d: %d open issues in %s\n", summary.SweepID, summary.Evaluated, summary.Duration.Round(time.Millisecond))
			for _, s := range sortedKeys(summary.ByStatus) {
				fmt.Fprintf(out, "  %-10s %d\n", statusLabel(s), summary.ByStatus[s])
			}
			for _, k := range sortedKeys(summary.Notifications) {
				fmt.Fprintf(out, "  sent %-16s %d\n", k, summary.Notifications[k])
			}
			fmt.Fprintf(out, "escalated %d, skipped %d, failed %d\n", summary.Escalated, summary.Skipped, summary.Failed)
			if summary.Failed > 0 {
				return fmt.Errorf("%d issues failed", summary.Failed)
			}
			return nil
		},
	}
}

// ComplianceCmd returns the compliance command.
func ComplianceCmd() *cobra.Command {
	var (
		areaID string
		from   string
		to     string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "compliance",
		Short: "Report SLA compliance for issues created in a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			filter := compliance.Filter{AreaID: areaID}
			if from != "" {
				t, err := parseTime(from, time.Time{})
				if err != nil {
					return err
				}
				filter.From = &t
			}
			if to != "" {
				t, err := parseTime(to, time.Time{})
				if err != nil {
					return err
				}
				filter.To = &t
			}

			cfg, err := config.Load(config.ServiceTypeCLI)
			if err != nil {
				return err
			}
			logger.Setup(cfg)

			stores, closeStores, err := wire.Stores(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStores()

			report, err := complianceReport(ctx, stores.Issues(), filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			fmt.Fprintf(out, "issues:      %d (%d resolved)\n", report.Total, report.Resolved)
			fmt.Fprintf(out, "compliance:  %s\n", percentLabel(report.CompliancePercent))
			fmt.Fprintf(out, "avg resolve: %.2fh\n", report.AverageResolutionHours)
			fmt.Fprintf(out, "breaches:    %d open overdue, %d resolved late, %d escalated\n",
				report.Breaches.OpenOverdue, report.Breaches.ResolvedLate, report.Breaches.Escalated)
			if len(report.Areas) > 0 {
				fmt.Fprintln(out)
				for _, a := range report.Areas {
					fmt.Fprintf(out, "  %-16s %4d issues  %s\n", color.New(color.FgCyan).Sprint(a.AreaID), a.Total, percentLabel(a.CompliancePercent))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&areaID, "area", "a", "", "restrict to one area")
	cmd.Flags().StringVar(&from, "from", "", "window start, inclusive")
	cmd.Flags().StringVar(&to, "to", "", "window end, exclusive")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func complianceReport(ctx context.Context, issues store.IssueStore, filter compliance.Filter) (compliance.Report, error) {
	records, err := issues.ListForCompliance(ctx, store.IssueFilter{
		AreaID:      filter.AreaID,
		CreatedFrom: filter.From,
		CreatedTo:   filter.To,
	})
	if err != nil {
		return compliance.Report{}, fmt.Errorf("listing issues: %w", err)
	}
	return compliance.Aggregate(records, filter, time.Now().UTC()), nil
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

