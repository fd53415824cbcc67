package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"civicpulse.app/sla/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "slactl",
		Short: "Inspect SLA policy, deadlines and compliance",
		Long: `slactl resolves SLA deadlines and classifies issues against the loaded
policy, validates policy files, and runs one-off monitor sweeps and
compliance reports against the configured issue store.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("policy", os.Getenv("POLICY_FILE"), "policy YAML file (default: embedded policy)")

	rootCmd.AddCommand(cli.PolicyCmd())
	rootCmd.AddCommand(cli.ResolveCmd())
	rootCmd.AddCommand(cli.ClassifyCmd())
	rootCmd.AddCommand(cli.SweepCmd())
	rootCmd.AddCommand(cli.ComplianceCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
