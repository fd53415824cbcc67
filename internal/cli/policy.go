package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"civicpulse.app/sla/internal/model"
	"civicpulse.app/sla/internal/policy"
)

// PolicyCmd returns the policy command group.
func PolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and validate SLA policy documents",
	}
	cmd.AddCommand(policySchemaCmd())
	cmd.AddCommand(policyValidateCmd())
	cmd.AddCommand(policyShowCmd())
	cmd.AddCommand(policyDefaultCmd())
	return cmd
}

func policySchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the policy file format",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := policy.SchemaJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func policyDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "default",
		Short: "Print the embedded default policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write(policy.DefaultYAML())
			return err
		},
	}
}

func policyValidateCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a policy file and report missing entries",
		Long: `Validate parses FILE, rejecting unknown fields and negative hours, then
lists the (category, priority) pairs that fall back to the fallback entry.
With --strict, any missing pair fails validation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			table, err := policy.Load(args[0])
			if err != nil {
				fmt.Fprintf(out, "%s %v\n", color.New(color.FgRed).Sprint("INVALID"), err)
				return fmt.Errorf("policy validation failed")
			}

			missing := table.MissingEntries()
			if len(missing) == 0 {
				fmt.Fprintf(out, "%s %s\n", color.New(color.FgGreen).Sprint("OK"), args[0])
				return nil
			}

			fmt.Fprintf(out, "%s %s: %d pairs use the fallback\n",
				color.New(color.FgYellow).Sprint("GAPS"), args[0], len(missing))
			for _, m := range missing {
				fmt.Fprintf(out, "  - %s\n", m)
			}
			if strict {
				return fmt.Errorf("policy has %d missing entries", len(missing))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any category/priority pair is missing")
	return cmd
}

func policyShowCmd() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the loaded policy table",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadPolicy(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if asYAML {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(table.Document())
			}

			fmt.Fprintf(out, "%-16s %-9s %8s %10s\n", "CATEGORY", "PRIORITY", "TARGET", "ESCALATE")
			for _, c := range model.Categories {
				for _, p := range model.Priorities {
					entry, ok := table.Entry(c, p)
					marker := ""
					if !ok {
						entry = table.Fallback()
						marker = color.New(color.FgYellow).Sprint(" (fallback)")
					}
					fmt.Fprintf(out, "%-16s %-9s %7.1fh %9.1fh%s\n", c, p, entry.TargetHours, entry.EscalationHours, marker)
				}
			}

			areas := table.Areas()
			if len(areas) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "AREAS")
			for _, area := range areas {
				fmt.Fprintf(out, "  %s  %s\n", color.New(color.FgCyan).Sprint(area.ID), area.Name)
				for _, c := range model.Categories {
					if hours, ok := table.Override(area.ID, c); ok {
						fmt.Fprintf(out, "      %s=%.1fh\n", c, hours)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the normalized policy document as YAML")
	return cmd
}
