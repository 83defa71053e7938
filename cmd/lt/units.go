package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/lineside/internal/progress"
	"github.com/zulandar/lineside/internal/report"
)

func newUnitsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "units",
		Short: "Manage units directly",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "lineside.yaml", "path to lineside config file")

	cmd.AddCommand(newUnitsCreateCmd(&configPath))
	cmd.AddCommand(newUnitsShowCmd(&configPath))
	cmd.AddCommand(newUnitsDeleteCmd(&configPath))
	return cmd
}

func newUnitsCreateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "create <serial>",
		Short: "Create a unit with a full pending checklist",
		Long:  "Creates the unit unconditionally; station gating only applies to scans.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(*configPath)
			if err != nil {
				return err
			}
			unit, err := progress.CreateUnit(gormDB, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created unit %s\n", unit.Serial)
			return nil
		},
	}
}

func newUnitsShowCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <serial>",
		Short: "Print a unit's checklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(*configPath)
			if err != nil {
				return err
			}
			unit, rows, err := report.UnitChecklist(gormDB, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Unit %s\n", unit.Serial)
			for _, r := range rows {
				line := fmt.Sprintf("%3d  %-20s  %-8s", r.Step.Sequence, r.Step.Name, r.Status)
				if r.Operator != "" {
					line += "  by " + r.Operator
				}
				if r.Notes != "" {
					line += "  (" + r.Notes + ")"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func newUnitsDeleteCmd(configPath *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <serial>",
		Short: "Delete a unit and its checklist; audit history is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("deleting %s removes its checklist; re-run with --yes to confirm", args[0])
			}
			_, gormDB, err := connectFromConfig(*configPath)
			if err != nil {
				return err
			}
			if err := progress.DeleteUnit(gormDB, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted unit %s (audit history retained)\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
