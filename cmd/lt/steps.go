package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/zulandar/lineside/internal/progress"
)

func newStepsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "steps",
		Short: "Manage the production step sequence",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "lineside.yaml", "path to lineside config file")

	cmd.AddCommand(newStepsListCmd(&configPath))
	cmd.AddCommand(newStepsAddCmd(&configPath))
	cmd.AddCommand(newStepsArchiveCmd(&configPath))
	cmd.AddCommand(newStepsRenameCmd(&configPath))
	cmd.AddCommand(newStepsReorderCmd(&configPath))
	return cmd
}

func newStepsListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active and archived steps",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(*configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			active, err := progress.ActiveSteps(gormDB)
			if err != nil {
				return err
			}
			for _, s := range active {
				fmt.Fprintf(out, "%3d  %-20s  (id %d)\n", s.Sequence, s.Name, s.ID)
			}

			archived, err := progress.ArchivedSteps(gormDB)
			if err != nil {
				return err
			}
			for _, s := range archived {
				fmt.Fprintf(out, "  -  %-20s  (id %d, archived)\n", s.Name, s.ID)
			}
			return nil
		},
	}
}

func newStepsAddCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Append a step and backfill pending rows for all units",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(*configPath)
			if err != nil {
				return err
			}
			step, err := progress.AddStep(gormDB, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added step %q at position %d\n", step.Name, step.Sequence)
			return nil
		},
	}
}

func newStepsArchiveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <step-id>",
		Short: "Archive a step, keeping its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseStepID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(*configPath)
			if err != nil {
				return err
			}
			if err := progress.ArchiveStep(gormDB, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived step %d (data retained)\n", id)
			return nil
		},
	}
}

func newStepsRenameCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <step-id> <new-name>",
		Short: "Rename a step; audit history keeps the old name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseStepID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(*configPath)
			if err != nil {
				return err
			}
			if err := progress.RenameStep(gormDB, id, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed step %d to %q\n", id, args[1])
			return nil
		},
	}
}

func newStepsReorderCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <step-id>...",
		Short: "Rewrite step order to the given ID sequence",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uint, len(args))
			for i, arg := range args {
				id, err := parseStepID(arg)
				if err != nil {
					return err
				}
				ids[i] = id
			}
			_, gormDB, err := connectFromConfig(*configPath)
			if err != nil {
				return err
			}
			if err := progress.Resequence(gormDB, ids); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reordered %d steps\n", len(ids))
			return nil
		},
	}
}

func parseStepID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("step ID must be a number, got %q", arg)
	}
	return uint(id), nil
}
