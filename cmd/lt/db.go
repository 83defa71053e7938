package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/lineside/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the lineside database",
		Long:  "Migrates all tables and seeds the step sequence on an empty database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "lineside.yaml", "path to lineside config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	seed := cfg.Steps
	if len(seed) == 0 {
		seed = defaultSteps
	}
	added, err := db.SeedSteps(gormDB, seed)
	if err != nil {
		return err
	}
	if added > 0 {
		fmt.Fprintf(out, "Seeded steps:")
		for _, name := range seed {
			fmt.Fprintf(out, " %s", name)
		}
		fmt.Fprintln(out)
	} else {
		fmt.Fprintln(out, "Steps already present, seed skipped")
	}
	return nil
}
