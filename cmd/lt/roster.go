package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zulandar/lineside/internal/roster"
)

func newImportCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import unit serials from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("lt: open import file: %w", err)
			}
			defer f.Close()

			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			n, err := roster.Import(gormDB, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d units\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "lineside.yaml", "path to lineside config file")
	return cmd
}

func newExportCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "export [file.csv]",
		Short: "Export the unit status matrix as CSV (stdout by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return roster.Export(gormDB, cmd.OutOrStdout())
			}
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("lt: create export file: %w", err)
			}
			if err := roster.Export(gormDB, f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "lineside.yaml", "path to lineside config file")
	return cmd
}
