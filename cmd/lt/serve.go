package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/lineside/internal/db"
	"github.com/zulandar/lineside/internal/digest"
	"github.com/zulandar/lineside/internal/notify"
	"github.com/zulandar/lineside/internal/web"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the lineside web server",
		Long:  "Migrates the database, seeds steps on first run, and serves the browser UI.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "lineside.yaml", "path to lineside config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	seed := cfg.Steps
	if len(seed) == 0 {
		seed = defaultSteps
	}
	added, err := db.SeedSteps(gormDB, seed)
	if err != nil {
		return err
	}
	if added > 0 {
		fmt.Fprintf(out, "Seeded %d steps\n", added)
	}

	notifier, err := notify.New(cfg.Notify)
	if err != nil {
		return err
	}
	if notifier != nil {
		defer notifier.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if cfg.Digest.Enabled && notifier != nil {
		sched := &digest.Scheduler{DB: gormDB, Adapter: notifier, Schedule: cfg.Digest.Schedule}
		go func() {
			if err := sched.Run(ctx); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "digest scheduler stopped: %v\n", err)
			}
		}()
	}

	if port <= 0 {
		port = cfg.Server.Port
	}
	return web.Start(ctx, web.Options{
		DB:         gormDB,
		Port:       port,
		AutoCreate: cfg.AutoCreate(),
		Notifier:   notifier,
		Out:        out,
	})
}
