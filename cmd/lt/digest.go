package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/lineside/internal/digest"
	"github.com/zulandar/lineside/internal/notify"
)

func newDigestCmd() *cobra.Command {
	var (
		configPath string
		since      time.Duration
		send       bool
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Print a production digest for a recent window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			until := time.Now()
			rep, err := digest.Build(gormDB, until.Add(-since), until)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Digest %s — %s\n", rep.PeriodStart.Format("2006-01-02 15:04"), rep.PeriodEnd.Format("2006-01-02 15:04"))
			fmt.Fprintf(out, "  units created:   %d\n", rep.UnitsCreated)
			fmt.Fprintf(out, "  transitions:     %d\n", rep.Transitions)
			fmt.Fprintf(out, "  fails:           %d\n", rep.Fails)
			fmt.Fprintf(out, "  first-pass yield: %.1f%%\n", rep.FirstPassYield*100)
			for _, sc := range rep.StepBreakdown {
				fmt.Fprintf(out, "  %-20s pending %-4d pass %-4d fail %d\n", sc.Name, sc.Pending, sc.Pass, sc.Fail)
			}

			if !send {
				return nil
			}
			adapter, err := notify.New(cfg.Notify)
			if err != nil {
				return err
			}
			if adapter == nil {
				return fmt.Errorf("lt: --send requires a configured notify target")
			}
			defer adapter.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			if err := adapter.Send(ctx, digest.Event(rep)); err != nil {
				return err
			}
			fmt.Fprintln(out, "Digest sent")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "lineside.yaml", "path to lineside config file")
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "window to report over")
	cmd.Flags().BoolVar(&send, "send", false, "send the digest to the configured notify target")
	return cmd
}
