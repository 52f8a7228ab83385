package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/srediag/shmbench/pkg/bench"
	"github.com/srediag/shmbench/pkg/shm"
)

func newConsumeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consume NAME",
		Short: "Attach to a region, drain it and report the throughput",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.bindFlags(cmd)
			return a.consume(cmd.Context(), args[0])
		},
	}
	f := cmd.Flags()
	f.Duration("wait", 10*time.Second, "How long to wait for the producer to create the region")
	f.Uint64("capacity", 0, "Expected ring capacity in bytes (0 accepts any)")
	f.String("verify", "", "Check the received bytes against a pattern (constant, cycle)")
	return cmd
}

func (a *app) consume(ctx context.Context, name string) error {
	var verify *bench.Pattern
	if s := a.v.GetString("verify"); s != "" {
		p, err := bench.ParsePattern(s)
		if err != nil {
			return err
		}
		verify = &p
	}

	a.reportHealth("consumer", fmt.Errorf("waiting for region %s", name))
	seg, err := shm.Attach(ctx, shm.Config{Name: name, Capacity: a.v.GetUint64("capacity")}, a.v.GetDuration("wait"))
	if err != nil {
		a.reportHealth("consumer", err)
		return err
	}
	defer func() {
		if err := seg.Close(); err != nil {
			a.log.Warn("close region", zap.Error(err))
		}
	}()
	a.reportHealth("consumer", nil)
	a.log.Info("attached", zap.String("path", seg.Path()), zap.Uint64("total", seg.TotalBytes()))

	res, err := shm.NewConsumer(seg.Region, shm.DefaultConfig()).Run(ctx)
	if err != nil {
		return err
	}
	report := bench.NewReport(res)
	a.metrics.Observe(report)
	if _, err := report.WriteTo(os.Stdout); err != nil {
		return err
	}
	if verify != nil {
		if off := bench.Verify(*verify, res.Data, 0); off >= 0 {
			return fmt.Errorf("payload differs from %s pattern at offset %d", *verify, off)
		}
		fmt.Printf("payload matches %s pattern\n", *verify)
	}
	return nil
}
