package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/srediag/shmbench/pkg/bench"
	"github.com/srediag/shmbench/pkg/shm"
)

func newLoopCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loop",
		Short: "Run producer and consumer in this process over a heap ring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.bindFlags(cmd)
			return a.loop(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.Uint64("size-mb", 100, "Transfer size in MiB")
	f.Uint64("capacity", shm.DefaultCapacity, "Ring capacity in bytes")
	f.Uint64("chunk", shm.DefaultMaxChunk, "Largest copy per producer iteration in bytes")
	f.String("pattern", "cycle", "Payload pattern (constant, cycle)")
	f.Int("runs", 3, "Number of consecutive transfers")
	return cmd
}

func (a *app) loop(ctx context.Context) error {
	pattern, err := bench.ParsePattern(a.v.GetString("pattern"))
	if err != nil {
		return err
	}
	runner, err := bench.NewRunner(1)
	if err != nil {
		return err
	}
	defer runner.Release()

	opts := bench.LoopOptions{
		Capacity: a.v.GetUint64("capacity"),
		Total:    a.v.GetUint64("size-mb") << 20,
		MaxChunk: a.v.GetUint64("chunk"),
		Pattern:  pattern,
	}
	for i := 1; i <= a.v.GetInt("runs"); i++ {
		res, err := runner.Run(ctx, opts)
		if err != nil {
			return fmt.Errorf("run %d: %w", i, err)
		}
		a.metrics.Observe(res.Report)
		a.heartbeat("loop")
		fmt.Printf("run %d: ", i)
		if _, err := res.Report.WriteTo(os.Stdout); err != nil {
			return err
		}
		if res.Mismatch >= 0 {
			return fmt.Errorf("run %d: payload differs from %s pattern at offset %d", i, pattern, res.Mismatch)
		}
	}
	return nil
}
