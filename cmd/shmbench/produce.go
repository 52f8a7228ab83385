package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/srediag/shmbench/pkg/bench"
	"github.com/srediag/shmbench/pkg/shm"
)

func newProduceCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "produce NAME",
		Short: "Create a region and stream data into it",
		Long: `Create the named region, stream --size-mb MiB of the chosen pattern through
it and wait until the consumer has drained the ring. Ctrl-C aborts the
transfer; the consumer then reports how many bytes it received.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.bindFlags(cmd)
			return a.produce(cmd.Context(), args[0])
		},
	}
	f := cmd.Flags()
	f.Uint64("size-mb", 100, "Transfer size in MiB")
	f.Uint64("capacity", shm.DefaultCapacity, "Ring capacity in bytes")
	f.Uint64("chunk", shm.DefaultMaxChunk, "Largest copy per producer iteration in bytes")
	f.String("pattern", "constant", "Payload pattern (constant, cycle)")
	f.Bool("checkpoints", false, "Print the producer checkpoints when done")
	return cmd
}

func (a *app) produce(ctx context.Context, name string) error {
	pattern, err := bench.ParsePattern(a.v.GetString("pattern"))
	if err != nil {
		return err
	}
	cfg := shm.DefaultConfig()
	cfg.Name = name
	cfg.Capacity = a.v.GetUint64("capacity")
	cfg.MaxChunk = min(a.v.GetUint64("chunk"), cfg.Capacity)
	total := a.v.GetUint64("size-mb") << 20

	cps := bench.NewCheckpointLog(32)
	defer cps.Close()
	cfg.Checkpoint = func(c shm.Checkpoint) {
		cps.Record(c)
		a.heartbeat("producer")
	}

	seg, err := shm.Create(ctx, cfg, total)
	if err != nil {
		a.reportHealth("producer", err)
		return err
	}
	defer func() {
		if err := seg.Close(); err != nil {
			a.log.Warn("close region", zap.Error(err))
		}
	}()
	a.reportHealth("producer", nil)
	a.log.Info("region ready, waiting for a consumer",
		zap.String("path", seg.Path()),
		zap.Uint64("capacity", cfg.Capacity),
		zap.Uint64("total", total),
		zap.Stringer("pattern", pattern))

	p := shm.NewProducer(seg.Region, cfg)
	stop := context.AfterFunc(ctx, func() {
		if p.Abort() {
			a.log.Warn("interrupted, aborting transfer")
		}
	})
	defer stop()

	stats, err := p.Run(ctx, bench.NewSource(pattern))
	if a.v.GetBool("checkpoints") {
		_, _ = cps.WriteTo(os.Stderr)
	}
	fmt.Printf("Produced %d of %d bytes (%s) in %.3fs\n",
		stats.Produced, stats.Total, stats.State, stats.Elapsed.Seconds())
	return err
}
