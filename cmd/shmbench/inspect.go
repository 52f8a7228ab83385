package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gosuri/uilive"
	"github.com/spf13/cobra"

	"github.com/srediag/shmbench/pkg/shm"
)

func newInspectCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect NAME",
		Short: "Show the live counters of a region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.bindFlags(cmd)
			return a.inspect(cmd.Context(), args[0])
		},
	}
	f := cmd.Flags()
	f.Duration("interval", time.Second, "Refresh interval")
	f.Duration("wait", 0, "How long to wait for the region to appear")
	return cmd
}

func (a *app) inspect(ctx context.Context, name string) error {
	seg, err := shm.Attach(ctx, shm.Config{Name: name}, a.v.GetDuration("wait"))
	if err != nil {
		return err
	}
	defer seg.Close()

	ticker := time.NewTicker(a.v.GetDuration("interval"))
	defer ticker.Stop()
	writer := uilive.New()

	capacity := writer.Newline()
	total := writer.Newline()
	written := writer.Newline()
	read := writer.Newline()
	used := writer.Newline()
	producer := writer.Newline()
	consumer := writer.Newline()

	// start listening for updates and render
	writer.Start()
	defer writer.Stop()

	render := func() shm.Snapshot {
		s := seg.Snapshot()
		fmt.Fprintf(capacity, "Capacity: %d\n", s.Capacity)
		fmt.Fprintf(total, "Total: %d (published: %t)\n", s.TotalBytes, s.Published)
		fmt.Fprintf(written, "Written: %d\n", s.WritePosition)
		fmt.Fprintf(read, "Read: %d\n", s.ReadPosition)
		fmt.Fprintf(used, "Used: %d\n", s.Used())
		fmt.Fprintf(producer, "Producer: %s (pid %d)\n", s.ProducerState, s.ProducerPID)
		fmt.Fprintf(consumer, "Consumer: %s (pid %d)\n", s.ConsumerState, s.ConsumerPID)
		return s
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if s := render(); s.ConsumerState.Terminal() {
				return nil
			}
		}
	}
}
