// Command shmbench measures the throughput of a lock-free single-producer
// single-consumer ring placed in shared memory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	internalshm "github.com/srediag/shmbench/internal/shm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	// Mappings left behind by an interrupted command.
	if cerr := internalshm.CloseAll(context.Background()); cerr != nil {
		fmt.Fprintf(os.Stderr, "Error: cleanup: %v\n", cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
