package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	internalshm "github.com/srediag/shmbench/internal/shm"
)

func execute(ctx context.Context, args ...string) error {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func TestParseLevel(t *testing.T) {
	zl, n, err := parseLevel("INFO")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, zl)
	assert.Equal(t, 2, n)

	_, n, err = parseLevel("silent")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, _, err = parseLevel("loud")
	assert.Error(t, err)
}

func TestLoopCommand(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, execute(ctx, "loop", "--size-mb", "1", "--capacity", "65536", "--chunk", "4096", "--runs", "2", "--log-level", "error"))

	t.Setenv("SHMBENCH_PATTERN", "bogus")
	assert.Error(t, execute(ctx, "loop", "--size-mb", "1", "--runs", "1"))
}

func TestProduceConsume(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	name := fmt.Sprintf("cli-test-%d-%d", os.Getpid(), time.Now().UnixNano())

	var wg sync.WaitGroup
	var perr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		perr = execute(ctx, "produce", name, "--size-mb", "2", "--capacity", "65536", "--chunk", "8192",
			"--pattern", "cycle", "--log-level", "error")
	}()
	cerr := execute(ctx, "consume", name, "--wait", "10s", "--verify", "cycle", "--log-level", "error")
	wg.Wait()
	require.NoError(t, perr)
	require.NoError(t, cerr)
	assert.False(t, internalshm.Exists(name))
}

func TestConsumeMissingRegion(t *testing.T) {
	err := execute(context.Background(), "consume", "cli-test-missing", "--wait", "0s", "--log-level", "silent")
	assert.Error(t, err)
}
