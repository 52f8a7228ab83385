package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/srediag/shmbench/pkg/bench"
	"github.com/srediag/shmbench/pkg/health"
	"github.com/srediag/shmbench/pkg/shm"
)

const version = "0.1.0"

// app carries what every subcommand shares once the root command has parsed
// the global flags.
type app struct {
	v       *viper.Viper
	log     *zap.Logger
	reg     *prometheus.Registry
	metrics *bench.Metrics
	// admin is nil unless --admin-addr is set.
	admin *health.Server
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "shmbench",
		Short: "Shared memory ring throughput benchmark",
		Long: `shmbench moves a byte stream from a producer process to a consumer
process through a lock-free ring in a named shared memory region and reports
the throughput seen by the consumer.

Run "shmbench produce NAME" and "shmbench consume NAME" in two terminals, or
"shmbench loop" for an in-process pair.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	f := cmd.PersistentFlags()
	f.String("config", "", "Config file (yaml, json or toml)")
	f.String("log-level", "warn", "Log level (trace, debug, info, warn, error, silent)")
	f.String("admin-addr", "", "Serve /live, /ready and /metrics on this address")
	_ = a.v.BindPFlags(f)

	a.v.SetEnvPrefix("SHMBENCH")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	cmd.AddCommand(
		newProduceCommand(a),
		newConsumeCommand(a),
		newLoopCommand(a),
		newInspectCommand(a),
	)
	return cmd
}

func (a *app) setup(ctx context.Context) error {
	if file := a.v.GetString("config"); file != "" {
		a.v.SetConfigFile(file)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	zl, shmLevel, err := parseLevel(a.v.GetString("log-level"))
	if err != nil {
		return err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zl)
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true
	if a.log, err = cfg.Build(); err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	shm.SetLogger(a.log.Named("shm"))
	shm.SetLogLevel(shmLevel)

	a.reg = prometheus.NewRegistry()
	a.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if a.metrics, err = bench.NewMetrics(a.reg); err != nil {
		return err
	}

	if addr := a.v.GetString("admin-addr"); addr != "" {
		a.admin = health.NewServer(a.reg, 0, a.log.Named("admin"))
		if _, err := a.admin.Start(addr); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) teardown() error {
	if a.admin != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.admin.Shutdown(ctx); err != nil {
			a.log.Warn("admin shutdown", zap.Error(err))
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return nil
}

// reportHealth forwards to the admin server when one is running.
func (a *app) reportHealth(component string, err error) {
	if a.admin != nil {
		a.admin.ReportHealth(component, err)
	}
}

func (a *app) heartbeat(component string) {
	if a.admin != nil {
		a.admin.Heartbeat(component)
	}
}

// shm log levels: 0 trace, 1 debug, 2 info, 3 warn, 4 error, 5 silent.
func parseLevel(s string) (zapcore.Level, int, error) {
	switch strings.ToLower(s) {
	case "trace":
		return zapcore.DebugLevel, 0, nil
	case "debug":
		return zapcore.DebugLevel, 1, nil
	case "info":
		return zapcore.InfoLevel, 2, nil
	case "warn", "warning":
		return zapcore.WarnLevel, 3, nil
	case "error":
		return zapcore.ErrorLevel, 4, nil
	case "silent", "none":
		return zapcore.FatalLevel, 5, nil
	}
	return 0, 0, fmt.Errorf("unknown log level %q", s)
}

// bindFlags makes the command's local flags resolvable through viper so
// that config file keys and SHMBENCH_* variables override their defaults.
func (a *app) bindFlags(cmd *cobra.Command) {
	_ = a.v.BindPFlags(cmd.Flags())
}
