package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/halti-agent/pkg/config"
	"github.com/cuemby/halti-agent/pkg/engine"
	"github.com/cuemby/halti-agent/pkg/handoff"
	"github.com/cuemby/halti-agent/pkg/log"
	"github.com/cuemby/halti-agent/pkg/masterclient"
	"github.com/cuemby/halti-agent/pkg/metrics"
	"github.com/cuemby/halti-agent/pkg/reconciler"
	"github.com/cuemby/halti-agent/pkg/state"
	"github.com/cuemby/halti-agent/pkg/supervisor"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

const heartbeatRequestTimeoutFraction = 2

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "halti-agent",
	Short:   "Halti node agent: reconciles local containers against a master's desired state",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("halti-agent version %s\nCommit: %s\n", Version, Commit))
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Register with the master (if not already) and run the reconciliation loop",
	RunE:  runAgent,
}

func init() {
	runCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address to serve /metrics on")
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log.Init(log.Config{Level: cfg.LogLevel, JSONOutput: true})
	logger := log.WithComponent("main")

	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Error().Err(err).Msg("metrics server exited")
		}
	}()
	logger.Info().Str("addr", metricsAddr).Msg("serving metrics")

	eng, err := engine.New(cfg.ContainerdSocket, cfg.AllowInsecRegistry)
	if err != nil {
		return fmt.Errorf("connect to container engine: %w", err)
	}
	defer eng.Close()

	masterHTTP := masterclient.New(cfg.MasterURL, 0)

	persisted, err := state.Load(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("load persisted state: %w", err)
	}

	if persisted == nil {
		descriptor := state.BuildDescriptor("containerd", eng.EngineVersion(context.Background()))
		resp, err := masterHTTP.Register(context.Background(), descriptor)
		if err != nil {
			return fmt.Errorf("register with master: %w", err)
		}
		persisted = &state.Persisted{
			InstanceID:        resp.InstanceID,
			HeartbeatInterval: resp.HeartbeatInterval,
		}
		if err := persisted.Save(cfg.StatePath); err != nil {
			return fmt.Errorf("persist registration: %w", err)
		}
		logger.Info().Str("instance_id", persisted.InstanceID).Msg("registered with master")
	} else {
		logger.Info().Str("instance_id", persisted.InstanceID).Msg("resuming with persisted registration")
	}

	heartbeatInterval := time.Duration(persisted.HeartbeatInterval) * time.Second
	if heartbeatInterval <= 0 {
		return fmt.Errorf("persisted heartbeat_interval must be positive, got %d", persisted.HeartbeatInterval)
	}
	masterHTTP = masterclient.New(cfg.MasterURL, heartbeatInterval/heartbeatRequestTimeoutFraction)
	instance := masterHTTP.Bind(persisted.InstanceID)

	slot := handoff.New()
	rec := reconciler.New(cfg.PortBindIP)

	worker := supervisor.NewWorker(slot, rec, eng, instance)
	super := supervisor.New(instance, eng, slot, heartbeatInterval)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go worker.Run(ctx)

	logger.Info().Dur("heartbeat_interval", heartbeatInterval).Msg("agent running")
	code := super.Run(ctx, worker.Done())
	logger.Info().Int("exit_code", code).Msg("agent stopped")

	os.Exit(code)
	return nil
}
