package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/spawnpool/internal/host"
	"github.com/ajitpratap0/spawnpool/pkg/config"
	"github.com/ajitpratap0/spawnpool/pkg/errors"
	"github.com/ajitpratap0/spawnpool/pkg/logger"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SPAWNPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "spawnpool",
		Short: "spawnpool - scoped prototype object pooling",
		Long: `spawnpool prewarms pools of prototype instances, scopes them to scenes,
and serves spawn/despawn requests without allocating in steady state.

Configuration is read from a YAML file (--config or SPAWNPOOL_CONFIG).`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringP("config", "c", "spawnpool.yaml", "Path to YAML configuration file")
	root.PersistentFlags().String("log-level", "", "Log level override (debug, info, warn, error)")
	_ = v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		newVersionCmd(),
		newValidateCmd(v),
		newSimulateCmd(v),
		newServeCmd(v),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "spawnpool v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate loads the configuration, checks every pool entry and reports
duplicate entries. Duplicates are warnings: the first entry wins.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "configuration %q is valid: %d shared entries, %d scenes\n",
				cfg.Name, len(cfg.Shared), len(cfg.Scenes))
			for _, name := range cfg.SceneNames() {
				fmt.Fprintf(out, "  scene %s: %d entries\n", name, len(cfg.Scenes[name]))
			}
			for section, prototypes := range cfg.Duplicates() {
				fmt.Fprintf(out, "warning: %s has duplicate entries for %s (first entry wins)\n",
					section, strings.Join(prototypes, ", "))
			}
			return nil
		},
	}
}

func newSimulateCmd(v *viper.Viper) *cobra.Command {
	var frames int
	var sceneName, output string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the configured spawn/despawn workload and print a report",
		Long: `Simulate starts a host, loads the simulation scene and steps the configured
workloads frame by frame. The JSON report lists spawns, despawns, failures by
error type and per-pool statistics.

Example:
  spawnpool simulate --config arena.yaml --frames 1200 --output report.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("frames") {
				cfg.Simulation.Frames = frames
			}
			if sceneName != "" {
				cfg.Simulation.Scene = sceneName
			}
			log, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := runSimulation(ctx, cfg, log)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), output, report)
		},
	}

	cmd.Flags().IntVar(&frames, "frames", 0, "Number of frames to simulate (overrides simulation.frames)")
	cmd.Flags().StringVar(&sceneName, "scene", "", "Scene to load before the first frame (overrides simulation.scene)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Report destination file, - for stdout")
	return cmd
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	var metricsAddr string
	var watch bool
	var frames int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the workload continuously and expose Prometheus metrics",
		Long: `Serve starts a host, steps the configured workloads until interrupted and
exposes /metrics and /stats over HTTP. With --watch, edits to the
configuration file update scene entries for subsequent scene loads.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				cfg.Metrics.Addr = metricsAddr
			}
			cfg.Metrics.Enabled = true
			if cfg.Simulation.FrameInterval <= 0 {
				cfg.Simulation.FrameInterval = 16 * time.Millisecond
			}
			log, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			configPath := ""
			if watch {
				configPath = v.GetString("config")
			}
			return serve(ctx, cfg, configPath, frames, log)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Metrics listen address (overrides metrics.addr)")
	cmd.Flags().BoolVar(&watch, "watch", true, "Reload scene entries when the configuration file changes")
	cmd.Flags().IntVar(&frames, "frames", 0, "Stop after this many frames (0 runs until interrupted)")
	return cmd
}

// loadConfig loads the configuration named by the config flag or
// SPAWNPOOL_CONFIG and applies the log level override
func loadConfig(v *viper.Viper) (*config.Config, error) {
	path := v.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level := v.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

func setupLogger(cfg *config.Config) (*zap.Logger, error) {
	err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Encoding:    cfg.Logging.Encoding,
		OutputPaths: cfg.Logging.OutputPaths,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize logger")
	}
	return logger.With(zap.String("component", "spawnpool-cli")), nil
}

// runSimulation runs cfg's simulation on a fresh host whose metrics stay
// private to the run
func runSimulation(ctx context.Context, cfg *config.Config, log *zap.Logger) (*host.Report, error) {
	h, err := host.New(cfg, entityHooks(),
		host.WithLogger(log),
		host.WithRegisterer(prometheus.NewRegistry()))
	if err != nil {
		return nil, err
	}
	if err := h.Start(ctx); err != nil {
		return nil, err
	}

	report, runErr := host.NewSimulator(h, cfg.Simulation, host.WithUpdate(advance)).Run(ctx, cfg.Simulation.Frames)
	if err := h.Close(context.Background()); err != nil {
		log.Warn("failed to close host", zap.Error(err))
	}
	if runErr != nil && report == nil {
		return nil, runErr
	}
	if runErr != nil {
		log.Warn("simulation stopped early", zap.Error(runErr), zap.Int("frames", report.Frames))
	}
	return report, nil
}

func writeReport(stdout io.Writer, output string, report *host.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode report")
	}
	data = append(data, '\n')

	if output == "" || output == "-" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write report").
			WithDetail("file", output)
	}
	return nil
}

// newServeMux exposes metrics from gatherer and the host's pool statistics
func newServeMux(h *host.Host[*entity], gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Scene string `json:"active_scene"`
			Pools any    `json:"pools"`
		}{
			Scene: h.Scenes().Active(),
			Pools: h.Stats(),
		})
	})
	return mux
}

func serve(ctx context.Context, cfg *config.Config, configPath string, frames int, log *zap.Logger) error {
	h, err := host.New(cfg, entityHooks(),
		host.WithLogger(log),
		host.WithRegisterer(prometheus.DefaultRegisterer))
	if err != nil {
		return err
	}
	if err := h.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := h.Close(context.Background()); err != nil {
			log.Warn("failed to close host", zap.Error(err))
		}
	}()

	server := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           newServeMux(h, prometheus.DefaultGatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var wg sync.WaitGroup
	serverErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("metrics server listening", zap.String("addr", cfg.Metrics.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	simCtx, cancelSim := context.WithCancel(ctx)
	defer cancelSim()

	if configPath != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.Watch(simCtx, configPath); err != nil {
				log.Warn("config watcher stopped", zap.Error(err))
			}
		}()
	}

	if frames <= 0 {
		frames = math.MaxInt
	}
	go func() {
		select {
		case err := <-serverErr:
			log.Error("metrics server failed", zap.Error(err))
			serverErr <- err
			cancelSim()
		case <-simCtx.Done():
		}
	}()

	report, runErr := host.NewSimulator(h, cfg.Simulation, host.WithUpdate(advance)).Run(simCtx, frames)
	cancelSim()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("metrics server shutdown failed", zap.Error(err))
	}
	wg.Wait()

	if report != nil {
		log.Info("serve finished",
			zap.Int("frames", report.Frames),
			zap.Int64("spawned", report.Spawned),
			zap.Int64("despawned", report.Despawned))
	}

	select {
	case err := <-serverErr:
		return errors.Wrap(err, errors.ErrorTypeInternal, "metrics server failed")
	default:
	}
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}
