// rxflow runs the demonstration pipelines and inspects the scheduler registry.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vnykmshr/rxflow/internal/scenario"
	"github.com/vnykmshr/rxflow/pkg/config"
	"github.com/vnykmshr/rxflow/pkg/logger"
	"github.com/vnykmshr/rxflow/pkg/metrics"
	"github.com/vnykmshr/rxflow/pkg/scheduling/scheduler"
)

const shutdownTimeout = 5 * time.Second

var (
	configFile  string
	envFile     string
	metricsAddr string
	verbose     bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rxflow",
		Short: "Producer/consumer pipelines over named schedulers",
		Long: `rxflow demonstrates how producers and consumers are placed on execution
contexts by the computation, io, single and new-thread schedulers.

Examples:
  # Run every scenario
  rxflow scenario

  # Run the delivery rehoming scenario with Prometheus metrics exposed
  rxflow scenario rehome --metrics-addr :9090
`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file (default: ./.env when present)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(scenarioCmd())
	rootCmd.AddCommand(schedulersCmd())
	return rootCmd
}

// app is the runtime assembled from configuration.
type app struct {
	log      *logger.Logger
	registry *scheduler.Registry
	metrics  *metrics.Registry
	server   *http.Server
}

func newApp() (*app, error) {
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if metricsAddr != "" {
		cfg.Metrics.Enabled = true
	}

	log, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}

	a := &app{log: log}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		a.metrics = cfg.MetricsRegistry(reg)
		if metricsAddr != "" {
			a.serveMetrics(reg)
		}
	}
	a.registry = scheduler.NewRegistry(cfg.Registry(),
		scheduler.WithLogger(log),
		scheduler.WithMetrics(a.metrics),
	)
	return a, nil
}

func (a *app) serveMetrics(reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.server = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("metrics server failed")
		}
	}()
	a.log.Info("serving metrics", map[string]interface{}{"addr": metricsAddr})
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.registry.Shutdown(ctx); err != nil {
		a.log.WithError(err).Warn("scheduler shutdown incomplete")
	}
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.log.WithError(err).Warn("metrics server shutdown incomplete")
		}
	}
	_ = a.log.Close()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func scenarioCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "scenario [name...]",
		Short:     "Run demonstration pipelines (default: all)",
		ValidArgs: scenario.Names(),
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = scenario.Names()
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signalContext()
			defer stop()

			env := scenario.Env{Log: a.log, Registry: a.registry, Metrics: a.metrics}
			for _, name := range args {
				report, err := scenario.Run(ctx, name, env)
				if err != nil {
					return fmt.Errorf("scenario %s: %w", name, err)
				}
				a.log.Info("scenario finished", map[string]interface{}{
					"scenario":    name,
					"state":       report.State.String(),
					"received":    len(report.Received),
					"duration_ms": report.Elapsed.Milliseconds(),
				})
			}
			return nil
		},
	}
}

func schedulersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedulers",
		Short: "List the well-known schedulers and their policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			for _, name := range a.registry.Names() {
				s, err := a.registry.Get(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-12s %s\n", name, s.Policy())
			}
			return nil
		},
	}
}
