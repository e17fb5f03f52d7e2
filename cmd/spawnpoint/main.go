package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/spawnpoint/internal/cliconfig"
	splog "github.com/bft-labs/spawnpoint/pkg/log"
	"github.com/bft-labs/spawnpoint/pkg/metrics"
	"github.com/bft-labs/spawnpoint/pkg/spawnpoint"
	"github.com/bft-labs/spawnpoint/plugins/codewatcher"
)

const helpDescription = `
Run a service lifecycle host: graceful shutdown with escalation, application
codes with threshold alerts, and fair rotation over configured collections.

Signals:
  SIGINT, SIGTERM, SIGUSR2  stop (repeat to escalate)
  SIGUSR1                   toggle debug logging
`

var exampleUsage = strings.TrimSpace(`
  spawnpoint --name api --track-errors --codes ./codes.toml
  spawnpoint --config $HOME/.spawnpoint/config.toml --metrics-addr :9090
`)

// metricsSubsystem is the registry id of the metrics HTTP server.
const metricsSubsystem = "metrics-server"

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string
	exitCode := 0

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:          "spawnpoint",
		Short:        "Run a service lifecycle host with graceful shutdown and error tracking",
		Long:         strings.TrimSpace(helpDescription),
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.spawnpoint/config.toml), then apply flag overrides
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			log.Info().Interface("config", cfg).Msg("configuration")

			code, err := run(cmd.Context(), cfg, splog.NewZerologAdapterWithLogger(log))
			exitCode = code
			return err
		},
	}

	// Flags
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.spawnpoint/config.toml)")
	root.Flags().StringVar(&cfg.Name, "name", cfg.Name, "application name used in logs")
	root.Flags().BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging (toggle at runtime with SIGUSR1)")

	root.Flags().IntVar(&cfg.StopAttempts, "stop-attempts", cfg.StopAttempts, "repeated stop signals tolerated before forcing exit")
	root.Flags().DurationVar(&cfg.StopTimeout, "stop-timeout", cfg.StopTimeout, "deadline for graceful shutdown once a second stop arrives")
	root.Flags().BoolVar(&cfg.CatchPanics, "catch-panics", cfg.CatchPanics, "route recovered panics into shutdown once ready")

	root.Flags().BoolVar(&cfg.TrackErrors, "track-errors", cfg.TrackErrors, "count raised codes and fire registered limits")
	root.Flags().StringVar(&cfg.CodesFile, "codes", cfg.CodesFile, "TOML file of code messages, reloaded on change")

	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address (e.g. :9090)")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("spawnpoint")
		os.Exit(1)
	}
	os.Exit(exitCode)
}

// run hosts the application until the lifecycle registry exits and returns
// the exit code it chose.
func run(ctx context.Context, cfg cliconfig.Config, logger *splog.ZerologAdapter) (int, error) {
	exitCh := make(chan int, 1)

	opts := []spawnpoint.Option{
		spawnpoint.WithLogger(logger),
		spawnpoint.WithExitFunc(func(code int) { exitCh <- code }),
	}
	if cfg.CodesFile != "" {
		opts = append(opts, codewatcher.WithDefaultCodeWatcher())
	}

	var reg *prometheus.Registry
	if cfg.MetricsAddr != "" {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, spawnpoint.WithMetrics(metrics.New(reg)))
	}

	app, err := spawnpoint.New(cfg.Spawnpoint(), opts...)
	if err != nil {
		return 1, fmt.Errorf("create spawnpoint: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR2, syscall.SIGUSR1)
	defer signal.Stop(sigCh)

	if err := app.Setup(ctx); err != nil {
		app.Stop()
		return <-exitCh, fmt.Errorf("setup: %w", err)
	}

	if reg != nil {
		serveMetrics(app, cfg.MetricsAddr, reg)
	}

	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGUSR1 {
				app.ToggleDebug()
				continue
			}
			logger.Info("received signal", splog.String("signal", sig.String()))
			// Stop blocks while close handlers run; keep reading signals so
			// repeated stops can escalate.
			go app.Stop()
		case code := <-exitCh:
			return code, nil
		}
	}
}

// serveMetrics runs the Prometheus endpoint as a registered subsystem that
// deregisters once the server has shut down.
func serveMetrics(app *spawnpoint.App, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	app.Register(metricsSubsystem)
	app.OnClose(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			app.Logger().Error("metrics server shutdown failed", splog.Err(err))
		}
		app.Deregister(metricsSubsystem)
	})

	go func() {
		defer app.Recover()
		app.Logger().Info("serving metrics", splog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger().Error("metrics server failed", splog.Err(err))
			app.Stop()
		}
	}()
}
