package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lithammer/dedent"
	"github.com/mixaill76/auto_ai_vision/internal/config"
	"github.com/mixaill76/auto_ai_vision/internal/httputil"
	"github.com/mixaill76/auto_ai_vision/internal/logger"
	"github.com/mixaill76/auto_ai_vision/internal/monitoring"
	"github.com/mixaill76/auto_ai_vision/internal/remote"
	"github.com/mixaill76/auto_ai_vision/internal/tokencost"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// app holds the components shared by all subcommands.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *monitoring.Metrics
	fetcher *remote.Fetcher
	version tokencost.Version
	detail  tokencost.Detail
}

func newApp(cfg *config.Config, log *slog.Logger) (*app, error) {
	version, detail, err := cfg.Cost.Parse()
	if err != nil {
		return nil, err
	}

	metrics := monitoring.New(cfg.Monitoring.PrometheusEnabled)

	httpCfg := httputil.DefaultHTTPClientConfig()
	httpCfg.Timeout = cfg.Fetch.Timeout
	httpCfg.MaxRedirects = cfg.Fetch.MaxRedirects

	opts := []remote.Option{
		remote.WithHTTPClient(httputil.NewHTTPClient(httpCfg)),
		remote.WithChunkSizes(cfg.Fetch.DownloadChunkSize, cfg.Fetch.SniffChunkSize),
		remote.WithMaxDownloadBytes(cfg.Fetch.MaxDownloadBytes()),
		remote.WithUserAgent(cfg.Fetch.UserAgent),
		remote.WithMetrics(metrics),
		remote.WithLogger(log),
	}
	if cfg.Cache.Enabled {
		cache, err := remote.NewMetadataCache(cfg.Cache.Size, cfg.Cache.TTL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, remote.WithCache(cache))
	}

	return &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		fetcher: remote.NewFetcher(opts...),
		version: version,
		detail:  detail,
	}, nil
}

// writeMetrics dumps the collected metrics for a node_exporter textfile collector.
func (a *app) writeMetrics() error {
	if !a.cfg.Monitoring.PrometheusEnabled || a.cfg.Monitoring.MetricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.cfg.Monitoring.MetricsFile, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	a.log.Debug("Metrics written", "path", a.cfg.Monitoring.MetricsFile)
	return nil
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
		a          *app
	)

	root := &cobra.Command{
		Use:   "visionctl",
		Short: "Inspect image references in multimodal queries",
		Long: strings.TrimSpace(dedent.Dedent(`
			visionctl splits queries into text and images, sniffs remote image
			dimensions without downloading them, and estimates image token costs.

			Images are referenced inline:
			  !path/to/image.png
			  !"path with spaces/image.png"
			  !https://example.com/image.jpg
		`)),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if logLevel != "" {
				cfg.LoggingLevel = logLevel
			}
			cfg.Normalize()
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LoggingLevel)
			config.PrintConfig(log, cfg)

			var err error
			a, err = newApp(cfg, log)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.writeMetrics()
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Logging level: debug, info or error")

	appFn := func() *app { return a }
	root.AddCommand(
		newSegmentCmd(appFn),
		newSniffCmd(appFn),
		newCostCmd(appFn),
	)
	return root
}

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
