// Command factorlens asks the analysis backend what drives an item and
// shows the ranked factors as they stream in.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ahrav/go-factorlens/infrastructure/middleware"
	"github.com/ahrav/go-factorlens/internal/application"
)

var (
	// Global flags
	configPath  string
	verbose     bool
	apiURL      string
	streamURL   string
	timeout     time.Duration
	metricsAddr string

	logger  *zap.Logger
	cfg     application.Config
	metrics *middleware.PrometheusMetrics
)

var rootCmd = &cobra.Command{
	Use:   "factorlens",
	Short: "Explore the ranked factors behind an item",
	Long: `factorlens submits an item (a product, a plan, anything you are weighing)
to the analysis backend and streams back the factors that drive it, ranked
by importance, with recommendations and a price-to-performance score.

Run without arguments to start the interactive chat.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}

		// The chat owns the terminal, so it does not log to it.
		if cmd.Name() == "chat" || cmd == cmd.Root() {
			logger = zap.NewNop()
		} else {
			zc := zap.NewProductionConfig()
			level, err := zapcore.ParseLevel(cfg.Logging.Level)
			if err != nil {
				level = zapcore.InfoLevel
			}
			if verbose {
				level = zapcore.DebugLevel
			}
			zc.Level = zap.NewAtomicLevelAt(level)
			logger, err = zc.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
		}

		metrics = middleware.NewPrometheusMetrics()
		if metricsAddr != "" {
			return serveMetrics(cmd.Context(), metricsAddr)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend HTTP base URL (overrides config and "+application.EnvAPIURL+")")
	rootCmd.PersistentFlags().StringVar(&streamURL, "ws-url", "", "Backend event channel URL (overrides config and "+application.EnvStreamURL+")")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "How long ask and chart wait for the final results")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(chartCmd)
}

func loadConfig() (application.Config, error) {
	loader, err := application.NewConfigLoader()
	if err != nil {
		return application.Config{}, err
	}
	c, err := loader.Load(configPath)
	if err != nil {
		return application.Config{}, err
	}
	if apiURL != "" {
		c.API.BaseURL = strings.TrimRight(apiURL, "/")
	}
	if streamURL != "" {
		c.Stream.URL = streamURL
	}
	if err := loader.Validate(c); err != nil {
		return application.Config{}, err
	}
	return c, nil
}

// serveMetrics exposes the metrics endpoint until ctx ends.
func serveMetrics(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
