// Command respkv-server runs a respkv node as a primary, or as a replica
// when --replicaof is given.
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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/raniellyferreira/respkv"
	"github.com/raniellyferreira/respkv/config"
)

func main() {
	if err := app().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func app() *cli.App {
	return &cli.App{
		Name:    "respkv-server",
		Usage:   "RESP key-value server with replica handshake support",
		Version: respkv.VersionString(),
		Flags:   serverFlags(),
		Action:  run,
	}
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML configuration file",
			EnvVars: []string{"RESPKV_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "bind",
			Usage: "Address to listen on",
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to listen on",
		},
		&cli.StringFlag{
			Name:  "replicaof",
			Usage: `Run as a replica of "host port"`,
		},
		&cli.DurationFlag{
			Name:  "connect-timeout",
			Usage: "Time allowed for each handshake attempt",
		},
		&cli.IntFlag{
			Name:  "handshake-attempts",
			Usage: "Handshake attempts before giving up",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: trace, debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: text, json",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Serve Prometheus metrics on this address",
		},
	}
}

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"bind":               "server.bind",
	"port":               "server.port",
	"replicaof":          "replication.replicaof",
	"connect-timeout":    "replication.connect_timeout",
	"handshake-attempts": "replication.max_attempts",
	"log-level":          "log.level",
	"log-format":         "log.format",
	"metrics-addr":       "metrics.addr",
}

// setFlags returns the flags given on the command line as config keys,
// so that unset flags do not shadow the file or environment.
func setFlags(c *cli.Context) map[string]any {
	out := make(map[string]any)
	for name, key := range flagKeys {
		if c.IsSet(name) {
			out[key] = c.Value(name)
		}
	}
	return out
}

func run(c *cli.Context) error {
	opts := []config.Option{config.WithFlags(setFlags(c))}
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := respkv.NewLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting respkv-server", "version", respkv.VersionString(), "addr", cfg.Addr())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	node, err := respkv.New(
		respkv.WithConfig(cfg),
		respkv.WithLogger(logger),
		respkv.WithMetrics(registry),
	)
	if err != nil {
		return err
	}
	defer node.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := node.Start(ctx); err != nil {
		return err
	}

	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		metricsServer = serveMetrics(cfg.Metrics.Addr, registry, logger)
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown failed", "error", err)
		}
	}

	return node.Close()
}

func serveMetrics(addr string, registry *prometheus.Registry, logger respkv.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()

	return srv
}
