package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"payloadlog.szuro.net/internal/config"
	"payloadlog.szuro.net/internal/host"
	"payloadlog.szuro.net/internal/input"
	"payloadlog.szuro.net/internal/logger"
)

const readyDelay = 5 * time.Second

func printVersionInfo() {
	fmt.Printf("payloadlogd %s\n", config.Version)
	fmt.Printf("Git commit: %s\n", config.Commit)
	fmt.Printf("Compilation time: %s\n", config.BuildDate)
}

func newInput(conf config.PayloadLogConf, registry *host.Registry, mux *http.ServeMux) (input.Inputer, error) {
	switch conf.Mode {
	case config.FILE_MODE:
		return input.NewFileInput(conf, registry)
	case config.HTTP_MODE:
		return input.NewHTTPInput(conf, registry, mux)
	default:
		return nil, fmt.Errorf("unknown mode %q", conf.Mode)
	}
}

func startHooks(ctx context.Context, conf config.PayloadLogConf, loader *host.Loader) {
	if conf.PluginsDir != "" {
		logger.Info("Loading plugins", slog.String("dir", conf.PluginsDir))
		if err := loader.LoadPluginsFromDir(conf.PluginsDir); err != nil {
			logger.Error("Failed to load plugins", slog.Any("error", err))
		}

		for _, p := range loader.ListPlugins() {
			logger.Info("Loaded plugin",
				slog.String("name", p.Name),
				slog.String("path", p.Path))
		}
	}

	for _, h := range conf.Hooks {
		if _, err := loader.StartHook(ctx, h.Name, h.PluginName, h.PluginOptions()); err != nil {
			logger.Error("Failed to start hook",
				slog.String("name", h.Name),
				slog.String("type", h.PluginName),
				slog.Any("error", err))
		}
	}
}

func main() {
	confPath := flag.String("c", "/etc/payloadlogd.yaml", "Path of config file")
	version := flag.Bool("v", false, "Show version info")
	flag.Parse()

	if *version {
		printVersionInfo()
		os.Exit(0)
	}

	conf, err := config.ParsePayloadLogConfig(*confPath)
	if err != nil {
		logger.Error("Failed to parse config", slog.String("path", *confPath), slog.Any("error", err))
		os.Exit(1)
	}
	logger.SetLogLevel(conf.GetLogLevel())

	ctx := context.Background()
	registry := host.NewRegistry()
	loader := host.NewLoader(registry)
	startHooks(ctx, conf, loader)
	defer loader.CleanupAll(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	inp, err := newInput(conf, registry, mux)
	if err != nil {
		logger.Error("Failed to create input", slog.String("mode", conf.Mode), slog.Any("error", err))
		return
	}
	if err := inp.Prepare(); err != nil {
		logger.Error("Failed to prepare input", slog.Any("error", err))
		return
	}
	config.BuildInfo.Set(1)

	listen := fmt.Sprintf("%s:%d", conf.Http.ListenAddress, conf.Http.ListenPort)
	srv := &http.Server{Addr: listen, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", slog.String("listen", listen), slog.Any("error", err))
		}
	}()

	for !inp.IsReady() {
		logger.Info("Input is not active, sleeping", slog.Duration("delay", readyDelay))
		time.Sleep(readyDelay)
	}

	logger.Info("Input is active", slog.String("mode", conf.Mode), slog.Int("hooks", len(loader.Hooks())))
	inp.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	<-sig

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.Any("error", err))
	}
	if err := inp.Stop(); err != nil {
		logger.Error("stopping failed", slog.Any("error", err))
	}
	logger.Info("Exiting...")
}
