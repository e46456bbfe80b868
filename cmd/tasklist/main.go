package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/browser"

	"github.com/ent0n29/tasklist/internal/app"
	"github.com/ent0n29/tasklist/internal/config"
	"github.com/ent0n29/tasklist/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	built, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := built.Cleanup(); err != nil {
			logger.Error("cleanup failed", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           built.API.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Websocket connections are hijacked and not tracked by Shutdown.
	httpServer.RegisterOnShutdown(built.Events.Close)

	listener, err := net.Listen("tcp", cfg.BindAddr)
	if err != nil {
		logger.Error("listen failed", "addr", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("server listening", "addr", listener.Addr().String(), "store", built.Tasks.StoreKind())
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve error", "error", err)
			os.Exit(1)
		}
	}()

	if cfg.OpenBrowser {
		openBrowser(logger, browserURL(listener.Addr().String()))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
		_ = httpServer.Close()
	}

	logger.Info("shutdown complete")
}

// browserURL turns a listen address into something a local browser can
// reach; wildcard hosts become loopback.
func browserURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/"
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

func openBrowser(logger *slog.Logger, url string) {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	if err := browser.OpenURL(url); err != nil {
		logger.Warn("could not open browser", "url", url, "error", err)
		return
	}
	logger.Info("opened browser", "url", url)
}
