package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/greenloop/binsim/internal/api"
	"github.com/greenloop/binsim/internal/backend"
	"github.com/greenloop/binsim/internal/config"
	"github.com/greenloop/binsim/internal/fleet"
	"github.com/greenloop/binsim/internal/observability"
	"github.com/greenloop/binsim/internal/ws"
)

func main() {
	listen := flag.String("listen", "", "listen address (overrides LISTEN)")
	flag.Parse()

	cfg := config.FromEnv()
	if *listen != "" {
		cfg.Listen = *listen
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "binsim",
	})

	metrics, err := observability.NewCollector(nil)
	if err != nil {
		logger.Fatal("metrics init", "err", err)
	}

	var notifier backend.Notifier = backend.Nop{}
	if cfg.BackendURL != "" {
		logger.Info("backend forwarding enabled", "url", cfg.BackendURL)
		c := backend.NewClient(cfg.BackendURL, logger)
		c.Metrics = metrics
		notifier = c
	}

	f := fleet.New(fleet.Options{
		Notifier:     notifier,
		Metrics:      metrics,
		Logger:       logger,
		TickInterval: cfg.TickInterval,
	})

	wsHandler := &ws.Handler{
		Upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		Fleet:       f,
		SendBufSize: cfg.WSSendBuffer,
		Logger:      logger,
	}

	router := api.NewRouter(f, metrics.Handler(), wsHandler)

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("virtual bin simulator listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	f.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
