// Command linkemulator runs the Link Emulator (C6): a standalone TCP
// proxy process applying deterministic network impairments between two
// addresses, plus its own admin/metrics surface.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/reconsim/orchestrator/internal/admin"
	"github.com/reconsim/orchestrator/internal/config"
	"github.com/reconsim/orchestrator/internal/proxy"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	logger := log.WithField("component", "linkemulator")

	cfg, err := config.LoadEmulator()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	imp := proxy.Impairments{
		LatencyMs:       cfg.LatencyMs,
		JitterMs:        cfg.JitterMs,
		RateBps:         cfg.RateBps,
		BucketBytes:     cfg.BucketBytes,
		StallPeriodMs:   cfg.StallPeriodMs,
		StallDurationMs: cfg.StallDurationMs,
	}
	p := proxy.New(cfg.ListenAddr, cfg.TargetAddr, imp, logger.WithField("subcomponent", "proxy"))

	var ready atomic.Bool
	adminServer := admin.NewServer(cfg.MetricsListenAddr, &ready, nil)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.WithField("addr", cfg.MetricsListenAddr).Info("starting admin server")
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("admin server error")
		}
	}()

	go func() {
		logger.WithFields(log.Fields{
			"listen_addr": cfg.ListenAddr,
			"target_addr": cfg.TargetAddr,
		}).Info("starting link emulator")
		if err := p.Run(ctx); err != nil {
			logger.WithError(err).Error("link emulator stopped")
		}
	}()

	ready.Store(true)

	<-stop
	logger.Info("shutdown signal received")

	cancel()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer drainCancel()
	adminServer.Shutdown(drainCtx)

	logger.Info("link emulator stopped")
}
