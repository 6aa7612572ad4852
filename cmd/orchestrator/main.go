// Command orchestrator runs the C1-C5 coordination core: agent
// registration, pose/mask reporting, world-state broadcast, bulk mask
// transfer, and the admin/metrics surface. Configuration is
// environment-variable only (spec.md §1 puts CLI parsing out of scope),
// unlike the teacher's flag.NewFlagSet-per-subcommand convention.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	grpcprometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/apache/arrow/go/v16/arrow/flight"

	"github.com/reconsim/orchestrator/internal/admin"
	"github.com/reconsim/orchestrator/internal/aggregator"
	"github.com/reconsim/orchestrator/internal/broadcast"
	"github.com/reconsim/orchestrator/internal/bulk"
	"github.com/reconsim/orchestrator/internal/config"
	"github.com/reconsim/orchestrator/internal/metrics"
	"github.com/reconsim/orchestrator/internal/pointcloud"
	"github.com/reconsim/orchestrator/internal/registry"
	"github.com/reconsim/orchestrator/internal/rpcserver"
	"github.com/reconsim/orchestrator/internal/sim"
	"github.com/reconsim/orchestrator/internal/supervisor"
	"github.com/reconsim/orchestrator/internal/ticket"
	"github.com/reconsim/orchestrator/internal/tracing"
	"github.com/reconsim/orchestrator/internal/wire"
	"github.com/reconsim/orchestrator/internal/world"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	logger := log.WithField("component", "orchestrator")

	cfg, err := config.LoadOrchestrator()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exporter, err := tracing.Start(ctx, "reconsim-orchestrator", os.Getenv("ORCHESTRATOR_TRACE_COLLECTOR_ADDR"), logger)
	if err != nil {
		logger.WithError(err).Warn("tracing not started")
	}
	defer exporter.Stop()

	pointCloud, err := pointcloud.NewLoader(cfg.PointCloudPath, logger.WithField("subcomponent", "pointcloud"))
	if err != nil {
		logger.WithError(err).Fatal("failed to load point cloud metadata")
	}
	go func() {
		if err := pointCloud.Watch(ctx); err != nil {
			logger.WithError(err).Warn("point cloud watcher exited")
		}
	}()

	// agents is referenced by its own onExpire closure below, so it's
	// declared first and assigned after construction: onExpire only
	// fires once the grace-period timer elapses, well after New
	// returns, so the closure's capture is populated by then.
	var agents *registry.Registry
	agents = registry.New(cfg.GracePeriod, func(id sim.AgentID) {
		metrics.DeleteAgentSeries(uint64(id))
		metrics.AgentsActive.Set(float64(agents.Len()))
	})
	agg := aggregator.New()
	tickets := ticket.New(cfg.TicketTTL, cfg.TicketCapacity)
	bc := broadcast.New(cfg.BroadcastWindow)
	state := world.New(tickets, agg, agents, bc, pointCloud)

	sweeper := registry.NewSweeper(agents, cfg.SweepInterval, cfg.StaleAfter(), logger.WithField("subcomponent", "sweeper"))
	go sweeper.Run(ctx)

	rpc := rpcserver.New(state, cfg.ReportInterval, cfg.MaxReportBytes, logger.WithField("subcomponent", "rpcserver"))

	grpcServer := grpc.NewServer(append(rpcserver.ServerOptions(), grpc.StatsHandler(tracing.ServerHandler()))...)
	grpcprometheus.Register(grpcServer)
	wire.RegisterOrchestratorServer(grpcServer, rpc)

	flightServer := bulk.New(state)
	flightGRPCServer := grpc.NewServer(grpc.StatsHandler(tracing.ServerHandler()))
	flight.RegisterFlightServiceServer(flightGRPCServer, flightServer)

	sup := supervisor.New(cfg.AgentBinaryPath, nil, logger.WithField("subcomponent", "supervisor"))
	if sup.Enabled() {
		if err := sup.Start(ctx); err != nil {
			logger.WithError(err).Error("failed to start supervised agent process")
		}
	}

	var ready atomic.Bool
	adminServer := admin.NewServer(cfg.MetricsListenAddr, &ready, rpc)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.WithField("addr", cfg.MetricsListenAddr).Info("starting admin server")
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("admin server error")
		}
	}()

	grpcLis, err := net.Listen("tcp", cfg.GRPCListenAddr)
	if err != nil {
		logger.WithError(err).Fatal("failed to listen for control-plane gRPC")
	}
	go func() {
		logger.WithField("addr", cfg.GRPCListenAddr).Info("starting control-plane gRPC server")
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.WithError(err).Error("control-plane gRPC server stopped")
		}
	}()

	flightLis, err := net.Listen("tcp", cfg.FlightListenAddr)
	if err != nil {
		logger.WithError(err).Fatal("failed to listen for bulk payload Flight server")
	}
	go func() {
		logger.WithField("addr", cfg.FlightListenAddr).Info("starting bulk payload Flight server")
		if err := flightGRPCServer.Serve(flightLis); err != nil {
			logger.WithError(err).Error("bulk payload Flight server stopped")
		}
	}()

	ready.Store(true)

	<-stop
	logger.Info("shutdown signal received, draining")

	cancel()
	sup.Stop()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer drainCancel()

	grpcServer.GracefulStop()
	flightGRPCServer.GracefulStop()
	adminServer.Shutdown(drainCtx)

	logger.Info("orchestrator stopped")
}
