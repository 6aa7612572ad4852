// Package tracing wires OpenCensus trace propagation through the
// control-plane gRPC server and client, exporting to an ocagent
// collector when one is configured. Metrics stay on Prometheus
// (internal/metrics); this package is trace-only.
//
// Grounded on controller/api/public/client.go's (teacher) use of
// go.opencensus.io/plugin/ochttp to instrument an HTTP client; the same
// package's ocgrpc stats handler is the gRPC analogue, installed here as
// a grpc.StatsHandler alongside go-grpc-prometheus's interceptors.
package tracing

import (
	"context"
	"fmt"

	"contrib.go.opencensus.io/exporter/ocagent"
	logging "github.com/sirupsen/logrus"
	"go.opencensus.io/plugin/ocgrpc"
	"go.opencensus.io/trace"
)

// ServerHandler returns the grpc.StatsHandler every control-plane
// *grpc.Server listener should be constructed with
// (grpc.StatsHandler(tracing.ServerHandler())).
func ServerHandler() *ocgrpc.ServerHandler {
	return new(ocgrpc.ServerHandler)
}

// ClientHandler returns the grpc.StatsHandler for an RPC client dialing
// the control plane. Nothing in this module dials such a client itself.
func ClientHandler() *ocgrpc.ClientHandler {
	return new(ocgrpc.ClientHandler)
}

// Exporter owns the ocagent connection and must be stopped on shutdown.
type Exporter struct {
	oc *ocagent.Exporter
}

// Start registers an ocagent exporter for serviceName, reporting traces
// to agentAddr, and samples every trace (there is no load yet worth
// sampling down). If agentAddr is empty, tracing stays local-only: spans
// are still created and propagated over gRPC metadata, just never
// exported anywhere.
func Start(ctx context.Context, serviceName, agentAddr string, log *logging.Entry) (*Exporter, error) {
	trace.ApplyConfig(trace.Config{DefaultSampler: trace.AlwaysSample()})

	if agentAddr == "" {
		log.Info("tracing: no collector address configured, spans stay local")
		return &Exporter{}, nil
	}

	oc, err := ocagent.NewExporter(
		ocagent.WithInsecure(),
		ocagent.WithAddress(agentAddr),
		ocagent.WithServiceName(serviceName),
		ocagent.WithReconnectionPeriod(0),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: start ocagent exporter: %w", err)
	}
	trace.RegisterExporter(oc)

	log.WithField("agent_addr", agentAddr).Info("tracing: exporting to ocagent collector")
	return &Exporter{oc: oc}, nil
}

// Stop flushes and closes the exporter, if one was started.
func (e *Exporter) Stop() {
	if e == nil || e.oc == nil {
		return
	}
	e.oc.Flush()
	e.oc.Stop()
	trace.UnregisterExporter(e.oc)
}
