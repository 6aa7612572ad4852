// Package metrics declares the Prometheus series spec.md §6.3 requires,
// grounded on controller/api/destination/watcher/prometheus.go's
// (teacher) pattern of package-level collectors registered once at
// import time via promauto-style MustRegister calls.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Orchestrator series.
var (
	AgentsRegisteredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_agents_registered_total",
		Help: "Total agents registered since process start.",
	})

	AgentsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_agents_active",
		Help: "Agents currently tracked by the registry.",
	})

	PointsRevealedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_points_revealed_total",
		Help: "Cumulative point IDs added to the global reveal mask.",
	})

	MapCoverageRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_map_coverage_ratio",
		Help: "Current |reveal mask| / total point cloud cardinality.",
	})

	GRPCRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_grpc_requests_total",
		Help: "Control-plane RPCs by method and outcome.",
	}, []string{"rpc_method", "status"})

	AgentConnected = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_agent_connected",
		Help: "1 while an agent_id is registered and within its grace period, deleted on expiry.",
	}, []string{"agent_id"})
)

// Link Emulator series.
var (
	ProxyActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "proxy_active_connections",
		Help: "TCP connections currently proxied.",
	})

	ProxyBytesTransferredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proxy_bytes_transferred_total",
		Help: "Bytes forwarded by the link emulator, by direction.",
	}, []string{"direction"})

	ProxyStallWindowsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "proxy_stall_windows_total",
		Help: "Stall windows applied by the link emulator.",
	})

	ProxyResetsInjectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "proxy_resets_injected_total",
		Help: "Connections the emulator reset due to an impairment-induced error.",
	})
)

func init() {
	prometheus.MustRegister(
		AgentsRegisteredTotal,
		AgentsActive,
		PointsRevealedTotal,
		MapCoverageRatio,
		GRPCRequestsTotal,
		AgentConnected,
		ProxyActiveConnections,
		ProxyBytesTransferredTotal,
		ProxyStallWindowsTotal,
		ProxyResetsInjectedTotal,
	)
}

// DeleteAgentSeries removes the AgentConnected series for agentID, as
// spec.md §6.3 requires ("Agent series MUST be deleted on
// deregistration"). Call from the registry's grace-period-expiry path,
// not from stream teardown, since a disconnected agent may still
// reconnect within its grace period.
func DeleteAgentSeries(agentID uint64) {
	AgentConnected.DeleteLabelValues(strconv.FormatUint(agentID, 10))
}

// Direction labels for ProxyBytesTransferredTotal.
const (
	DirectionClientToServer = "client_to_server"
	DirectionServerToClient = "server_to_client"
)
