// Package config loads the environment-variable configuration spec.md
// §6.4 defines. CLI flag parsing is explicitly out of scope (spec.md
// §1), so unlike the teacher's pkg/flags this package never touches the
// flag package — it is pure os.Getenv plus typed defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Orchestrator holds every ORCHESTRATOR_* / AGENT_* / POINT_CLOUD_*
// environment variable.
type Orchestrator struct {
	GRPCListenAddr    string
	FlightListenAddr  string
	MetricsListenAddr string
	PublicGRPCAddr    string
	AgentBinaryPath   string
	PointCloudPath    string
	AgentHealthTimeout time.Duration

	// Tuning constants from spec.md §3/§4/§5. LoadOrchestrator sets them
	// to fixed defaults; no environment variable overrides them.
	TicketTTL       time.Duration
	TicketCapacity  int
	ReportInterval  time.Duration
	MaxReportBytes  int64
	GracePeriod     time.Duration
	SweepInterval   time.Duration
	StaleMultiplier int
	BroadcastWindow time.Duration
}

// LoadOrchestrator reads and validates the Orchestrator configuration.
func LoadOrchestrator() (Orchestrator, error) {
	cfg := Orchestrator{
		GRPCListenAddr:     getEnv("ORCHESTRATOR_GRPC_LISTEN_ADDR", ":7000"),
		FlightListenAddr:   getEnv("ORCHESTRATOR_FLIGHT_LISTEN_ADDR", ":7001"),
		MetricsListenAddr:  getEnv("ORCHESTRATOR_METRICS_LISTEN_ADDR", ":7002"),
		PublicGRPCAddr:     getEnv("ORCHESTRATOR_PUBLIC_GRPC_ADDR", ""),
		AgentBinaryPath:    getEnv("AGENT_BINARY_PATH", ""),
		PointCloudPath:     getEnv("POINT_CLOUD_PATH", ""),
		TicketTTL:          10 * time.Second,
		TicketCapacity:     256,
		ReportInterval:     500 * time.Millisecond,
		MaxReportBytes:     1 << 20,
		GracePeriod:        5 * time.Second,
		SweepInterval:      1 * time.Second,
		StaleMultiplier:    3,
		BroadcastWindow:    50 * time.Millisecond,
	}

	timeoutMs, err := getEnvIntDefault("AGENT_HEALTH_TIMEOUT_MS", 3000)
	if err != nil {
		return Orchestrator{}, err
	}
	cfg.AgentHealthTimeout = time.Duration(timeoutMs) * time.Millisecond

	if cfg.PointCloudPath == "" {
		return Orchestrator{}, fmt.Errorf("config: POINT_CLOUD_PATH is required")
	}

	return cfg, nil
}

// StaleAfter is T_stale, derived from ReportInterval and StaleMultiplier
// per spec.md §4.3's default ("3x report_interval_ms").
func (c Orchestrator) StaleAfter() time.Duration {
	return c.ReportInterval * time.Duration(c.StaleMultiplier)
}

// Emulator holds every EMULATOR_* environment variable.
type Emulator struct {
	ListenAddr        string
	TargetAddr        string
	MetricsListenAddr string
	LatencyMs         int
	JitterMs          int
	RateBps           int64
	BucketBytes       int64
	StallPeriodMs     int
	StallDurationMs   int
}

// LoadEmulator reads and validates the Link Emulator configuration.
func LoadEmulator() (Emulator, error) {
	var cfg Emulator
	var err error

	cfg.ListenAddr = os.Getenv("EMULATOR_LISTEN_ADDR")
	if cfg.ListenAddr == "" {
		return Emulator{}, fmt.Errorf("config: EMULATOR_LISTEN_ADDR is required")
	}
	cfg.TargetAddr = os.Getenv("EMULATOR_TARGET_ADDR")
	if cfg.TargetAddr == "" {
		return Emulator{}, fmt.Errorf("config: EMULATOR_TARGET_ADDR is required")
	}
	cfg.MetricsListenAddr = os.Getenv("EMULATOR_METRICS_LISTEN_ADDR")
	if cfg.MetricsListenAddr == "" {
		return Emulator{}, fmt.Errorf("config: EMULATOR_METRICS_LISTEN_ADDR is required")
	}

	if cfg.LatencyMs, err = getEnvIntDefault("EMULATOR_LATENCY_MS", 0); err != nil {
		return Emulator{}, err
	}
	if cfg.JitterMs, err = getEnvIntDefault("EMULATOR_JITTER_MS", 0); err != nil {
		return Emulator{}, err
	}
	rateBps, err := getEnvIntDefault("EMULATOR_RATE_BPS", 0)
	if err != nil {
		return Emulator{}, err
	}
	cfg.RateBps = int64(rateBps)
	bucketBytes, err := getEnvIntDefault("EMULATOR_BUCKET_BYTES", 65536)
	if err != nil {
		return Emulator{}, err
	}
	cfg.BucketBytes = int64(bucketBytes)
	if cfg.StallPeriodMs, err = getEnvIntDefault("EMULATOR_STALL_PERIOD_MS", 0); err != nil {
		return Emulator{}, err
	}
	if cfg.StallDurationMs, err = getEnvIntDefault("EMULATOR_STALL_DURATION_MS", 0); err != nil {
		return Emulator{}, err
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer: %w", key, v, err)
	}
	return n, nil
}
