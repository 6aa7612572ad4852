// Package admin implements the scrapable metrics/health HTTP surface
// shared by the orchestrator and the link emulator.
//
// Grounded on pkg/admin/admin.go (teacher, metrics+ping+ready switch) and
// controller/tap/apiserver.go (teacher, httprouter.Router for a small
// fixed route set) — here combined, since this system has a small fixed
// route set but the teacher's admin.go used a bare switch instead.
package admin

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CommandLogEntry is one entry in the IssueCommand debug ring buffer
// (SPEC_FULL.md §C.4).
type CommandLogEntry struct {
	Kind         string    `json:"kind"`
	At           time.Time `json:"at"`
	Acknowledged bool      `json:"acknowledged"`
	Message      string    `json:"message,omitempty"`
}

// CommandHistory supplies the recent IssueCommand invocations for
// /debug/commands.
type CommandHistory interface {
	Recent() []CommandLogEntry
}

// NewServer returns an *http.Server exposing /metrics, /ping, /ready and,
// when history is non-nil, /debug/commands. ready is read from the HTTP
// handler goroutine while the caller flips it from its own goroutine
// once startup completes, so it must be an *atomic.Bool rather than a
// plain *bool.
func NewServer(addr string, ready *atomic.Bool, history CommandHistory) *http.Server {
	router := httprouter.New()
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	router.GET("/ping", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Write([]byte("pong\n"))
	})

	router.GET("/ready", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		if ready != nil && !ready.Load() {
			http.Error(w, "not ready\n", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok\n"))
	})

	if history != nil {
		router.GET("/debug/commands", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(history.Recent())
		})
	}

	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}
}
