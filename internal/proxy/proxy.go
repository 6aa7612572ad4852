// Package proxy implements the Link Emulator (C6): a stateless,
// bidirectional TCP proxy that deterministically injects latency,
// jitter, a rate cap, and stall windows while preserving strict
// per-direction FIFO byte ordering (spec.md §4.6). Packet loss,
// reorder, duplication, and corruption are out of scope — those are
// delegated to OS-level network shaping (spec.md §1).
//
// Grounded on the teacher's proxy data-plane forwarding loop
// (proxy/pkg/util) in spirit only: that code forwards HTTP/2 frames
// through an mTLS identity layer, which has no place here, but its
// "one goroutine per half-direction, plain io.Reader/io.Writer loop"
// shape is the one this package reuses. Rate limiting uses
// golang.org/x/time/rate, the same token-bucket package
// runZeroInc-sockstats pulls in for its own rate-limited scanning.
package proxy

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	logging "github.com/sirupsen/logrus"

	"github.com/reconsim/orchestrator/internal/metrics"
)

// maxChunkBytes bounds how much a single read/impair/write cycle moves,
// per spec.md's design note that impairment semantics are defined
// per-chunk, not per-byte.
const maxChunkBytes = 64 * 1024

// Impairments configures the deterministic per-direction impairments
// applied to every proxied connection (spec.md §4.6 defaults in
// parentheses).
type Impairments struct {
	LatencyMs       int   // (0)
	JitterMs        int   // (0)
	RateBps         int64 // (0 = unlimited)
	BucketBytes     int64 // (65536)
	StallPeriodMs   int   // (0 = off)
	StallDurationMs int   // (0)
}

// Proxy forwards every connection accepted on ListenAddr to TargetAddr
// with Impairments applied identically to both directions.
type Proxy struct {
	ListenAddr  string
	TargetAddr  string
	Impairments Impairments
	Log         *logging.Entry
}

// New returns a Proxy ready to Run.
func New(listenAddr, targetAddr string, imp Impairments, log *logging.Entry) *Proxy {
	return &Proxy{ListenAddr: listenAddr, TargetAddr: targetAddr, Impairments: imp, Log: log}
}

// Run accepts connections until ctx is done.
func (p *Proxy) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", p.ListenAddr)
	if err != nil {
		return fmt.Errorf("proxy: listen %s: %w", p.ListenAddr, err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("proxy: accept on %s: %w", p.ListenAddr, err)
			}
		}
		go p.handle(conn)
	}
}

func (p *Proxy) handle(client net.Conn) {
	target, err := net.Dial("tcp", p.TargetAddr)
	if err != nil {
		p.Log.WithError(err).Warn("proxy: dial target failed")
		client.Close()
		return
	}

	metrics.ProxyActiveConnections.Inc()
	defer metrics.ProxyActiveConnections.Dec()

	st := newConnState(p.Impairments)
	defer st.close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.forward(client, target, metrics.DirectionClientToServer, st)
	}()
	go func() {
		defer wg.Done()
		p.forward(target, client, metrics.DirectionServerToClient, st)
	}()
	wg.Wait()

	client.Close()
	target.Close()
}

// forward copies src to dst, in strict FIFO order, applying stall,
// rate-cap, and delay impairments in that order before every write.
// On either a clean EOF or a read/write error it propagates a
// half-close onto dst and returns; it never closes the full connection
// itself, leaving that to handle once both directions have finished.
func (p *Proxy) forward(src, dst net.Conn, direction string, st *connState) {
	buf := make([]byte, st.chunkSize)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			st.waitStall()

			if st.limiter != nil {
				if err := st.limiter.WaitN(context.Background(), n); err != nil {
					metrics.ProxyResetsInjectedTotal.Inc()
					propagateHalfClose(dst)
					return
				}
			}

			if d := delayFor(p.Impairments); d > 0 {
				time.Sleep(d)
			}

			if _, err := dst.Write(chunk); err != nil {
				metrics.ProxyResetsInjectedTotal.Inc()
				propagateHalfClose(dst)
				return
			}
			metrics.ProxyBytesTransferredTotal.WithLabelValues(direction).Add(float64(n))
		}

		if readErr != nil {
			if readErr != io.EOF {
				metrics.ProxyResetsInjectedTotal.Inc()
			}
			propagateHalfClose(dst)
			return
		}
	}
}

func delayFor(imp Impairments) time.Duration {
	d := imp.LatencyMs
	if imp.JitterMs > 0 {
		d += rand.Intn(2*imp.JitterMs+1) - imp.JitterMs
		if d < 0 {
			d = 0
		}
	}
	if d <= 0 {
		return 0
	}
	return time.Duration(d) * time.Millisecond
}

// propagateHalfClose signals dst's peer that no more data is coming on
// this direction without tearing down the other direction, per spec.md
// §4.6's termination rule. Connections without CloseWrite (nothing in
// this codebase but kept as a safe fallback) just close outright.
func propagateHalfClose(conn net.Conn) {
	type halfCloser interface {
		CloseWrite() error
	}
	if hc, ok := conn.(halfCloser); ok {
		hc.CloseWrite()
		return
	}
	conn.Close()
}

// connState holds the per-connection impairment state shared by both
// forwarding directions: a token-bucket limiter and a stall window
// timer. Stall is shared across directions deliberately — spec.md §4.6
// describes one stall timer per connection, blocking "reads AND
// writes", not one per direction.
type connState struct {
	imp       Impairments
	limiter   *rate.Limiter
	chunkSize int

	mu         sync.Mutex
	stallUntil time.Time
	stopStall  chan struct{}
}

func newConnState(imp Impairments) *connState {
	st := &connState{imp: imp, chunkSize: maxChunkBytes}

	if imp.RateBps > 0 {
		bucket := imp.BucketBytes
		if bucket <= 0 {
			bucket = 65536
		}
		st.limiter = rate.NewLimiter(rate.Limit(imp.RateBps), int(bucket))
		// A single read must never ask the limiter to wait for more
		// tokens than the bucket can ever hold.
		if int(bucket) < st.chunkSize {
			st.chunkSize = int(bucket)
		}
	}

	if imp.StallPeriodMs > 0 {
		st.stopStall = make(chan struct{})
		go st.runStall()
	}

	return st
}

func (st *connState) runStall() {
	ticker := time.NewTicker(time.Duration(st.imp.StallPeriodMs) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-st.stopStall:
			return
		case <-ticker.C:
			st.mu.Lock()
			st.stallUntil = time.Now().Add(time.Duration(st.imp.StallDurationMs) * time.Millisecond)
			st.mu.Unlock()
			metrics.ProxyStallWindowsTotal.Inc()
		}
	}
}

// waitStall blocks while a stall window is currently active.
func (st *connState) waitStall() {
	for {
		st.mu.Lock()
		remaining := time.Until(st.stallUntil)
		st.mu.Unlock()
		if remaining <= 0 {
			return
		}
		time.Sleep(remaining)
	}
}

func (st *connState) close() {
	if st.stopStall != nil {
		close(st.stopStall)
	}
}
