package registry

import (
	"context"
	"time"

	logging "github.com/sirupsen/logrus"
)

// Sweeper periodically marks agents whose last report is older than
// staleAfter as Disconnected (Registry.SweepStale). Grounded on the teacher's background-task-on-a-timer shape
// (controller/api/destination/watcher informer resyncs), adapted to a
// plain time.Ticker since there is no Kubernetes client here.
type Sweeper struct {
	reg         *Registry
	interval    time.Duration
	staleAfter  time.Duration
	log         *logging.Entry
}

// NewSweeper builds a Sweeper. interval is T_sweep; staleAfter is
// T_stale.
func NewSweeper(reg *Registry, interval, staleAfter time.Duration, log *logging.Entry) *Sweeper {
	return &Sweeper{reg: reg, interval: interval, staleAfter: staleAfter, log: log}
}

// Run blocks, sweeping every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.reg.SweepStale(now, s.staleAfter)
			s.log.WithField("agents_tracked", s.reg.Len()).Debug("liveness sweep completed")
		}
	}
}
