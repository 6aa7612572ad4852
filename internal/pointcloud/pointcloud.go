// Package pointcloud loads the fixed global point cloud's metadata (only
// its total cardinality N is needed by the coordination core; geometry
// and perception are out of scope per spec.md §1) and hot-reloads it
// when the backing file changes.
//
// Grounded on pkg/credswatcher/creds_watcher.go (teacher): an
// fsnotify.Watcher goroutine forwarding change events to a callback.
package pointcloud

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	logging "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Metadata is the static description of the point cloud the mask ranges
// over.
type Metadata struct {
	Cardinality uint64 `yaml:"cardinality"`
}

type fileShape struct {
	Cardinality uint64 `yaml:"cardinality"`
}

// Loader serves the current Metadata and reloads it from disk on change.
type Loader struct {
	path    string
	current atomic.Pointer[Metadata]
	log     *logging.Entry
}

// NewLoader reads path once synchronously and returns a Loader primed
// with that value.
func NewLoader(path string, log *logging.Entry) (*Loader, error) {
	l := &Loader{path: path, log: log}
	md, err := load(path)
	if err != nil {
		return nil, err
	}
	l.current.Store(md)
	return l, nil
}

func load(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pointcloud: read %s: %w", path, err)
	}
	var shape fileShape
	if err := yaml.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("pointcloud: parse %s: %w", path, err)
	}
	return &Metadata{Cardinality: shape.Cardinality}, nil
}

// Current returns the most recently loaded metadata.
func (l *Loader) Current() Metadata {
	return *l.current.Load()
}

// Watch blocks, reloading Metadata whenever the backing file changes,
// until ctx is done. A reload error is logged and the previous metadata
// is kept in place.
func (l *Loader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("pointcloud: watch %s: %w", l.path, err)
	}
	defer watcher.Close()

	if err := watcher.Add(l.path); err != nil {
		return fmt.Errorf("pointcloud: add watch %s: %w", l.path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			md, err := load(l.path)
			if err != nil {
				l.log.WithError(err).Warn("point cloud metadata reload failed, keeping previous value")
				continue
			}
			l.current.Store(md)
			l.log.WithField("cardinality", md.Cardinality).Info("point cloud metadata reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.log.WithError(err).Warn("point cloud watcher error")
		}
	}
}
