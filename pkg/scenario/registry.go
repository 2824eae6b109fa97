package scenario

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Registry holds the scenarios available to new sessions. The built-in
// scenario is always present unless a file overrides its ID.
type Registry struct {
	mu        sync.RWMutex
	scenarios map[string]*Scenario
}

// NewRegistry returns a registry holding the built-in scenario and extra.
func NewRegistry(extra ...*Scenario) *Registry {
	r := &Registry{}
	r.Replace(extra)
	return r
}

// Replace swaps the file-backed scenarios for list.
func (r *Registry) Replace(list []*Scenario) {
	m := map[string]*Scenario{DefaultID: Default()}
	for _, s := range list {
		m[s.ID] = s
	}
	r.mu.Lock()
	r.scenarios = m
	r.mu.Unlock()
}

// Get returns the scenario with id.
func (r *Registry) Get(id string) (*Scenario, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenarios[id]
	return s, ok
}

// List returns all scenarios sorted by ID.
func (r *Registry) List() []*Scenario {
	r.mu.RLock()
	out := make([]*Scenario, 0, len(r.scenarios))
	for _, s := range r.scenarios {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of scenarios.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scenarios)
}

// Reload replaces the registry contents with the scenarios in dir.
func (r *Registry) Reload(dir string, log *logrus.Logger) error {
	list, err := LoadDir(dir, log)
	if err != nil {
		return err
	}
	r.Replace(list)
	return nil
}

// Watcher reloads a Registry when files in its scenario directory change.
type Watcher struct {
	dir      string
	registry *Registry
	log      *logrus.Logger
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewWatcher watches dir and reloads registry on change.
func NewWatcher(dir string, registry *Registry, log *logrus.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		dir:      dir,
		registry: registry,
		log:      log,
		watcher:  fw,
		debounce: 250 * time.Millisecond,
	}
	if err := w.addTree(dir); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches root and every directory below it, matching the tree
// LoadDir walks.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Start blocks until ctx is done, reloading after each burst of events.
func (w *Watcher) Start(ctx context.Context) {
	w.log.WithField("dir", w.dir).Info("Starting scenario watcher")

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Scenario watcher stopping")
			w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.log.WithError(err).WithField("dir", event.Name).Warn("Failed to watch new scenario directory")
					}
					pending = time.After(w.debounce)
					continue
				}
			}
			if !isScenarioFile(event.Name) {
				continue
			}
			w.log.WithFields(logrus.Fields{
				"file":        event.Name,
				"fsnotify_op": event.Op.String(),
			}).Debug("Scenario file changed")
			pending = time.After(w.debounce)

		case <-pending:
			pending = nil
			if err := w.registry.Reload(w.dir, w.log); err != nil {
				w.log.WithError(err).Error("Failed to reload scenarios")
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Error("Watcher error")
		}
	}
}
