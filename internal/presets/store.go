package presets

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const reloadDebounce = 250 * time.Millisecond

// Store holds the current preset table and reloads it when the file changes.
type Store struct {
	path   string
	logger *zap.Logger

	mu    sync.RWMutex
	table Table
}

func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{path: path, logger: logger, table: Table{}}
}

// Load reads the preset file. A missing file yields an empty table.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.logger.Info("presets file not found, starting with no presets", zap.String("path", s.path))
		s.set(Table{})
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "read presets %s", s.path)
	}

	table, problems := Parse(data)
	for _, p := range problems {
		s.logger.Warn("skipping invalid preset", zap.Error(p))
	}
	if table == nil {
		return errors.Errorf("presets %s could not be decoded", s.path)
	}
	s.set(table)
	s.logger.Info("presets loaded", zap.String("path", s.path), zap.Int("count", len(table)))
	return nil
}

func (s *Store) set(t Table) {
	s.mu.Lock()
	s.table = t
	s.mu.Unlock()
}

// Table returns the current table. Callers must not modify it.
func (s *Store) Table() Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

func (s *Store) Find(name string) (Definition, bool) {
	return s.Table().Find(name)
}

func (s *Store) Names() []string {
	return s.Table().Names()
}

// Watch reloads the table whenever the preset file is written, created or
// replaced, until ctx ends. The parent directory is watched so editors that
// save through rename are picked up.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create presets watcher")
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create presets directory")
	}
	if err := watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "watch %s", dir)
	}

	target := filepath.Clean(s.path)
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				pending = time.After(reloadDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("presets watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			if err := s.Load(); err != nil {
				s.logger.Warn("presets reload failed, keeping previous table", zap.Error(err))
			}
		}
	}
}
