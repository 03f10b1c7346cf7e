package creatium

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Store holds the current template and hands out copies of it.
type Store struct {
	path string
	log  *slog.Logger

	mu  sync.RWMutex
	doc *Document
}

// NewStore loads the template at path.
func NewStore(path string, log *slog.Logger) (*Store, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	if _, err := doc.Code(); err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	return &Store{path: path, log: log, doc: doc}, nil
}

// Path returns the template file path.
func (s *Store) Path() string {
	return s.path
}

// Template returns a copy of the current template.
func (s *Store) Template() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Reload re-reads the template file. On error the previous template stays.
func (s *Store) Reload() error {
	doc, err := Load(s.path)
	if err != nil {
		return err
	}
	if _, err := doc.Code(); err != nil {
		return fmt.Errorf("template %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

// Watch reloads the template whenever its file changes, until ctx is done.
// The parent directory is watched so editors that replace the file are seen.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", s.path, err)
	}

	target := filepath.Clean(s.path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := s.Reload(); err != nil {
					s.log.Warn("template reload failed, keeping previous", "path", s.path, "error", err)
					continue
				}
				s.log.Info("template reloaded", "path", s.path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn("template watcher error", "error", err)
			}
		}
	}()
	return nil
}
