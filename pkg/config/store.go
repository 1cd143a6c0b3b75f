package config

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sudorandom/screenshot-automator/pkg/capture"
)

// Store holds the settings currently in effect and implements
// capture.SettingsSource.
type Store struct {
	path string

	mu        sync.RWMutex
	current   capture.Settings
	listeners []func(capture.Settings)
}

// NewStore loads path, or the defaults if it does not exist yet.
func NewStore(path string) (*Store, error) {
	s, err := LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, current: s}, nil
}

func (s *Store) Settings() capture.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// OnChange registers fn to be called with the new settings after a reload.
func (s *Store) OnChange(fn func(capture.Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Reload re-reads the settings file. Invalid files are rejected and the
// previous settings stay in effect.
func (s *Store) Reload() error {
	next, err := LoadOrDefault(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = next
	listeners := append([]func(capture.Settings){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return nil
}

// Watch reloads the settings whenever the file changes until ctx is done.
// The directory is watched so editors that replace the file are handled.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(s.path)

	// Editors tend to emit several events per save.
	const debounce = 100 * time.Millisecond
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

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
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Settings watcher error: %v", err)
		case <-timer.C:
			if err := s.Reload(); err != nil {
				log.Printf("Keeping previous settings, reload failed: %v", err)
				continue
			}
			log.Printf("Reloaded settings from %s", s.path)
		}
	}
}
