// Package storage persists the monitor registry and the seen-deal set as two
// small JSON files with atomic whole-file rewrites.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pepperwatch/internal/models"
)

const (
	monitorsFile = "monitors.json"
	seenFile     = "seen.json"
)

// Store owns both durable records. Every read and write across all callers is
// serialized through one mutex; the working set is small enough that the
// simplicity is worth far more than the lost throughput, and it makes the
// seen check-and-set and the whole-file rewrites race-free.
type Store struct {
	mu           sync.Mutex
	monitorsPath string
	seenPath     string
}

func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dataDir, err)
	}
	s := &Store{
		monitorsPath: filepath.Join(dataDir, monitorsFile),
		seenPath:     filepath.Join(dataDir, seenFile),
	}
	if err := ensureFile(s.monitorsPath); err != nil {
		return nil, err
	}
	if err := ensureFile(s.seenPath); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureFile initializes a backing record with an empty map if absent.
func ensureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return writeAtomic(path, []byte("{}\n"))
}

// writeAtomic replaces path in one step so a crash mid-write never leaves a
// partially written record visible to readers.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func loadMap[V any](path string) (map[string]V, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	m := make(map[string]V)
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

func saveMap[V any](path string, m map[string]V) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return writeAtomic(path, append(data, '\n'))
}

// AddMonitor registers (channelID, name) -> url, persisting before returning.
// Returns models.ErrMonitorExists when the pair is already registered.
func (s *Store) AddMonitor(channelID, name, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	monitors, err := loadMap[map[string]string](s.monitorsPath)
	if err != nil {
		return err
	}
	if _, ok := monitors[channelID][name]; ok {
		return models.ErrMonitorExists
	}
	if monitors[channelID] == nil {
		monitors[channelID] = make(map[string]string)
	}
	monitors[channelID][name] = url
	return saveMap(s.monitorsPath, monitors)
}

// RemoveMonitor deletes (channelID, name). False means it was absent.
func (s *Store) RemoveMonitor(channelID, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	monitors, err := loadMap[map[string]string](s.monitorsPath)
	if err != nil {
		return false, err
	}
	channel, ok := monitors[channelID]
	if !ok {
		return false, nil
	}
	if _, ok := channel[name]; !ok {
		return false, nil
	}
	delete(channel, name)
	if len(channel) == 0 {
		delete(monitors, channelID)
	}
	if err := saveMap(s.monitorsPath, monitors); err != nil {
		return false, err
	}
	return true, nil
}

// Monitors returns the name -> url mapping for one channel.
func (s *Store) Monitors(channelID string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	monitors, err := loadMap[map[string]string](s.monitorsPath)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(monitors[channelID]))
	for name, url := range monitors[channelID] {
		out[name] = url
	}
	return out, nil
}

// AllMonitors returns the full channel -> (name -> url) mapping.
func (s *Store) AllMonitors() (map[string]map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadMap[map[string]string](s.monitorsPath)
}

// Totals reports the number of channels holding monitors and the number of
// monitors overall.
func (s *Store) Totals() (channels, monitors int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := loadMap[map[string]string](s.monitorsPath)
	if err != nil {
		return 0, 0, err
	}
	for _, channel := range all {
		monitors += len(channel)
	}
	return len(all), monitors, nil
}

// IsSeen reports whether the composite key has been notified before.
func (s *Store) IsSeen(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen, err := loadMap[bool](s.seenPath)
	if err != nil {
		return false, err
	}
	return seen[key], nil
}

// MarkSeen durably records the composite key. Growth is unbounded by design;
// the domain's working set stays small.
func (s *Store) MarkSeen(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen, err := loadMap[bool](s.seenPath)
	if err != nil {
		return err
	}
	seen[key] = true
	return saveMap(s.seenPath, seen)
}
