// Package monitor owns the long-lived polling loop behind every registered
// monitor and guarantees each distinct deal is delivered at most once.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pepperwatch/internal/models"
	"pepperwatch/internal/notifier"
	"pepperwatch/internal/validator"
)

// Scraper extracts deals from a source page.
type Scraper interface {
	ExtractLatestBatch(ctx context.Context, url string) ([]models.Deal, error)
}

// Notifier delivers a deal to a destination channel.
type Notifier interface {
	Send(ctx context.Context, channelID string, deal models.Deal) error
}

// Store is the durable registry and seen-set behind the scheduler.
type Store interface {
	AddMonitor(channelID, name, url string) error
	RemoveMonitor(channelID, name string) (bool, error)
	Monitors(channelID string) (map[string]string, error)
	AllMonitors() (map[string]map[string]string, error)
	Totals() (channels, monitors int, err error)
	IsSeen(key string) (bool, error)
	MarkSeen(key string) error
}

// AddRequest carries the administration surface's add-monitor input.
type AddRequest struct {
	ChannelID string `validate:"required"`
	Name      string `validate:"required,max=64"`
	URL       string `validate:"required,url"`
}

// ListInfo summarizes one channel's monitors plus global totals.
type ListInfo struct {
	Monitors      map[string]string `json:"monitors"`
	TotalChannels int               `json:"totalChannels"`
	TotalMonitors int               `json:"totalMonitors"`
}

type monitorKey struct {
	channelID string
	name      string
}

type task struct {
	cancel context.CancelFunc
	// fetchMu serializes fetch+extract for this one source, so a slow
	// detail-page enrichment can never overlap the monitor's next tick.
	fetchMu sync.Mutex
}

type Manager struct {
	store    Store
	scraper  Scraper
	notifier Notifier
	validate *validator.Validator
	refresh  time.Duration

	mu      sync.Mutex
	tasks   map[monitorKey]*task
	baseCtx context.Context
	wg      sync.WaitGroup

	// deliverMu makes the seen check-and-set atomic across every monitor;
	// without it two pollers could both decide a key is unseen.
	deliverMu sync.Mutex
}

func New(store Store, scraper Scraper, n Notifier, refresh time.Duration) *Manager {
	return &Manager{
		store:    store,
		scraper:  scraper,
		notifier: n,
		validate: validator.New(),
		refresh:  refresh,
		tasks:    make(map[monitorKey]*task),
	}
}

// Start replays the persisted registry and launches a polling task per
// monitor. ctx bounds the lifetime of every task, current and future.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseCtx = ctx

	all, err := m.store.AllMonitors()
	if err != nil {
		return fmt.Errorf("load monitors: %w", err)
	}
	for channelID, monitors := range all {
		for name, url := range monitors {
			m.startLocked(monitorKey{channelID, name}, url)
		}
	}
	slog.Info("Initialized monitors", "count", len(m.tasks))
	return nil
}

// Add registers and starts a new monitor. Returns models.ErrMonitorExists
// when the (channel, name) pair is already registered.
func (m *Manager) Add(channelID, name, url string) error {
	if err := m.validate.ValidateStruct(AddRequest{ChannelID: channelID, Name: name, URL: url}); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.baseCtx == nil {
		panic("monitor: Add called before Start")
	}

	key := monitorKey{channelID, name}
	if _, ok := m.tasks[key]; ok {
		return models.ErrMonitorExists
	}
	if err := m.store.AddMonitor(channelID, name, url); err != nil {
		return err
	}
	m.startLocked(key, url)
	slog.Info("Monitor added", "channel", channelID, "name", name, "url", url)
	return nil
}

// Remove cancels the monitor's task and deletes it from the registry. False
// means no such monitor existed.
func (m *Manager) Remove(channelID, name string) (bool, error) {
	m.mu.Lock()
	key := monitorKey{channelID, name}
	if t, ok := m.tasks[key]; ok {
		t.cancel()
		delete(m.tasks, key)
	}
	m.mu.Unlock()

	removed, err := m.store.RemoveMonitor(channelID, name)
	if err != nil {
		return false, err
	}
	if removed {
		slog.Info("Monitor removed", "channel", channelID, "name", name)
	}
	return removed, nil
}

// List returns the channel's monitors and global totals.
func (m *Manager) List(channelID string) (ListInfo, error) {
	monitors, err := m.store.Monitors(channelID)
	if err != nil {
		return ListInfo{}, err
	}
	channels, total, err := m.store.Totals()
	if err != nil {
		return ListInfo{}, err
	}
	return ListInfo{Monitors: monitors, TotalChannels: channels, TotalMonitors: total}, nil
}

// Wait blocks until every polling task has exited. Call after cancelling the
// context passed to Start.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// startLocked launches the polling task for key. Already-running keys are a
// no-op. Caller holds m.mu.
func (m *Manager) startLocked(key monitorKey, url string) {
	if _, ok := m.tasks[key]; ok {
		return
	}
	ctx, cancel := context.WithCancel(m.baseCtx)
	t := &task{cancel: cancel}
	m.tasks[key] = t

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(ctx, key, url, t)
	}()
}

// run is one monitor's loop: tick, sleep, repeat until cancelled. Errors
// never terminate the loop; cancellation is checked before each fetch and
// before each sleep.
func (m *Manager) run(ctx context.Context, key monitorKey, url string, t *task) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("Monitor cancelled", "channel", key.channelID, "name", key.name)
			return
		default:
		}

		m.tick(ctx, key, url, t)

		select {
		case <-ctx.Done():
			slog.Info("Monitor cancelled", "channel", key.channelID, "name", key.name)
			return
		case <-time.After(m.refresh):
		}
	}
}

// tick fetches, extracts, and delivers every unseen deal oldest-first.
func (m *Manager) tick(ctx context.Context, key monitorKey, url string, t *task) {
	t.fetchMu.Lock()
	deals, err := m.scraper.ExtractLatestBatch(ctx, url)
	t.fetchMu.Unlock()
	if err != nil {
		slog.Warn("Extraction failed", "channel", key.channelID, "name", key.name, "error", err)
		return
	}

	// The batch is newest-first; deliver oldest-first so notifications land
	// in chronological order.
	for i := len(deals) - 1; i >= 0; i-- {
		m.deliver(ctx, key, url, deals[i])
	}
}

func (m *Manager) deliver(ctx context.Context, key monitorKey, url string, deal models.Deal) {
	seenKey := fmt.Sprintf("%s:%s:%s", key.channelID, url, deal.ID)

	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	seen, err := m.store.IsSeen(seenKey)
	if err != nil {
		slog.Warn("Seen check failed", "key", seenKey, "error", err)
		return
	}
	if seen {
		return
	}

	// Deliver before marking: a crash in between risks at most a duplicate
	// notification on restart, never a silent loss.
	sendErr := m.notifier.Send(ctx, key.channelID, deal)
	switch {
	case sendErr == nil:
	case errors.Is(sendErr, notifier.ErrChannelNotFound):
		// A permanently-gone destination must not cause unbounded retries of
		// the same candidate; mark it seen anyway.
		slog.Warn("Channel unavailable, marking deal seen", "channel", key.channelID, "deal", deal.ID)
	default:
		slog.Warn("Delivery failed, will retry next tick", "channel", key.channelID, "deal", deal.ID, "error", sendErr)
		return
	}

	if err := m.store.MarkSeen(seenKey); err != nil {
		slog.Warn("Failed to mark deal seen", "key", seenKey, "error", err)
	}
}
