package storage

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"pepperwatch/internal/models"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return s, dir
}

func TestAddMonitor_DuplicateFails(t *testing.T) {
	s, _ := newStore(t)

	if err := s.AddMonitor("chan-1", "x", "https://www.pepper.pl/promocje"); err != nil {
		t.Fatalf("first AddMonitor() error: %v", err)
	}
	err := s.AddMonitor("chan-1", "x", "https://www.pepper.pl/kupony")
	if !errors.Is(err, models.ErrMonitorExists) {
		t.Fatalf("second AddMonitor() error = %v, want ErrMonitorExists", err)
	}

	monitors, err := s.Monitors("chan-1")
	if err != nil {
		t.Fatalf("Monitors() error: %v", err)
	}
	if len(monitors) != 1 || monitors["x"] != "https://www.pepper.pl/promocje" {
		t.Errorf("Monitors() = %v, want single original entry", monitors)
	}
}

func TestRemoveMonitor(t *testing.T) {
	s, _ := newStore(t)

	if err := s.AddMonitor("chan-1", "x", "https://www.pepper.pl/promocje"); err != nil {
		t.Fatalf("AddMonitor() error: %v", err)
	}

	removed, err := s.RemoveMonitor("chan-1", "x")
	if err != nil || !removed {
		t.Fatalf("RemoveMonitor() = %v, %v, want true, nil", removed, err)
	}

	monitors, err := s.Monitors("chan-1")
	if err != nil {
		t.Fatalf("Monitors() error: %v", err)
	}
	if len(monitors) != 0 {
		t.Errorf("Monitors() after remove = %v, want empty", monitors)
	}

	removed, err = s.RemoveMonitor("chan-1", "x")
	if err != nil || removed {
		t.Errorf("repeat RemoveMonitor() = %v, %v, want false, nil", removed, err)
	}
}

func TestTotals(t *testing.T) {
	s, _ := newStore(t)

	for _, m := range []struct{ channel, name string }{
		{"chan-1", "a"},
		{"chan-1", "b"},
		{"chan-2", "a"},
	} {
		if err := s.AddMonitor(m.channel, m.name, "https://www.pepper.pl/promocje"); err != nil {
			t.Fatalf("AddMonitor(%s, %s) error: %v", m.channel, m.name, err)
		}
	}

	channels, monitors, err := s.Totals()
	if err != nil {
		t.Fatalf("Totals() error: %v", err)
	}
	if channels != 2 || monitors != 3 {
		t.Errorf("Totals() = %d, %d, want 2, 3", channels, monitors)
	}
}

func TestMonitorsSurviveReopen(t *testing.T) {
	s, dir := newStore(t)

	if err := s.AddMonitor("chan-1", "x", "https://www.pepper.pl/promocje"); err != nil {
		t.Fatalf("AddMonitor() error: %v", err)
	}

	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("reopen New() error: %v", err)
	}
	monitors, err := reopened.Monitors("chan-1")
	if err != nil {
		t.Fatalf("Monitors() error: %v", err)
	}
	if monitors["x"] != "https://www.pepper.pl/promocje" {
		t.Errorf("reopened Monitors() = %v, want persisted entry", monitors)
	}
}

func TestSeen_MarkIsIdempotentAndDurable(t *testing.T) {
	s, dir := newStore(t)
	key := "chan-1:https://www.pepper.pl/promocje:123456"

	seen, err := s.IsSeen(key)
	if err != nil || seen {
		t.Fatalf("IsSeen() before mark = %v, %v, want false, nil", seen, err)
	}

	if err := s.MarkSeen(key); err != nil {
		t.Fatalf("MarkSeen() error: %v", err)
	}
	for range 3 {
		seen, err = s.IsSeen(key)
		if err != nil || !seen {
			t.Fatalf("IsSeen() after mark = %v, %v, want true, nil", seen, err)
		}
	}

	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("reopen New() error: %v", err)
	}
	seen, err = reopened.IsSeen(key)
	if err != nil || !seen {
		t.Errorf("IsSeen() after reopen = %v, %v, want true, nil", seen, err)
	}
}

func TestSeen_ConcurrentMarks(t *testing.T) {
	s, _ := newStore(t)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("chan-1:source:%d", i)
			if err := s.MarkSeen(key); err != nil {
				t.Errorf("MarkSeen(%s) error: %v", key, err)
			}
		}()
	}
	wg.Wait()

	for i := range 10 {
		key := fmt.Sprintf("chan-1:source:%d", i)
		seen, err := s.IsSeen(key)
		if err != nil || !seen {
			t.Errorf("IsSeen(%s) = %v, %v, want true, nil", key, seen, err)
		}
	}
}
