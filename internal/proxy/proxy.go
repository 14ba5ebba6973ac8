// Package proxy yields outbound proxy addresses from a static pool, rotated
// on a timer.
package proxy

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Rotator cycles through a static proxy pool. The rotation decision is
// serialized; formatting the current address is not, so many fetches can read
// it concurrently.
type Rotator struct {
	specs    []string
	enabled  bool
	interval time.Duration

	mu         sync.Mutex
	idx        int
	lastRotate time.Time
}

// New loads the proxy list from path. A missing file just yields an empty
// pool; blank lines and #-comments are skipped.
func New(path string, enabled bool, interval time.Duration) (*Rotator, error) {
	r := &Rotator{enabled: enabled, interval: interval}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("No proxy list found", "path", path)
			return r, nil
		}
		return nil, fmt.Errorf("open proxy list %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r.specs = append(r.specs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read proxy list %s: %w", path, err)
	}
	slog.Info("Loaded proxy pool", "path", path, "count", len(r.specs), "enabled", enabled)
	return r, nil
}

// Current returns the proxy URL to use for the next request, or "" when
// proxying is disabled, the pool is empty, or the current spec is malformed.
func (r *Rotator) Current() string {
	if !r.enabled || len(r.specs) == 0 {
		return ""
	}

	r.mu.Lock()
	if time.Since(r.lastRotate) >= r.interval {
		r.idx = (r.idx + 1) % len(r.specs)
		r.lastRotate = time.Now()
	}
	idx := r.idx
	r.mu.Unlock()

	return formatSpec(r.specs[idx])
}

// formatSpec accepts host:port and host:port:user:pass spec shapes.
func formatSpec(spec string) string {
	parts := strings.Split(spec, ":")
	switch len(parts) {
	case 2:
		return fmt.Sprintf("http://%s:%s", parts[0], parts[1])
	case 4:
		return fmt.Sprintf("http://%s:%s@%s:%s", parts[2], parts[3], parts[0], parts[1])
	default:
		return ""
	}
}
