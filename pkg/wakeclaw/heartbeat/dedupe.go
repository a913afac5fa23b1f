package heartbeat

import (
	"crypto/sha256"
	"sync"
	"time"
)

// defaultDuplicateWindow is how long an emitted message suppresses identical
// re-sends.
const defaultDuplicateWindow = 24 * time.Hour

// DuplicateGuard remembers fingerprints of recently emitted messages so a
// cycle does not re-send a message the user already received. Fingerprints
// are content-based: identical text at different times collides. Expired
// entries are pruned lazily on lookup, so memory is bounded by the distinct
// messages sent inside the trailing window.
type DuplicateGuard struct {
	mu     sync.Mutex
	window time.Duration
	sent   map[[32]byte]time.Time
}

// NewDuplicateGuard creates a guard with the given suppression window.
// A non-positive window falls back to the 24h default.
func NewDuplicateGuard(window time.Duration) *DuplicateGuard {
	if window <= 0 {
		window = defaultDuplicateWindow
	}
	return &DuplicateGuard{
		window: window,
		sent:   make(map[[32]byte]time.Time),
	}
}

// ShouldSuppress reports whether message matches a non-expired prior send.
// If it does, the guard returns true without re-recording, so the original
// send time keeps governing the window. Otherwise the message is recorded
// as sent now and false is returned.
func (g *DuplicateGuard) ShouldSuppress(message string) bool {
	fp := sha256.Sum256([]byte(message))
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	g.prune(now)

	if sentAt, ok := g.sent[fp]; ok && now.Sub(sentAt) <= g.window {
		return true
	}
	g.sent[fp] = now
	return false
}

// Len reports the number of live entries. Intended for tests.
func (g *DuplicateGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune(time.Now())
	return len(g.sent)
}

func (g *DuplicateGuard) prune(now time.Time) {
	for fp, sentAt := range g.sent {
		if now.Sub(sentAt) > g.window {
			delete(g.sent, fp)
		}
	}
}
