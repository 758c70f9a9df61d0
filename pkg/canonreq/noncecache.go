package canonreq

import (
	"sync"
	"time"

	"github.com/objectvault/objectvault/pkg/vaulterrs"
)

// DefaultReplayWindow is the default width of the acceptance window
// around "now" a request's timestamp must fall within.
const DefaultReplayWindow = 5 * time.Minute

// DefaultEvictionScan bounds how many stale entries a single Check call
// will sweep, keeping the cache's critical section bounded under lock
// (spec.md §5).
const DefaultEvictionScan = 4096

// NonceCache is a bounded map from nonce to the timestamp it was first
// accepted at, used to reject replayed signed requests.
type NonceCache struct {
	mu           sync.Mutex
	window       time.Duration
	evictionScan int
	seen         map[string]time.Time
}

// NewNonceCache builds a NonceCache with the given replay window. A
// window <= 0 falls back to DefaultReplayWindow.
func NewNonceCache(window time.Duration) *NonceCache {
	if window <= 0 {
		window = DefaultReplayWindow
	}
	return &NonceCache{
		window:       window,
		evictionScan: DefaultEvictionScan,
		seen:         make(map[string]time.Time),
	}
}

// Check accepts (nonce, ts) iff ts falls within the replay window of now
// and nonce has not already been recorded within that window. On
// success it records the nonce and sweeps a bounded number of stale
// entries.
func (c *NonceCache) Check(nonce string, ts time.Time, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if diff := now.Sub(ts); diff > c.window || diff < -c.window {
		return vaulterrs.ReplayAttack.New("timestamp %s outside replay window of %s", ts, now)
	}

	if prior, ok := c.seen[nonce]; ok && now.Sub(prior) <= c.window {
		return vaulterrs.ReplayAttack.New("nonce %q already used at %s", nonce, prior)
	}

	c.seen[nonce] = ts
	c.evictLocked(now)
	return nil
}

// evictLocked removes entries older than now-window, scanning at most
// evictionScan entries per call. Map iteration order in Go is randomized
// per run, so repeated calls eventually sweep the whole table without
// ever holding the lock over an unbounded pass.
func (c *NonceCache) evictLocked(now time.Time) {
	scanned := 0
	for nonce, ts := range c.seen {
		if scanned >= c.evictionScan {
			return
		}
		scanned++
		if now.Sub(ts) > c.window {
			delete(c.seen, nonce)
		}
	}
}

// Len reports the number of nonces currently tracked, for tests and
// metrics.
func (c *NonceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
