package flowcontrol

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// DefaultDedupTTL is how long a payload fingerprint suppresses
// re-submission.
const DefaultDedupTTL = 5 * time.Minute

// Deduper suppresses repeated submissions of identical payloads within
// a TTL window, keyed by SHA-256 fingerprint.
type Deduper struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time // fingerprint -> expiry
}

// NewDeduper creates a deduper. Non-positive TTLs use DefaultDedupTTL.
func NewDeduper(ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &Deduper{
		ttl:  ttl,
		now:  time.Now,
		seen: make(map[string]time.Time),
	}
}

// Fingerprint returns the hex SHA-256 of the payload.
func Fingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Seen records the payload and reports whether an identical payload was
// already recorded within the TTL window. Expired entries are pruned
// opportunistically on each call.
func (d *Deduper) Seen(payload []byte) bool {
	fingerprint := Fingerprint(payload)
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	for key, expiry := range d.seen {
		if now.After(expiry) {
			delete(d.seen, key)
		}
	}

	if expiry, ok := d.seen[fingerprint]; ok && now.Before(expiry) {
		return true
	}
	d.seen[fingerprint] = now.Add(d.ttl)
	return false
}

// Size returns the number of live fingerprints.
func (d *Deduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
