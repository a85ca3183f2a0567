// Package location supplies the device's current position to dispatches.
package location

import (
	"sync"
	"time"

	"github.com/oshokin/safeguardian/internal/domain/geo"
)

// Provider returns the current location. ok is false when no usable fix exists.
type Provider interface {
	Current() (geo.Point, bool)
}

// Fixed always reports the same point.
type Fixed geo.Point

// Current implements Provider.
func (f Fixed) Current() (geo.Point, bool) {
	p := geo.Point(f)

	return p, p.Valid()
}

// None never has a fix.
type None struct{}

// Current implements Provider.
func (None) Current() (geo.Point, bool) {
	return geo.Point{}, false
}

// Tracker holds the last reported location and considers it stale after
// maxAge. A zero maxAge never expires the fix. Reads fall back to fallback
// when there is no fresh fix.
type Tracker struct {
	now      func() time.Time
	fallback Provider
	last     geo.Point
	at       time.Time
	has      bool
	maxAge   time.Duration
	mu       sync.RWMutex
}

// NewTracker creates a tracker. now is usually the scheduler's clock.
func NewTracker(now func() time.Time, maxAge time.Duration, fallback Provider) *Tracker {
	if now == nil {
		now = time.Now
	}

	if fallback == nil {
		fallback = None{}
	}

	return &Tracker{
		now:      now,
		fallback: fallback,
		maxAge:   maxAge,
	}
}

// Update records a new fix. Invalid points are ignored.
func (t *Tracker) Update(p geo.Point) bool {
	if !p.Valid() {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = p
	t.at = t.now()
	t.has = true

	return true
}

// Current implements Provider.
func (t *Tracker) Current() (geo.Point, bool) {
	t.mu.RLock()
	last, at, has := t.last, t.at, t.has
	t.mu.RUnlock()

	if has && (t.maxAge <= 0 || t.now().Sub(at) <= t.maxAge) {
		return last, true
	}

	return t.fallback.Current()
}

// Snapshot returns the current location as a pointer, nil when unavailable.
func Snapshot(p Provider) *geo.Point {
	if p == nil {
		return nil
	}

	point, ok := p.Current()
	if !ok {
		return nil
	}

	return &point
}
