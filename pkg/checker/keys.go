package checker

import (
	"sync"
	"time"
)

// Key overlay timing. A press shows up on video slightly after the actuator
// fires, and stays readable a bit past the electrical release.
const (
	keyVisualDelay   = 100 * time.Millisecond
	keyVisualSustain = 150 * time.Millisecond
)

// DefaultKeypadLayout mirrors the physical key arrangement used for the
// replay overlay grid.
var DefaultKeypadLayout = [][]string{
	{"key1", "key2", "key3"},
	{"key4", "key5", "key6"},
	{"key7", "key8", "key9"},
	{"lock", "key0", "unlock"},
}

// keyTracker keeps the set of keys to draw as pressed on replay frames.
// Each press increments a per-key depth so overlapping timers from rapid
// sequences never erase each other's highlight early.
type keyTracker struct {
	mu     sync.Mutex
	depth  map[string]int
	timers map[*time.Timer]struct{}
	closed bool
}

func newKeyTracker() *keyTracker {
	return &keyTracker{
		depth:  make(map[string]int),
		timers: make(map[*time.Timer]struct{}),
	}
}

func (k *keyTracker) add(name string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return
	}
	k.depth[name]++
}

func (k *keyTracker) remove(name string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.depth[name] > 1 {
		k.depth[name]--
		return
	}
	delete(k.depth, name)
}

// flash schedules the press to appear after the visual delay and disappear
// once the hold duration plus the sustain window elapses.
func (k *keyTracker) flash(name string, hold time.Duration) {
	k.after(keyVisualDelay, func() { k.add(name) })
	k.after(keyVisualDelay+hold+keyVisualSustain, func() { k.remove(name) })
}

// hold marks the key pressed until release is called, for persistent
// channels like usb3 and connect.
func (k *keyTracker) hold(name string) {
	k.add(name)
}

func (k *keyTracker) release(name string) {
	k.remove(name)
}

func (k *keyTracker) after(d time.Duration, fn func()) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		fn()
		k.mu.Lock()
		delete(k.timers, t)
		k.mu.Unlock()
	})
	k.timers[t] = struct{}{}
}

func (k *keyTracker) snapshot() map[string]bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.depth) == 0 {
		return nil
	}
	out := make(map[string]bool, len(k.depth))
	for name := range k.depth {
		out[name] = true
	}
	return out
}

// stopAll cancels outstanding timers and clears the pressed set. The tracker
// refuses new work afterwards.
func (k *keyTracker) stopAll() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.closed = true
	for t := range k.timers {
		t.Stop()
	}
	k.timers = make(map[*time.Timer]struct{})
	k.depth = make(map[string]int)
}
