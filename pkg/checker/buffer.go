package checker

import (
	"sync"
	"time"

	"gocv.io/x/gocv"

	"keypad-hil/pkg/led"
)

// frame is one sample from the capture loop. img is owned by the ring while
// the frame sits in it; hasImg distinguishes real captures from synthetic
// samples that carry only a state.
type frame struct {
	at     time.Time
	img    gocv.Mat
	hasImg bool
	states led.State
	keys   map[string]bool
}

func (f *frame) release() {
	if f.hasImg {
		f.img.Close()
		f.hasImg = false
	}
}

func (f frame) clone() frame {
	out := frame{at: f.at, states: f.states.Clone()}
	if f.keys != nil {
		out.keys = make(map[string]bool, len(f.keys))
		for k, v := range f.keys {
			out.keys[k] = v
		}
	}
	if f.hasImg {
		out.img = f.img.Clone()
		out.hasImg = true
	}
	return out
}

// ring is a fixed-capacity frame buffer. Pushing past capacity releases the
// oldest frame, so memory stays bounded to the replay pre-roll window.
type ring struct {
	mu   sync.Mutex
	data []frame
	head int
	full bool
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{data: make([]frame, capacity)}
}

func (r *ring) push(f frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[r.head].release()
	r.data[r.head] = f
	r.head++
	if r.head == len(r.data) {
		r.head = 0
		r.full = true
	}
}

func (r *ring) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.data)
	}
	return r.head
}

// latestState returns a copy of the newest sample's LED state and timestamp.
func (r *ring) latestState() (led.State, time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.head - 1
	if idx < 0 {
		if !r.full {
			return nil, time.Time{}, false
		}
		idx = len(r.data) - 1
	}
	f := r.data[idx]
	return f.states.Clone(), f.at, true
}

// latestClone returns an owned copy of the newest frame, image included.
func (r *ring) latestClone() (frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.head - 1
	if idx < 0 {
		if !r.full {
			return frame{}, false
		}
		idx = len(r.data) - 1
	}
	return r.data[idx].clone(), true
}

// snapshot returns owned copies of all buffered frames, oldest first. The
// caller must release them.
func (r *ring) snapshot() []frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []frame
	if r.full {
		out = make([]frame, 0, len(r.data))
		for i := r.head; i < len(r.data); i++ {
			out = append(out, r.data[i].clone())
		}
	} else {
		out = make([]frame, 0, r.head)
	}
	for i := 0; i < r.head; i++ {
		out = append(out, r.data[i].clone())
	}
	return out
}

func (r *ring) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.data {
		r.data[i].release()
		r.data[i] = frame{}
	}
	r.head = 0
	r.full = false
}
