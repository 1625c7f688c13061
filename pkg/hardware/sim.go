package hardware

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Sim is an in-memory Actuator that journals every action instead of driving
// relays. Presses complete instantly unless a Sleep function is installed, so
// driver tests run at full speed.
type Sim struct {
	// Sleep, when set, is called with every press hold and sequence pause.
	Sleep func(time.Duration)

	mu      sync.Mutex
	state   map[string]bool
	journal []string
}

func NewSim() *Sim {
	return &Sim{state: make(map[string]bool)}
}

func (s *Sim) log(format string, args ...interface{}) {
	s.journal = append(s.journal, fmt.Sprintf(format, args...))
}

func (s *Sim) sleep(d time.Duration) {
	if s.Sleep != nil {
		s.Sleep(d)
	}
}

func chordLabel(channels []string) string {
	return strings.Join(channels, "+")
}

func (s *Sim) On(channels ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range channels {
		s.state[ch] = true
	}
	s.log("on %s", chordLabel(channels))
	return nil
}

func (s *Sim) Off(channels ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range channels {
		s.state[ch] = false
	}
	s.log("off %s", chordLabel(channels))
	return nil
}

func (s *Sim) Press(hold time.Duration, channels ...string) error {
	s.mu.Lock()
	s.log("press %s %dms", chordLabel(channels), hold.Milliseconds())
	s.mu.Unlock()
	s.sleep(hold)
	return nil
}

func (s *Sim) Sequence(seq []Chord, press, pause time.Duration) error {
	return runSequence(s, seq, press, pause)
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log("close")
	return nil
}

// Active reports whether a latched channel is currently high.
func (s *Sim) Active(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[name]
}

// ActiveChannels lists latched channels in sorted order.
func (s *Sim) ActiveChannels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for name, on := range s.state {
		if on {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Journal returns a copy of the recorded actions in order.
func (s *Sim) Journal() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.journal))
	copy(out, s.journal)
	return out
}

// ResetJournal clears the recorded actions but keeps channel state.
func (s *Sim) ResetJournal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = nil
}
