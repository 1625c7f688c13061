// Package fsm is a small guarded state machine. A trigger may declare several
// transitions; the first one whose source matches and whose guards all pass
// wins, so declaration order encodes guard priority. Transitions can carry a
// gating action that must succeed before the state actually changes.
package fsm

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"keypad-hil/pkg/utils"
)

var logger *zap.SugaredLogger

func init() {
	logger = utils.GetLogger()
}

type State string

// Wildcard as a source matches any current state.
const Wildcard State = "*"

// ErrReentrant is returned when Fire is called while a transition's guards or
// action are still running. Callbacks that need to chain triggers must do so
// from an on-enter hook, which runs after the transition completes.
var ErrReentrant = errors.New("fsm: transition already in progress")

// NoTransitionError reports a trigger with no matching transition from the
// current state.
type NoTransitionError struct {
	Trigger string
	From    State
}

func (e *NoTransitionError) Error() string {
	return fmt.Sprintf("fsm: no transition for trigger %q from state %s", e.Trigger, e.From)
}

// Event is passed to actions and on-enter hooks.
type Event struct {
	Trigger string
	Source  State
	Dest    State
	Args    map[string]interface{}
}

// Guard is a named predicate on a transition. Naming guards keeps the
// transition log readable.
type Guard struct {
	Name string
	Cond func() bool
}

// Action runs during a transition. A non-nil error aborts the transition and
// leaves the state unchanged.
type Action func(*Event) error

// GatingAction runs during a transition and decides whether it completes.
// Returning false without error blocks the transition quietly; the machine
// stays in the source state.
type GatingAction func(*Event) (bool, error)

// Transition declares one edge of the machine. At most one of Action and
// Gating may be set.
type Transition struct {
	Trigger string
	Sources []State
	Dest    State
	Guards  []Guard
	Action  Action
	Gating  GatingAction
}

func (t *Transition) matches(from State) bool {
	if len(t.Sources) == 0 {
		return true
	}
	for _, s := range t.Sources {
		if s == from || s == Wildcard {
			return true
		}
	}
	return false
}

// OnEnter runs after the machine settles in a state. It may fire follow-up
// triggers.
type OnEnter func(*Event)

type Machine struct {
	name        string
	transitions []Transition

	mu      sync.Mutex
	current State
	firing  bool
	onEnter map[State]OnEnter
}

func New(name string, initial State, transitions []Transition) (*Machine, error) {
	for i := range transitions {
		t := &transitions[i]
		if t.Trigger == "" {
			return nil, fmt.Errorf("fsm %s: transition %d has no trigger", name, i)
		}
		if t.Dest == "" {
			return nil, fmt.Errorf("fsm %s: transition %d (%s) has no destination", name, i, t.Trigger)
		}
		if t.Action != nil && t.Gating != nil {
			return nil, fmt.Errorf("fsm %s: transition %d (%s) sets both action kinds", name, i, t.Trigger)
		}
	}
	return &Machine{
		name:        name,
		transitions: transitions,
		current:     initial,
		onEnter:     make(map[State]OnEnter),
	}, nil
}

// SetOnEnter registers the hook invoked whenever the machine enters s,
// including on self transitions.
func (m *Machine) SetOnEnter(s State, fn OnEnter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEnter[s] = fn
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Fire attempts the trigger. It returns true when the machine changed state
// (or completed a self transition) and false when a gating action blocked the
// transition. Guard evaluation follows declaration order, so the first
// passing transition wins.
func (m *Machine) Fire(trigger string, args map[string]interface{}) (bool, error) {
	m.mu.Lock()
	if m.firing {
		m.mu.Unlock()
		return false, ErrReentrant
	}
	m.firing = true
	from := m.current
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		m.firing = false
		m.mu.Unlock()
	}

	selected, found := m.selectTransition(trigger, from)
	if !found {
		release()
		return false, &NoTransitionError{Trigger: trigger, From: from}
	}

	ev := &Event{Trigger: trigger, Source: from, Dest: selected.Dest, Args: args}
	logger.Debugf("[%s] %s: %s -> %s", m.name, trigger, from, selected.Dest)

	if selected.Action != nil {
		if err := selected.Action(ev); err != nil {
			release()
			return false, fmt.Errorf("transition %s: %w", trigger, err)
		}
	}
	if selected.Gating != nil {
		ok, err := selected.Gating(ev)
		if err != nil {
			release()
			return false, fmt.Errorf("transition %s: %w", trigger, err)
		}
		if !ok {
			release()
			logger.Warnf("[%s] %s blocked, staying in %s", m.name, trigger, from)
			return false, nil
		}
	}

	m.mu.Lock()
	m.current = selected.Dest
	m.firing = false
	hook := m.onEnter[selected.Dest]
	m.mu.Unlock()

	logger.Infof("[%s] state %s", m.name, selected.Dest)
	if hook != nil {
		hook(ev)
	}
	return true, nil
}

func (m *Machine) selectTransition(trigger string, from State) (*Transition, bool) {
	for i := range m.transitions {
		t := &m.transitions[i]
		if t.Trigger != trigger || !t.matches(from) {
			continue
		}
		if guard, ok := failedGuard(t); ok {
			logger.Debugf("[%s] %s -> %s skipped, guard %s failed", m.name, trigger, t.Dest, guard)
			continue
		}
		return t, true
	}
	return nil, false
}

func failedGuard(t *Transition) (string, bool) {
	for _, g := range t.Guards {
		if !g.Cond() {
			return g.Name, true
		}
	}
	return "", false
}
