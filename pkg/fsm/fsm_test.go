package fsm

import (
	"errors"
	"testing"
)

func TestGuardPriorityPicksFirstPassing(t *testing.T) {
	flagA, flagB := false, true
	m, err := New("test", "OFF", []Transition{
		{Trigger: "go", Sources: []State{"OFF"}, Dest: "A", Guards: []Guard{{Name: "a", Cond: func() bool { return flagA }}}},
		{Trigger: "go", Sources: []State{"OFF"}, Dest: "B", Guards: []Guard{{Name: "b", Cond: func() bool { return flagB }}}},
		{Trigger: "go", Sources: []State{"OFF"}, Dest: "C"},
	})
	if err != nil {
		t.Fatal(err)
	}

	ok, err := m.Fire("go", nil)
	if err != nil || !ok {
		t.Fatalf("fire failed: ok=%v err=%v", ok, err)
	}
	if m.State() != "B" {
		t.Fatalf("expected B, got %s", m.State())
	}
}

func TestGuardFallthroughToUnguarded(t *testing.T) {
	m, err := New("test", "OFF", []Transition{
		{Trigger: "go", Sources: []State{"OFF"}, Dest: "A", Guards: []Guard{{Name: "never", Cond: func() bool { return false }}}},
		{Trigger: "go", Sources: []State{"OFF"}, Dest: "C"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Fire("go", nil); err != nil {
		t.Fatal(err)
	}
	if m.State() != "C" {
		t.Fatalf("expected fallthrough to C, got %s", m.State())
	}
}

func TestGatingActionBlocksWithoutError(t *testing.T) {
	m, err := New("test", "STANDBY", []Transition{
		{Trigger: "unlock", Sources: []State{"STANDBY"}, Dest: "UNLOCKED",
			Gating: func(ev *Event) (bool, error) { return false, nil }},
	})
	if err != nil {
		t.Fatal(err)
	}

	ok, err := m.Fire("unlock", nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("gated transition should report blocked")
	}
	if m.State() != "STANDBY" {
		t.Fatalf("blocked transition must not change state, got %s", m.State())
	}
}

func TestActionErrorLeavesState(t *testing.T) {
	boom := errors.New("boom")
	m, err := New("test", "A", []Transition{
		{Trigger: "go", Sources: []State{"A"}, Dest: "B",
			Action: func(ev *Event) error { return boom }},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Fire("go", nil); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped action error, got %v", err)
	}
	if m.State() != "A" {
		t.Fatalf("failed action must not change state, got %s", m.State())
	}
}

func TestWildcardSource(t *testing.T) {
	m, err := New("test", "ANYWHERE", []Transition{
		{Trigger: "power_off", Sources: []State{Wildcard}, Dest: "OFF"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Fire("power_off", nil); err != nil {
		t.Fatal(err)
	}
	if m.State() != "OFF" {
		t.Fatalf("expected OFF, got %s", m.State())
	}
}

func TestNoTransitionError(t *testing.T) {
	m, err := New("test", "A", []Transition{
		{Trigger: "go", Sources: []State{"B"}, Dest: "C"},
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.Fire("go", nil)
	var nte *NoTransitionError
	if !errors.As(err, &nte) {
		t.Fatalf("expected NoTransitionError, got %v", err)
	}
	if nte.From != "A" || nte.Trigger != "go" {
		t.Fatalf("unexpected error contents: %+v", nte)
	}
}

func TestOnEnterChainsTrigger(t *testing.T) {
	m, err := New("test", "OFF", []Transition{
		{Trigger: "power_on", Sources: []State{"OFF"}, Dest: "POST"},
		{Trigger: "post_pass", Sources: []State{"POST"}, Dest: "STANDBY"},
	})
	if err != nil {
		t.Fatal(err)
	}
	m.SetOnEnter("POST", func(ev *Event) {
		if _, err := m.Fire("post_pass", nil); err != nil {
			t.Errorf("chained fire: %v", err)
		}
	})

	if _, err := m.Fire("power_on", nil); err != nil {
		t.Fatal(err)
	}
	if m.State() != "STANDBY" {
		t.Fatalf("on-enter chain should land in STANDBY, got %s", m.State())
	}
}

func TestReentrantFireRejected(t *testing.T) {
	var m *Machine
	var nested error
	var err error
	m, err = New("test", "A", []Transition{
		{Trigger: "go", Sources: []State{"A"}, Dest: "B",
			Action: func(ev *Event) error {
				_, nested = m.Fire("go", nil)
				return nil
			}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Fire("go", nil); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(nested, ErrReentrant) {
		t.Fatalf("nested fire should be rejected, got %v", nested)
	}
}

func TestSelfTransitionRunsOnEnter(t *testing.T) {
	entered := 0
	m, err := New("test", "ADMIN", []Transition{
		{Trigger: "toggle", Sources: []State{"ADMIN"}, Dest: "ADMIN"},
	})
	if err != nil {
		t.Fatal(err)
	}
	m.SetOnEnter("ADMIN", func(ev *Event) { entered++ })

	for i := 0; i < 3; i++ {
		if _, err := m.Fire("toggle", nil); err != nil {
			t.Fatal(err)
		}
	}
	if entered != 3 {
		t.Fatalf("on-enter should run on each self transition, got %d", entered)
	}
}
