// Package session tracks one verification run: which triggers fired, what
// failed, and the hardware interaction counts that end up in the summary file.
package session

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"keypad-hil/pkg/utils"
)

var logger *zap.SugaredLogger

func init() {
	logger = utils.GetLogger()
}

// Step is one trigger fired against the device.
type Step struct {
	Trigger  string  `json:"trigger"`
	From     string  `json:"from"`
	To       string  `json:"to"`
	OK       bool    `json:"ok"`
	Detail   string  `json:"detail,omitempty"`
	Duration float64 `json:"duration_seconds"`
}

// Session accumulates the outcome of a run. It satisfies the driver's
// reporter contract, so failures and enumeration counts recorded during
// transitions land here.
type Session struct {
	mu sync.Mutex

	id        string
	device    string
	startedAt time.Time

	steps        []Step
	failures     []string
	warnings     []string
	enumerations map[string]int
	keyPresses   map[string]int
}

func New(device string) *Session {
	return &Session{
		id:           uuid.NewString(),
		device:       device,
		startedAt:    time.Now(),
		enumerations: make(map[string]int),
		keyPresses:   make(map[string]int),
	}
}

func (s *Session) ID() string { return s.id }

// RecordStep appends one fired trigger and its outcome.
func (s *Session) RecordStep(trigger, from, to string, ok bool, detail string, took time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, Step{
		Trigger:  trigger,
		From:     from,
		To:       to,
		OK:       ok,
		Detail:   detail,
		Duration: took.Seconds(),
	})
	if ok {
		logger.Infof("step %s: %s -> %s (%.2fs)", trigger, from, to, took.Seconds())
	} else {
		logger.Warnf("step %s blocked in %s: %s", trigger, from, detail)
	}
}

func (s *Session) LogFailure(desc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, desc)
	logger.Errorf("failure: %s", desc)
}

func (s *Session) LogWarning(desc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, desc)
	logger.Warnf("warning: %s", desc)
}

func (s *Session) CountEnumeration(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enumerations[kind]++
}

// CountKeyPress tallies actuator activity per channel.
func (s *Session) CountKeyPress(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyPresses[name]++
}

// Passed reports whether every step completed and nothing was flagged.
func (s *Session) Passed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.failures) > 0 {
		return false
	}
	for _, st := range s.steps {
		if !st.OK {
			return false
		}
	}
	return true
}

// Failures returns a copy of the recorded failure descriptions.
func (s *Session) Failures() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failures))
	copy(out, s.failures)
	return out
}

// Summary is the JSON shape of a finished run.
type Summary struct {
	ID           string         `json:"id"`
	Device       string         `json:"device"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
	Passed       bool           `json:"passed"`
	Steps        []Step         `json:"steps"`
	Failures     []string       `json:"failures,omitempty"`
	Warnings     []string       `json:"warnings,omitempty"`
	Enumerations map[string]int `json:"enumerations,omitempty"`
	KeyPresses   map[string]int `json:"key_presses,omitempty"`
}

// Summarize snapshots the session.
func (s *Session) Summarize() Summary {
	passed := s.Passed()
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := Summary{
		ID:         s.id,
		Device:     s.device,
		StartedAt:  s.startedAt,
		FinishedAt: time.Now(),
		Passed:     passed,
		Steps:      append([]Step(nil), s.steps...),
		Failures:   append([]string(nil), s.failures...),
		Warnings:   append([]string(nil), s.warnings...),
	}
	if len(s.enumerations) > 0 {
		sum.Enumerations = make(map[string]int, len(s.enumerations))
		for k, v := range s.enumerations {
			sum.Enumerations[k] = v
		}
	}
	if len(s.keyPresses) > 0 {
		sum.KeyPresses = make(map[string]int, len(s.keyPresses))
		for k, v := range s.keyPresses {
			sum.KeyPresses[k] = v
		}
	}
	return sum
}

// WriteSummary dumps the run summary as indented JSON.
func (s *Session) WriteSummary(path string) error {
	data, err := json.MarshalIndent(s.Summarize(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write session summary: %w", err)
	}
	logger.Infof("session summary written to %s", path)
	return nil
}
