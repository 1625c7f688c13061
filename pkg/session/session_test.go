package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestPassedReflectsStepsAndFailures(t *testing.T) {
	s := New("unit-a")
	if !s.Passed() {
		t.Fatal("an empty session should pass")
	}

	s.RecordStep("power_on", "OFF", "OOB_MODE", true, "", 2*time.Second)
	if !s.Passed() {
		t.Fatal("a session with only passing steps should pass")
	}

	s.RecordStep("unlock_admin", "STANDBY_MODE", "STANDBY_MODE", false, "reject seen", time.Second)
	if s.Passed() {
		t.Fatal("a blocked step should fail the session")
	}

	s2 := New("unit-b")
	s2.LogFailure("admin unlock pattern: timeout")
	if s2.Passed() {
		t.Fatal("a recorded failure should fail the session")
	}
	if got := s2.Failures(); len(got) != 1 || got[0] != "admin unlock pattern: timeout" {
		t.Fatalf("unexpected failures: %v", got)
	}
}

func TestSummarizeCopiesCounts(t *testing.T) {
	s := New("unit-a")
	s.CountEnumeration("oob")
	s.CountEnumeration("pin")
	s.CountEnumeration("pin")
	s.CountKeyPress("key5")
	s.LogWarning("no enumerator configured")

	sum := s.Summarize()
	if sum.Enumerations["pin"] != 2 || sum.Enumerations["oob"] != 1 {
		t.Fatalf("unexpected enumeration counts: %v", sum.Enumerations)
	}
	if sum.KeyPresses["key5"] != 1 {
		t.Fatalf("unexpected key press counts: %v", sum.KeyPresses)
	}
	if len(sum.Warnings) != 1 {
		t.Fatalf("unexpected warnings: %v", sum.Warnings)
	}
	if sum.ID == "" || sum.Device != "unit-a" {
		t.Fatalf("identity missing from summary: %+v", sum)
	}

	// The summary must be a snapshot, not a view.
	sum.Enumerations["pin"] = 99
	if s.Summarize().Enumerations["pin"] != 2 {
		t.Fatal("mutating a summary must not touch the session")
	}
}

func TestWriteSummaryRoundTrips(t *testing.T) {
	s := New("unit-a")
	s.RecordStep("power_on", "OFF", "STANDBY_MODE", true, "", 1500*time.Millisecond)
	path := filepath.Join(t.TempDir(), "summary.json")
	if err := s.WriteSummary(path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var sum Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		t.Fatal(err)
	}
	if !sum.Passed || len(sum.Steps) != 1 || sum.Steps[0].Trigger != "power_on" {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.Steps[0].Duration != 1.5 {
		t.Fatalf("unexpected step duration: %v", sum.Steps[0].Duration)
	}
}
