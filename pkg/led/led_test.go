package led

import (
	"math"
	"testing"
)

func checkErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestStateMatches(t *testing.T) {
	current := RGB(1, 0, 1)

	if !current.Matches(RGB(1, 0, 1), nil) {
		t.Fatal("exact state should match")
	}
	if !current.Matches(State{"red": 1}, nil) {
		t.Fatal("partial target should match")
	}
	if current.Matches(RGB(1, 1, 1), nil) {
		t.Fatal("green off should not match green on")
	}
	if current.Matches(RGB(1, 0, 1), []string{"blue"}) {
		t.Fatal("lit fail led should veto the match")
	}
	if (State{}).Matches(RGB(0, 0, 0), nil) {
		t.Fatal("empty observed state never matches")
	}
}

func TestStateToken(t *testing.T) {
	if got := RGB(1, 0, 1).Token(); got != "red1_green0_blue1" {
		t.Fatalf("unexpected token: %s", got)
	}
	if got := (State{"green": 0, "blue": 1}).Token(); got != "green0_blue1" {
		t.Fatalf("unexpected partial token: %s", got)
	}
}

func TestPatternWireFormat(t *testing.T) {
	p, err := ParsePattern([]byte(`[
		{"red":0,"green":1,"blue":0,"duration":[0.5,2]},
		{"red":1,"green":0,"blue":0}
	]`))
	checkErr(t, err)

	if len(p) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(p))
	}
	if !p[0].Target.Equal(RGB(0, 1, 0)) || p[0].Min != 0.5 || p[0].Max != 2 {
		t.Fatalf("step 0 decoded wrong: %+v", p[0])
	}
	if !p[1].Target.Equal(RGB(1, 0, 0)) {
		t.Fatalf("step 1 decoded wrong: %+v", p[1])
	}
	if p[1].Min != 0 || !math.IsInf(p[1].Max, 1) {
		t.Fatal("missing duration should mean [0, +inf)")
	}
}

func TestPatternWireFormatRejectsBadDuration(t *testing.T) {
	if _, err := ParsePattern([]byte(`[{"red":1,"duration":[2]}]`)); err == nil {
		t.Fatal("one-entry duration should fail")
	}
	if _, err := ParsePattern([]byte(`[{"red":1,"duration":[3,1]}]`)); err == nil {
		t.Fatal("max < min should fail")
	}
	if _, err := ParsePattern([]byte(`[]`)); err == nil {
		t.Fatal("empty pattern should fail")
	}
}

func TestDictionaryDurationsOrdered(t *testing.T) {
	for name, p := range map[string]Pattern{
		"accept":       Accept,
		"reject":       Reject,
		"bruteForced":  BruteForced,
		"enum":         Enum,
		"enumLegacy":   EnumLegacy,
		"redLogin":     RedLogin,
		"redGreenBlue": RedGreenBlue,
		"greenBlue":    GreenBlue,
		"redCounter":   RedCounter,
	} {
		for i, s := range p {
			if s.Min < 0 || s.Max < s.Min {
				t.Fatalf("%s step %d has invalid duration [%v, %v]", name, i, s.Min, s.Max)
			}
		}
	}
}

func TestCounterFeedback(t *testing.T) {
	p := CounterFeedback(3)
	if len(p) != 6 {
		t.Fatalf("expected 6 steps, got %d", len(p))
	}
	if !p[1].Target.Equal(GreenOnly) {
		t.Fatal("odd steps should be green blinks")
	}
}

func TestConfigValidate(t *testing.T) {
	for _, c := range DefaultConfigs() {
		checkErr(t, c.Validate())
	}

	bad := DefaultConfigs()[0]
	bad.ROI.W = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("zero-width roi should fail validation")
	}

	bad = DefaultConfigs()[0]
	bad.Lower.Hue = 200
	if err := bad.Validate(); err == nil {
		t.Fatal("hue out of range should fail validation")
	}
}
