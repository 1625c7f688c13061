package checker

import (
	"math"
	"strings"
	"testing"
	"time"

	"keypad-hil/pkg/led"
)

func inf() float64 { return math.Inf(1) }

func newTestChecker(tolerance float64) *Checker {
	c := New(Options{Tolerance: tolerance, PreRoll: 1, FPS: 100})
	c.initialized.Store(true)
	c.replayDisabled = true
	return c
}

// scriptStep holds one LED state for a duration on the synthetic feed.
type scriptStep struct {
	state led.State
	dur   time.Duration
}

// feed pushes scripted states into the buffer every few milliseconds, holding
// the last state until the returned stop function is called.
func feed(c *Checker, script []scriptStep) (stop func()) {
	done := make(chan struct{})
	go func() {
		tick := 5 * time.Millisecond
		for _, s := range script {
			end := time.Now().Add(s.dur)
			for time.Now().Before(end) {
				select {
				case <-done:
					return
				default:
				}
				c.buf.push(frame{at: time.Now(), states: s.state.Clone()})
				time.Sleep(tick)
			}
		}
		last := led.State{}
		if len(script) > 0 {
			last = script[len(script)-1].state
		}
		for {
			select {
			case <-done:
				return
			default:
			}
			c.buf.push(frame{at: time.Now(), states: last.Clone()})
			time.Sleep(tick)
		}
	}()
	return func() { close(done) }
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestRingEviction(t *testing.T) {
	r := newRing(5)
	base := time.Now()
	for i := 0; i < 8; i++ {
		r.push(frame{at: base.Add(time.Duration(i) * time.Second), states: led.RGB(1, 0, 0)})
	}
	if r.len() != 5 {
		t.Fatalf("expected 5 buffered frames, got %d", r.len())
	}

	snap := r.snapshot()
	if len(snap) != 5 {
		t.Fatalf("expected snapshot of 5, got %d", len(snap))
	}
	if !snap[0].at.Equal(base.Add(3 * time.Second)) {
		t.Fatalf("oldest frame should be push #4, got %v", snap[0].at.Sub(base))
	}

	_, at, ok := r.latestState()
	if !ok || !at.Equal(base.Add(7*time.Second)) {
		t.Fatalf("latest frame should be push #8, got %v ok=%v", at.Sub(base), ok)
	}
}

func TestConfirmSolidPass(t *testing.T) {
	c := newTestChecker(0.1)
	stop := feed(c, []scriptStep{{led.RGB(1, 0, 0), time.Second}})
	defer stop()

	res := c.confirmSolid(led.RGB(1, 0, 0), 0.2, 2.0, Opts{})
	if !res.OK {
		t.Fatalf("expected pass, got %q", res.Detail)
	}
	if res.Held < 0.2 {
		t.Fatalf("held %.2fs, expected at least the minimum", res.Held)
	}
}

func TestConfirmSolidNeverSeen(t *testing.T) {
	c := newTestChecker(0.1)
	stop := feed(c, []scriptStep{{led.AllOff, time.Second}})
	defer stop()

	res := c.confirmSolid(led.RGB(1, 0, 0), 0.3, 0.5, Opts{})
	if res.OK {
		t.Fatal("expected timeout failure")
	}
	if res.Detail != "timeout_target_not_solid_for_0.30s" {
		t.Fatalf("unexpected detail: %q", res.Detail)
	}
}

func TestConfirmSolidPartialHoldAtTimeout(t *testing.T) {
	c := newTestChecker(0.1)
	stop := feed(c, []scriptStep{
		{led.AllOff, ms(300)},
		{led.RGB(1, 0, 0), time.Second},
	})
	defer stop()

	res := c.confirmSolid(led.RGB(1, 0, 0), 0.6, 0.75, Opts{})
	if res.OK {
		t.Fatal("expected failure, hold was too short even with tolerance")
	}
	if !strings.HasPrefix(res.Detail, "timeout_target_active_for_") {
		t.Fatalf("unexpected detail: %q", res.Detail)
	}
}

func TestConfirmSolidToleranceAtTimeout(t *testing.T) {
	c := newTestChecker(0.2)
	stop := feed(c, []scriptStep{
		{led.AllOff, ms(400)},
		{led.RGB(1, 0, 0), 2 * time.Second},
	})
	defer stop()

	// Held roughly 1.1s at timeout: short of the 1.2s minimum but inside
	// the 0.2s tolerance.
	res := c.confirmSolid(led.RGB(1, 0, 0), 1.2, 1.5, Opts{})
	if !res.OK {
		t.Fatalf("expected tolerance pass, got %q", res.Detail)
	}
}

func TestConfirmSolidFailLedVeto(t *testing.T) {
	c := newTestChecker(0.1)
	stop := feed(c, []scriptStep{{led.RGB(1, 1, 0), time.Second}})
	defer stop()

	res := c.confirmSolid(led.State{"red": 1}, 0.2, 0.4, Opts{FailLeds: []string{"green"}})
	if res.OK {
		t.Fatal("lit fail led should prevent a solid confirm")
	}
}

func TestAwaitStateProhibited(t *testing.T) {
	c := newTestChecker(0.1)
	stop := feed(c, []scriptStep{
		{led.AllOff, ms(200)},
		{led.RGB(0, 1, 0), time.Second},
	})
	defer stop()

	res := c.awaitState(led.RGB(1, 0, 0), 1.5, Opts{FailLeds: []string{"green"}})
	if res.OK {
		t.Fatal("expected prohibited led failure")
	}
	if res.Detail != "prohibited_led_green_on" {
		t.Fatalf("unexpected detail: %q", res.Detail)
	}
}

func TestAwaitStateTimeout(t *testing.T) {
	c := newTestChecker(0.1)
	stop := feed(c, []scriptStep{{led.AllOff, time.Second}})
	defer stop()

	res := c.awaitState(led.RGB(1, 0, 0), 0.3, Opts{})
	if res.OK {
		t.Fatal("expected timeout")
	}
	if res.Detail != "timeout_await_red1_green0_blue0" {
		t.Fatalf("unexpected detail: %q", res.Detail)
	}
}

func TestConfirmPatternPass(t *testing.T) {
	c := newTestChecker(0.1)
	stop := feed(c, []scriptStep{
		{led.AllOff, ms(100)},
		{led.RGB(1, 0, 0), ms(500)},
		{led.RGB(0, 1, 0), ms(500)},
		{led.AllOff, time.Second},
	})
	defer stop()

	p := led.Pattern{
		{Target: led.RGB(1, 0, 0), Min: 0.2, Max: 1.0},
		{Target: led.RGB(0, 1, 0), Min: 0.2, Max: 1.0},
	}
	res := c.confirmPattern(p, Opts{})
	if !res.OK {
		t.Fatalf("expected pattern pass, got %q", res.Detail)
	}
}

func TestConfirmPatternEarlyChange(t *testing.T) {
	c := newTestChecker(0.1)
	stop := feed(c, []scriptStep{
		{led.RGB(1, 0, 0), ms(300)},
		{led.RGB(0, 1, 0), time.Second},
	})
	defer stop()

	p := led.Pattern{{Target: led.RGB(1, 0, 0), Min: 0.8, Max: 2.0}}
	res := c.confirmPattern(p, Opts{KeepStale: true})
	if res.OK {
		t.Fatal("expected early change failure")
	}
	if !strings.HasPrefix(res.Detail, "step_1_state_red1_green0_blue0_changed_to_") {
		t.Fatalf("unexpected detail: %q", res.Detail)
	}
	if !strings.Contains(res.Detail, "_early_held_") {
		t.Fatalf("unexpected detail: %q", res.Detail)
	}
}

func TestConfirmPatternStepNotSeen(t *testing.T) {
	c := newTestChecker(0.1)
	stop := feed(c, []scriptStep{{led.AllOff, 5 * time.Second}})
	defer stop()

	p := led.Pattern{{Target: led.RGB(0, 0, 1), Min: 0.2, Max: 0.5}}
	res := c.confirmPattern(p, Opts{})
	if res.OK {
		t.Fatal("expected not-seen failure")
	}
	if res.Detail != "step_1_not_seen_red0_green0_blue1" {
		t.Fatalf("unexpected detail: %q", res.Detail)
	}
}

func TestConfirmPatternSkipsUnseenZeroMinFirstStep(t *testing.T) {
	c := newTestChecker(0.1)
	stop := feed(c, []scriptStep{{led.RGB(1, 0, 0), 2 * time.Second}})
	defer stop()

	p := led.Pattern{
		{Target: led.AllOff, Min: 0, Max: 1.0},
		{Target: led.RGB(1, 0, 0), Min: 0.1, Max: 3.0},
	}
	res := c.confirmPattern(p, Opts{})
	if !res.OK {
		t.Fatalf("zero-minimum opening step should be skippable, got %q", res.Detail)
	}
}

func TestAwaitThenConfirmPattern(t *testing.T) {
	c := newTestChecker(0.1)
	stop := feed(c, []scriptStep{
		{led.AllOff, ms(300)},
		{led.RGB(1, 0, 0), ms(400)},
		{led.RGB(0, 1, 0), ms(400)},
		{led.AllOff, time.Second},
	})
	defer stop()

	p := led.Pattern{
		{Target: led.RGB(1, 0, 0), Min: 0.2, Max: 1.0},
		{Target: led.RGB(0, 1, 0), Min: 0.2, Max: 1.0},
	}
	res := c.awaitThenConfirmPattern(p, 2.0, Opts{})
	if !res.OK {
		t.Fatalf("expected pass, got %q", res.Detail)
	}
}

func TestAwaitThenConfirmPatternOpeningStateMissing(t *testing.T) {
	c := newTestChecker(0.1)
	stop := feed(c, []scriptStep{{led.AllOff, time.Second}})
	defer stop()

	p := led.Pattern{{Target: led.RGB(0, 0, 1), Min: 0.1, Max: 1.0}}
	res := c.awaitThenConfirmPattern(p, 0.3, Opts{})
	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Detail != "first_state_red0_green0_blue1_not_observed_in_await_confirm" {
		t.Fatalf("unexpected detail: %q", res.Detail)
	}
}

func TestPatternTimeoutBudget(t *testing.T) {
	p := led.Pattern{
		{Target: led.RGB(1, 0, 0), Min: 0.1, Max: 1.0},
		{Target: led.RGB(0, 1, 0), Min: 0.1, Max: 2.0},
		{Target: led.AllOff, Min: 0.1, Max: inf()},
	}
	got := patternTimeout(p)
	want := 1.0 + 2.0 + 10.0 + 5.0*3 + 15.0
	if got != want {
		t.Fatalf("expected budget %.1f, got %.1f", want, got)
	}
}

func TestCameraNotInitialized(t *testing.T) {
	c := newTestChecker(0.1)
	c.initialized.Store(false)

	if res := c.confirmSolid(led.AllOn, 1, 1, Opts{}); res.Detail != "camera_not_initialized" {
		t.Fatalf("unexpected detail: %q", res.Detail)
	}
	if res := c.awaitState(led.AllOn, 1, Opts{}); res.Detail != "camera_not_initialized" {
		t.Fatalf("unexpected detail: %q", res.Detail)
	}
}

func TestKeyTrackerDepth(t *testing.T) {
	k := newKeyTracker()
	k.add("key1")
	k.add("key1")
	k.remove("key1")
	if snap := k.snapshot(); !snap["key1"] {
		t.Fatal("key should stay pressed while one press is outstanding")
	}
	k.remove("key1")
	if snap := k.snapshot(); snap != nil {
		t.Fatalf("expected empty snapshot, got %v", snap)
	}
}

func TestKeyTrackerFlash(t *testing.T) {
	k := newKeyTracker()
	defer k.stopAll()

	k.flash("key5", ms(50))
	if snap := k.snapshot(); snap["key5"] {
		t.Fatal("key should not show before the visual delay")
	}
	time.Sleep(keyVisualDelay + ms(30))
	if snap := k.snapshot(); !snap["key5"] {
		t.Fatal("key should show after the visual delay")
	}
	time.Sleep(ms(50) + keyVisualSustain + ms(50))
	if snap := k.snapshot(); snap != nil {
		t.Fatalf("key should clear after hold plus sustain, got %v", snap)
	}
}
