package checker

import (
	"fmt"
	"math"
	"time"

	"keypad-hil/pkg/led"
	"keypad-hil/pkg/utils"
)

// minLoggableStateDuration filters sub-frame flickers out of the state
// transition log.
const minLoggableStateDuration = 0.25

// Result is the outcome of a verification call. Detail carries a compact
// machine-readable failure token when OK is false.
type Result struct {
	OK     bool
	Detail string
	Held   float64
}

func pass(held float64) Result {
	return Result{OK: true, Held: held}
}

func fail(format string, args ...interface{}) Result {
	return Result{Detail: fmt.Sprintf(format, args...)}
}

// Opts tunes a single verification call.
type Opts struct {
	// FailLeds lists LED names that abort the check immediately when lit.
	FailLeds []string

	// KeepStale accepts frames captured before the call started. By
	// default each call only trusts fresh observations, so a state left
	// over from the previous operation cannot satisfy the check.
	KeepStale bool

	// Current and Dest label the replay overlay with the transition being
	// verified.
	Current string
	Dest    string
}

// stateLog mirrors the console trace of LED transitions during a check, one
// line per state with the time it was held.
type stateLog struct {
	order []string
	last  led.State
	since time.Time
}

func newStateLog(order []string) *stateLog {
	return &stateLog{order: order, since: time.Now()}
}

func (l *stateLog) observe(s led.State, at time.Time) {
	if l.last == nil {
		l.last, l.since = s, at
		return
	}
	if s.Equal(l.last) {
		return
	}
	if d := at.Sub(l.since).Seconds(); d >= minLoggableStateDuration {
		logger.Infof("%s (%.2fs)", l.last.Display(l.order), d)
	}
	l.last, l.since = s, at
}

func (l *stateLog) finish(suffix string) {
	if l.last == nil {
		return
	}
	if d := time.Since(l.since).Seconds(); d >= minLoggableStateDuration {
		logger.Infof("%s (%.2fs%s)", l.last.Display(l.order), d, suffix)
	}
}

func (c *Checker) notBefore(o Opts) time.Time {
	if o.KeepStale {
		return time.Time{}
	}
	return time.Now()
}

// read returns the newest observation, dropping anything older than notBefore.
func (c *Checker) read(notBefore time.Time) (led.State, time.Time, bool) {
	st, at, ok := c.buf.latestState()
	if !ok || at.Before(notBefore) {
		return nil, time.Time{}, false
	}
	return st, at, true
}

// ConfirmSolid verifies that target stays lit continuously for at least min
// seconds before timeout elapses. A hold that falls short of min by no more
// than the tolerance still passes when the clock runs out.
func (c *Checker) ConfirmSolid(target led.State, min, timeout float64, o Opts) Result {
	c.armReplay("confirm_solid", o)
	res := c.confirmSolid(target, min, timeout, o)
	c.disarmReplay(res)
	return res
}

func (c *Checker) confirmSolid(target led.State, min, timeout float64, o Opts) Result {
	if !c.initialized.Load() {
		return fail("camera_not_initialized")
	}
	logger.Debugf("confirm solid %s, min %.2fs (tol %.2fs), timeout %.2fs",
		target.Display(nil), min, c.opts.Tolerance, timeout)

	slog := newStateLog(nil)
	deadline := time.Now().Add(utils.SecToDuration(timeout))
	notBefore := c.notBefore(o)

	var matchStart time.Time
	for time.Now().Before(deadline) {
		st, at, ok := c.read(notBefore)
		if !ok {
			time.Sleep(c.pollMs)
			continue
		}
		slog.observe(st, at)

		if st.Matches(target, o.FailLeds) {
			if matchStart.IsZero() {
				matchStart = at
			}
			held := time.Since(matchStart).Seconds()
			if held >= min {
				logger.Infof("%s (%.2fs) - solid confirmed", target.Display(nil), held)
				return pass(held)
			}
		} else {
			matchStart = time.Time{}
		}
		time.Sleep(c.pollMs)
	}

	slog.finish(" at timeout")
	if !matchStart.IsZero() {
		held := time.Since(matchStart).Seconds()
		if held >= min-c.opts.Tolerance {
			logger.Warnf("timeout, but hold of %.2fs is within tolerance of %.2fs, passing", held, min)
			return pass(held)
		}
		return fail("timeout_target_active_for_%.2fs_needed_%.2fs", held, min)
	}
	return fail("timeout_target_not_solid_for_%.2fs", min)
}

// AwaitState waits for target to show up at least once before timeout. Any
// LED in FailLeds that lights first fails the wait immediately.
func (c *Checker) AwaitState(target led.State, timeout float64, o Opts) Result {
	c.armReplay("await_state", o)
	res := c.awaitState(target, timeout, o)
	c.disarmReplay(res)
	return res
}

func (c *Checker) awaitState(target led.State, timeout float64, o Opts) Result {
	if !c.initialized.Load() {
		return fail("camera_not_initialized")
	}
	logger.Infof("awaiting %s, timeout %.2fs", target.Display(nil), timeout)

	slog := newStateLog(nil)
	deadline := time.Now().Add(utils.SecToDuration(timeout))
	res := c.awaitAppearance(target, deadline, o.FailLeds, c.notBefore(o), slog)
	if res.OK {
		logger.Infof("target %s observed", target.Display(nil))
	} else {
		slog.finish(" at timeout")
	}
	return res
}

// awaitAppearance polls until target appears, a prohibited LED lights, or the
// deadline passes. Held carries the appearance offset in seconds from now.
func (c *Checker) awaitAppearance(target led.State, deadline time.Time, failLeds []string, notBefore time.Time, slog *stateLog) Result {
	for time.Now().Before(deadline) {
		st, at, ok := c.read(notBefore)
		if !ok {
			time.Sleep(c.pollMs)
			continue
		}
		if slog != nil {
			slog.observe(st, at)
		}
		if name, lit := st.Lit(failLeds); lit {
			logger.Warnf("prohibited LED %s is on, current %s", name, st.Display(nil))
			return fail("prohibited_led_%s_on", name)
		}
		if st.Matches(target, nil) {
			return pass(0)
		}
		time.Sleep(c.pollMs)
	}
	return fail("timeout_await_%s", target.Token())
}

// patternTimeout derives the overall budget for a pattern check: the sum of
// bounded maximums, a flat allowance per unbounded step, slack per step and a
// constant tail.
func patternTimeout(p led.Pattern) float64 {
	total := 15.0 + 5.0*float64(len(p))
	for _, s := range p {
		if s.Unbounded() {
			total += 10.0
		} else {
			total += s.Max
		}
	}
	return total
}

// ConfirmPattern verifies a timed sequence of states appears in order, each
// held within its step's duration bounds.
func (c *Checker) ConfirmPattern(p led.Pattern, o Opts) Result {
	c.armReplay("confirm_pattern", o)
	res := c.confirmPattern(p, o)
	c.disarmReplay(res)
	return res
}

func (c *Checker) confirmPattern(p led.Pattern, o Opts) Result {
	if len(p) == 0 {
		return fail("empty_pattern")
	}
	if !c.initialized.Load() {
		return fail("camera_not_initialized")
	}

	overall := patternTimeout(p)
	logger.Debugf("confirm pattern of %d steps, overall timeout %.2fs", len(p), overall)
	deadline := time.Now().Add(utils.SecToDuration(overall))
	notBefore := c.notBefore(o)

	for i, step := range p {
		if !time.Now().Before(deadline) {
			return fail("overall_timeout_pattern_at_step_%d", i+1)
		}
		if res := c.processStep(i, len(p), step, o, deadline, notBefore); !res.OK {
			return res
		}
		// Only the first step can be satisfied by pre-call footage.
		notBefore = time.Time{}
	}
	return pass(0)
}

// processStep runs one pattern step in two phases: wait for the step's state
// to appear, then confirm it holds within the duration bounds.
func (c *Checker) processStep(idx, total int, step led.Step, o Opts, overallDeadline, notBefore time.Time) Result {
	tol := c.opts.Tolerance
	maxCheck := step.Max
	if !step.Unbounded() {
		maxCheck += tol
	}
	logger.Debugf("pattern step %d/%d: awaiting %s (min %.2fs, max %.2fs)",
		idx+1, total, step.Target.Display(nil), step.Min, step.Max)

	appearWindow := step.Max
	if step.Unbounded() {
		appearWindow = 5.0
	}
	appearTimeout := math.Max(1.0, appearWindow) + 2.0
	if idx == 0 && step.Min == 0 {
		// A zero-minimum opening step may legitimately be missed.
		appearTimeout = 0.5
	}
	appearDeadline := time.Now().Add(utils.SecToDuration(appearTimeout))
	if appearDeadline.After(overallDeadline) {
		appearDeadline = overallDeadline
	}

	var seenAt time.Time
	for time.Now().Before(appearDeadline) {
		st, _, ok := c.read(notBefore)
		if !ok {
			time.Sleep(c.pollMs)
			continue
		}
		if st.Matches(step.Target, nil) {
			seenAt = time.Now()
			break
		}
		time.Sleep(c.pollMs)
	}
	if seenAt.IsZero() {
		if idx == 0 && step.Min == 0 {
			logger.Infof("pattern step 1/%d: %s not present but zero duration, continuing", total, step.Target.Display(nil))
			return pass(0)
		}
		return fail("step_%d_not_seen_%s", idx+1, step.Target.Token())
	}

	held := 0.0
	for time.Now().Before(overallDeadline) {
		held = time.Since(seenAt).Seconds()

		st, _, ok := c.read(notBefore)
		if !ok {
			time.Sleep(c.pollMs)
			continue
		}

		if st.Matches(step.Target, o.FailLeds) {
			if !step.Unbounded() && held > maxCheck {
				return fail("step_%d_exceeded_max_duration_held_%.2fs_max_%.2fs", idx+1, held, step.Max)
			}
			if held >= step.Min {
				logger.Infof("pattern step %d/%d: %s held %.2fs", idx+1, total, step.Target.Display(nil), held)
				return pass(held)
			}
		} else {
			if held >= step.Min {
				logger.Infof("pattern step %d/%d: %s held %.2fs before change", idx+1, total, step.Target.Display(nil), held)
				return pass(held)
			}
			if held >= step.Min-tol {
				logger.Warnf("pattern step %d/%d: held %.2fs, short of %.2fs but within tolerance, passing",
					idx+1, total, held, step.Min)
				return pass(held)
			}
			return fail("step_%d_state_%s_changed_to_%s_early_held_%.2fs_min_%.2fs",
				idx+1, step.Target.Token(), st.Token(), held, step.Min)
		}
		time.Sleep(c.pollMs)
	}
	return fail("timeout_hold_step_%d_held_%.2fs", idx+1, held)
}

// AwaitThenConfirmPattern waits up to timeout for the pattern's opening state
// and then verifies the full pattern. Useful after an action whose LED
// response starts at an unpredictable offset.
func (c *Checker) AwaitThenConfirmPattern(p led.Pattern, timeout float64, o Opts) Result {
	c.armReplay("await_confirm", o)
	res := c.awaitThenConfirmPattern(p, timeout, o)
	c.disarmReplay(res)
	return res
}

func (c *Checker) awaitThenConfirmPattern(p led.Pattern, timeout float64, o Opts) Result {
	if len(p) == 0 {
		return fail("empty_pattern")
	}
	if !c.initialized.Load() {
		return fail("camera_not_initialized")
	}

	first := p[0].Target
	deadline := time.Now().Add(utils.SecToDuration(timeout))
	if res := c.awaitAppearance(first, deadline, o.FailLeds, c.notBefore(o), nil); !res.OK {
		logger.Warnf("opening state %s not observed: %s", first.Display(nil), res.Detail)
		return fail("first_state_%s_not_observed_in_await_confirm", first.Token())
	}

	inner := o
	inner.KeepStale = true
	return c.confirmPattern(p, inner)
}
