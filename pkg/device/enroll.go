package device

import (
	"fmt"
	"strconv"

	"keypad-hil/pkg/fsm"
	"keypad-hil/pkg/hardware"
	"keypad-hil/pkg/led"
)

// Enrollment preludes. Each presses the entry chord and records which PIN
// kind the device is now waiting for; the pin enrollment action reads it
// back.

func (d *Driver) adminEnrollment(ev *fsm.Event) error {
	logger.Info("entering admin pin enrollment")
	if err := d.press("unlock", "key9"); err != nil {
		return err
	}
	d.dut.PendingEnrollment = "admin"
	return nil
}

func (d *Driver) recoveryPinEnrollment(ev *fsm.Event) error {
	logger.Info("entering recovery pin enrollment")
	if err := d.press("unlock", "key7"); err != nil {
		return err
	}
	d.check("recovery enrollment prompt", d.ver.AwaitThenConfirmPattern(led.GreenBlue, 5, d.opts(ev)))
	d.dut.PendingEnrollment = "recovery"
	return nil
}

func (d *Driver) userEnrollment(ev *fsm.Event) error {
	logger.Info("entering user pin enrollment")
	if err := d.press("unlock", "key1"); err != nil {
		return err
	}
	d.check("user enrollment prompt", d.ver.AwaitThenConfirmPattern(led.GreenBlue, 5, d.opts(ev)))
	d.dut.PendingEnrollment = "user"
	return nil
}

func (d *Driver) selfDestructPinEnrollment(ev *fsm.Event) error {
	if !d.dut.SelfDestructEnabled {
		logger.Info("attempting self-destruct pin enrollment with the feature disabled")
		if err := d.press("key3", "unlock"); err != nil {
			return err
		}
		d.check("self-destruct enrollment reject", d.ver.AwaitThenConfirmPattern(led.Reject, 5, d.opts(ev)))
		return nil
	}
	logger.Info("entering self-destruct pin enrollment")
	if err := d.press("key3", "unlock"); err != nil {
		return err
	}
	d.dut.PendingEnrollment = "self_destruct"
	return nil
}

// pinEnrollment enters the new PIN twice with the confirmation prompt in
// between, then records it in the model slot matching the pending kind.
func (d *Driver) pinEnrollment(ev *fsm.Event) error {
	newPin, err := pinArg(ev)
	if err != nil {
		return err
	}
	o := d.opts(ev)

	enter := func(prompt led.Pattern, promptDesc string) error {
		if err := d.sequence(newPin, hardware.DefaultPause); err != nil {
			return err
		}
		d.check("accept after first pin entry", d.ver.AwaitThenConfirmPattern(led.Accept, 5, o))
		d.check(promptDesc, d.ver.AwaitThenConfirmPattern(prompt, 5, o))
		return d.sequence(newPin, hardware.DefaultPause)
	}

	switch d.dut.PendingEnrollment {
	case "admin":
		logger.Info("enrolling new admin pin")
		if err := enter(led.GreenBlue, "re-entry prompt"); err != nil {
			return err
		}
		if d.check("admin pin confirmation", d.ver.AwaitState(led.AcceptState, 5, o)) {
			d.dut.AdminPIN = newPin
			logger.Info("admin pin enrolled")
		}

	case "recovery":
		slot, free := d.dut.FreeRecoverySlot()
		if !free {
			d.check("recovery slots full reject", d.ver.AwaitThenConfirmPattern(led.Reject, 5, o))
			logger.Info("recovery enrollment rejected, all slots full")
			d.dut.PendingEnrollment = ""
			return nil
		}
		logger.Infof("enrolling recovery pin into slot %d", slot)
		if err := enter(led.GreenBlue, "re-entry prompt"); err != nil {
			return err
		}
		d.check("recovery pin confirmation", d.ver.ConfirmSolid(led.AcceptState, 1, 3, o))
		d.dut.RecoveryPIN[slot] = newPin

	case "user":
		slot, free := d.dut.FreeUserSlot()
		if !free {
			d.check("user slots full reject", d.ver.AwaitThenConfirmPattern(led.Reject, 5, o))
			d.rep.LogFailure(fmt.Sprintf("user enrollment attempted with all %d slots full", d.dut.MaxUsers()))
			d.dut.PendingEnrollment = ""
			return nil
		}
		logger.Infof("enrolling user pin into slot %d", slot)
		if err := enter(led.GreenBlue, "re-entry prompt"); err != nil {
			return err
		}
		d.check("user pin confirmation", d.ver.ConfirmSolid(led.AcceptState, 1, 3, o))
		d.dut.UserPIN[slot] = newPin

	case "self_destruct":
		logger.Info("enrolling new self-destruct pin")
		if err := enter(led.RedBlue, "self-destruct re-entry prompt"); err != nil {
			return err
		}
		d.check("self-destruct pin confirmation", d.ver.AwaitState(led.AcceptState, 5, o))
		d.dut.SelfDestructPIN = newPin

	default:
		return fmt.Errorf("pin enrollment fired with no pending enrollment kind")
	}

	d.dut.PendingEnrollment = ""
	return nil
}

func pinArg(ev *fsm.Event) ([]string, error) {
	v, ok := ev.Args["new_pin"]
	if !ok {
		return nil, fmt.Errorf("pin enrollment requires a new_pin argument")
	}
	pin, isPin := v.([]string)
	if !isPin || len(pin) == 0 {
		return nil, fmt.Errorf("pin enrollment: new_pin must be a non-empty []string, got %T", v)
	}
	return pin, nil
}

// timeoutPinEnrollment lets the 30-second enrollment window lapse. A partial
// entry beforehand must draw a reject blink.
func (d *Driver) timeoutPinEnrollment(ev *fsm.Event) error {
	pinEntered, _ := ev.Args["pin_entered"].(bool)
	logger.Info("waiting out the pin enrollment window")
	d.sleepSec(30)
	if pinEntered {
		d.check("pin enrollment timeout reject", d.ver.AwaitThenConfirmPattern(led.Reject, 5, d.opts(ev)))
	}
	return nil
}

// Counter enrollment preludes.

func (d *Driver) bruteForceCounterEnrollment(ev *fsm.Event) error {
	logger.Info("entering brute force counter enrollment")
	if err := d.hold(6000, "unlock", "key5"); err != nil {
		return err
	}
	d.pendingCounter = "brute_force"
	return nil
}

func (d *Driver) minPinCounterEnrollment(ev *fsm.Event) error {
	logger.Info("entering minimum pin length enrollment")
	if err := d.hold(6000, "unlock", "key4"); err != nil {
		return err
	}
	d.pendingCounter = "min_pin"
	return nil
}

func (d *Driver) autoLockCounterEnrollment(ev *fsm.Event) error {
	logger.Info("entering unattended auto-lock enrollment")
	if err := d.hold(6000, "unlock", "key6"); err != nil {
		return err
	}
	d.pendingCounter = "auto_lock"
	return nil
}

// counterEnrollment keys in the counter value opened by the prelude. The
// brute-force and minimum-PIN counters take a two-digit string, the auto-lock
// timer a single-digit int.
func (d *Driver) counterEnrollment(ev *fsm.Event) error {
	o := d.opts(ev)
	kind := d.pendingCounter
	d.pendingCounter = ""

	twoDigits := func(desc string) (string, int, error) {
		v, ok := ev.Args["new_counter"]
		if !ok {
			return "", 0, fmt.Errorf("%s requires a new_counter argument", desc)
		}
		s, isStr := v.(string)
		if !isStr {
			return "", 0, fmt.Errorf("%s: new_counter must be a string, got %T", desc, v)
		}
		if len(s) != 2 {
			return "", 0, fmt.Errorf("%s requires two digits, got %q", desc, s)
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return "", 0, fmt.Errorf("%s: new_counter %q is not numeric", desc, s)
		}
		return s, n, nil
	}

	switch kind {
	case "brute_force":
		s, n, err := twoDigits("brute force counter enrollment")
		if err != nil {
			return err
		}
		if err := d.press("key" + s[:1]); err != nil {
			return err
		}
		if err := d.press("key" + s[1:]); err != nil {
			return err
		}
		if n < 2 || n > 10 {
			d.check("brute force counter out-of-range reject", d.ver.AwaitThenConfirmPattern(led.Reject, 5, o))
			return nil
		}
		if d.check("brute force counter feedback", d.ver.AwaitThenConfirmPattern(led.CounterFeedback(n), 5, o)) {
			d.dut.BruteForceCounter = n
			d.dut.BruteForceCurrent = n
			logger.Infof("brute force counter set to %d", n)
		}

	case "min_pin":
		s, n, err := twoDigits("minimum pin length enrollment")
		if err != nil {
			return err
		}
		if err := d.press("key" + s[:1]); err != nil {
			return err
		}
		if err := d.press("key" + s[1:]); err != nil {
			return err
		}
		if n < d.dut.DefaultMinPINLength || n > d.dut.MaxPINLength {
			d.check("minimum pin length out-of-range reject", d.ver.AwaitThenConfirmPattern(led.Reject, 5, o))
			return nil
		}
		if d.check("minimum pin length accept", d.ver.AwaitThenConfirmPattern(led.Accept, 5, o)) {
			d.dut.MinPINLength = n
			logger.Infof("minimum pin length set to %d", n)
		}

	case "auto_lock":
		v, ok := ev.Args["new_counter"]
		if !ok {
			return fmt.Errorf("auto-lock enrollment requires a new_counter argument")
		}
		n, isInt := v.(int)
		if !isInt {
			return fmt.Errorf("auto-lock enrollment: new_counter must be an int, got %T", v)
		}
		if n < 0 || n > 9 {
			return fmt.Errorf("auto-lock enrollment requires a single digit, got %d", n)
		}
		if err := d.press(fmt.Sprintf("key%d", n)); err != nil {
			return err
		}
		if n > 3 {
			d.check("auto-lock out-of-range reject", d.ver.AwaitThenConfirmPattern(led.Reject, 5, o))
			return nil
		}
		if d.check("auto-lock accept", d.ver.AwaitThenConfirmPattern(led.Accept, 5, o)) {
			d.dut.UnattendedAutoLock = n
			logger.Infof("unattended auto-lock set to %d", n)
		}

	default:
		return fmt.Errorf("counter enrollment fired with no pending counter kind")
	}
	return nil
}

// timeoutCounterEnrollment lets the 30-second counter window lapse, checking
// for a reject when digits were keyed before the timeout.
func (d *Driver) timeoutCounterEnrollment(ev *fsm.Event) error {
	pinEntered, _ := ev.Args["pin_entered"].(bool)
	d.pendingCounter = ""
	logger.Info("waiting out the counter enrollment window")
	d.sleepSec(30)
	if pinEntered {
		d.check("counter enrollment timeout reject", d.ver.AwaitThenConfirmPattern(led.Reject, 5, d.opts(ev)))
	}
	return nil
}
