package device

import (
	"keypad-hil/pkg/fsm"
	"keypad-hil/pkg/led"
)

// Admin-mode feature toggles. Each presses its two-key chord and flips the
// model flag only when the accept blink is seen.

func (d *Driver) acceptToggle(ev *fsm.Event, desc string, chord []string, apply func()) error {
	if err := d.press(chord...); err != nil {
		return err
	}
	if d.check(desc, d.ver.AwaitThenConfirmPattern(led.Accept, 5, d.opts(ev))) {
		apply()
	}
	return nil
}

// rejectToggle verifies a toggle the firmware must refuse in the current
// configuration.
func (d *Driver) rejectToggle(ev *fsm.Event, desc string, chord []string) error {
	if err := d.press(chord...); err != nil {
		return err
	}
	d.check(desc, d.ver.AwaitThenConfirmPattern(led.Reject, 5, d.opts(ev)))
	return nil
}

func (d *Driver) basicDiskToggle(ev *fsm.Event) error {
	return d.acceptToggle(ev, "basic disk toggle", []string{"key2", "key3"}, func() {
		d.dut.BasicDisk = true
		logger.Infof("basic disk mode: %v", d.dut.BasicDisk)
	})
}

func (d *Driver) removableMediaToggle(ev *fsm.Event) error {
	return d.acceptToggle(ev, "removable media toggle", []string{"key3", "key7"}, func() {
		d.dut.RemovableMedia = true
		logger.Infof("removable media mode: %v", d.dut.RemovableMedia)
	})
}

func (d *Driver) ledFlickerEnable(ev *fsm.Event) error {
	return d.acceptToggle(ev, "led flicker enable", []string{"key0", "key3"}, func() {
		d.dut.LedFlicker = true
		logger.Infof("led flicker mode: %v", d.dut.LedFlicker)
	})
}

func (d *Driver) ledFlickerDisable(ev *fsm.Event) error {
	return d.acceptToggle(ev, "led flicker disable", []string{"key0", "key3"}, func() {
		d.dut.LedFlicker = false
		logger.Infof("led flicker mode: %v", d.dut.LedFlicker)
	})
}

func (d *Driver) lockOverrideToggle(ev *fsm.Event) error {
	return d.acceptToggle(ev, "lock override toggle", []string{"key0", "key3"}, func() {
		d.dut.LockOverride = !d.dut.LockOverride
		logger.Infof("lock override mode: %v", d.dut.LockOverride)
	})
}

// provisionLockToggle is refused while self destruct is armed; the two
// features are mutually exclusive.
func (d *Driver) provisionLockToggle(ev *fsm.Event) error {
	if d.dut.SelfDestructEnabled {
		return d.rejectToggle(ev, "provision lock reject with self destruct enabled", []string{"key2", "key5"})
	}
	return d.acceptToggle(ev, "provision lock toggle", []string{"key2", "key5"}, func() {
		d.dut.ProvisionLock = !d.dut.ProvisionLock
		logger.Infof("provision lock mode: %v", d.dut.ProvisionLock)
	})
}

func (d *Driver) readOnlyToggle(ev *fsm.Event) error {
	return d.acceptToggle(ev, "read-only toggle", []string{"key6", "key7"}, func() {
		d.dut.ReadOnlyEnabled = true
		logger.Infof("read-only mode: %v", d.dut.ReadOnlyEnabled)
	})
}

func (d *Driver) readWriteToggle(ev *fsm.Event) error {
	return d.acceptToggle(ev, "read-write toggle", []string{"key7", "key9"}, func() {
		d.dut.ReadOnlyEnabled = false
		logger.Infof("read-only mode: %v", d.dut.ReadOnlyEnabled)
	})
}

// selfDestructToggle is refused while the provision lock is set.
func (d *Driver) selfDestructToggle(ev *fsm.Event) error {
	if d.dut.ProvisionLock {
		return d.rejectToggle(ev, "self destruct reject with provision lock enabled", []string{"key4", "key7"})
	}
	return d.acceptToggle(ev, "self destruct toggle", []string{"key4", "key7"}, func() {
		d.dut.SelfDestructEnabled = true
		logger.Infof("self destruct enabled: %v", d.dut.SelfDestructEnabled)
	})
}

// userForcedEnrollmentToggle can only be switched on; once set the firmware
// rejects further presses of the chord.
func (d *Driver) userForcedEnrollmentToggle(ev *fsm.Event) error {
	if !d.dut.UserForcedEnrollment {
		return d.acceptToggle(ev, "user forced enrollment toggle", []string{"key0", "key1"}, func() {
			d.dut.UserForcedEnrollment = true
			logger.Infof("user forced enrollment: %v", d.dut.UserForcedEnrollment)
		})
	}
	return d.rejectToggle(ev, "user forced enrollment reject when already set", []string{"key0", "key1"})
}

// deletePinsToggle wipes every non-admin credential. The chord is held twice
// with a red/blue warning in between. Unavailable while forced enrollment is
// set.
func (d *Driver) deletePinsToggle(ev *fsm.Event) error {
	if d.dut.UserForcedEnrollment {
		logger.Warn("delete pins unavailable while user forced enrollment is set")
		return nil
	}
	o := d.opts(ev)
	if err := d.hold(6000, "key7", "key8"); err != nil {
		return err
	}
	if !d.check("delete pins accept", d.ver.AwaitThenConfirmPattern(led.Accept, 5, o)) {
		return nil
	}
	if !d.check("delete pins warning", d.ver.AwaitThenConfirmPattern(led.RedBlue, 5, o)) {
		return nil
	}
	if err := d.hold(6000, "key7", "key8"); err != nil {
		return err
	}
	if d.check("delete pins confirmation", d.ver.ConfirmSolid(led.AcceptState, 1, 3, o)) {
		d.dut.DeletePins()
		logger.Info("non-admin pins deleted")
	}
	return nil
}
