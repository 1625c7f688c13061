package device

import (
	"fmt"
	"time"

	"keypad-hil/pkg/fsm"
	"keypad-hil/pkg/hardware"
	"keypad-hil/pkg/led"
)

func (d *Driver) doPowerOn(ev *fsm.Event) (bool, error) {
	usb3 := true
	if v, ok := ev.Args["usb3"]; ok {
		b, isBool := v.(bool)
		if !isBool {
			return false, fmt.Errorf("power_on: usb3 argument must be a bool, got %T", v)
		}
		usb3 = b
	}

	logger.Info("powering on and running self test")
	if usb3 {
		if err := d.act.On("usb3"); err != nil {
			return false, err
		}
	}
	if err := d.act.On("connect"); err != nil {
		return false, err
	}
	d.sleepSec(0.5)

	// Battery units boot silently; USB-powered ones walk all three LEDs.
	if !d.dut.Battery {
		if !d.check("startup self test", d.ver.ConfirmPattern(led.RedGreenBlue, d.opts(ev))) {
			return false, nil
		}
	}
	return true, nil
}

func (d *Driver) doPowerOff(ev *fsm.Event) error {
	logger.Info("powering off")
	if err := d.act.Off("usb3"); err != nil {
		return err
	}
	return d.act.Off("connect")
}

// unlockPattern picks the enumeration cadence for the device's current
// read-only and lock-override settings, plus the settle delay to wait before
// watching for it. The fallback is used when neither flag is set.
func (d *Driver) unlockPattern(fallback led.Pattern) (led.Pattern, float64) {
	switch {
	case d.dut.ReadOnlyEnabled && d.dut.LockOverride:
		return led.EnumLockOverrideReadOnly, 10
	case d.dut.ReadOnlyEnabled:
		return led.EnumReadOnly, 10
	case d.dut.LockOverride:
		return led.EnumLockOverride, 10
	default:
		return fallback, 0
	}
}

func (d *Driver) enterUnlockPin(ev *fsm.Event, pin []string, fallback led.Pattern, desc string) (bool, error) {
	if err := d.sequence(pin, hardware.DefaultPause); err != nil {
		return false, err
	}
	pattern, settle := d.unlockPattern(fallback)
	if settle > 0 {
		d.sleepSec(settle)
	}
	if !d.check(desc, d.ver.AwaitThenConfirmPattern(pattern, 15, d.opts(ev))) {
		return false, nil
	}
	return true, nil
}

func (d *Driver) enterAdminPin(ev *fsm.Event) (bool, error) {
	logger.Info("unlocking with admin pin")
	return d.enterUnlockPin(ev, d.dut.AdminPIN, led.EnumLegacy, "admin unlock pattern")
}

func (d *Driver) enterSelfDestructPin(ev *fsm.Event) (bool, error) {
	logger.Info("unlocking with self-destruct pin")
	return d.enterUnlockPin(ev, d.dut.SelfDestructPIN, led.Enum, "self-destruct unlock pattern")
}

func (d *Driver) enterUserPin(ev *fsm.Event) (bool, error) {
	v, ok := ev.Args["user_id"]
	if !ok {
		return false, fmt.Errorf("unlock_user requires a user_id argument")
	}
	userID, isInt := v.(int)
	if !isInt {
		return false, fmt.Errorf("unlock_user: user_id must be an int, got %T", v)
	}
	pin, valid := d.dut.UserPIN[userID]
	if !valid {
		return false, fmt.Errorf("user slot %d does not exist on this device, have %d slots", userID, d.dut.MaxUsers())
	}
	if len(pin) == 0 {
		return false, fmt.Errorf("no pin tracked for user slot %d", userID)
	}

	logger.Infof("unlocking with pin from user slot %d", userID)
	return d.enterUnlockPin(ev, pin, led.EnumLegacy, fmt.Sprintf("user %d unlock pattern", userID))
}

func (d *Driver) enterAdminModeLogin(ev *fsm.Event) (bool, error) {
	if err := d.hold(6000, "key0", "unlock"); err != nil {
		return false, err
	}
	if !d.check("admin mode login", d.ver.ConfirmPattern(led.RedLogin, d.opts(ev))) {
		return false, nil
	}
	if err := d.sequence(d.dut.AdminPIN, hardware.DefaultPause); err != nil {
		return false, err
	}
	return true, nil
}

// lastTryPin is the fixed recovery entry accepted once per brute-force cycle.
var lastTryPin = []string{"key5", "key2", "key7", "key8", "key8", "key7", "key9", "unlock"}

func (d *Driver) enterLastTryPin(ev *fsm.Event) (bool, error) {
	logger.Info("entering last try login")
	if err := d.hold(6000, "key5", "unlock"); err != nil {
		return false, err
	}
	if !d.check("last try login", d.ver.AwaitThenConfirmPattern(led.RedGreen, 10, d.opts(ev))) {
		return false, nil
	}
	if err := d.sequence(lastTryPin, hardware.DefaultPause); err != nil {
		return false, err
	}
	return true, nil
}

// defaultInvalidPin burns a brute-force attempt without risking a real match.
var defaultInvalidPin = []string{"key9", "key9", "key9", "key9", "key9", "key9", "key9", "unlock"}

func (d *Driver) enterInvalidPin(ev *fsm.Event) (bool, error) {
	pin := defaultInvalidPin
	if v, ok := ev.Args["pin"]; ok {
		p, isPin := v.([]string)
		if !isPin {
			return false, fmt.Errorf("fail_unlock: pin must be a []string, got %T", v)
		}
		pin = p
	}
	if err := d.sequence(pin, hardware.DefaultPause); err != nil {
		return false, err
	}
	if !d.check("invalid pin reject", d.ver.AwaitThenConfirmPattern(led.Reject, 5, d.opts(ev))) {
		return false, nil
	}
	if d.dut.BruteForceCurrent > 0 {
		d.dut.BruteForceCurrent--
		logger.Infof("brute force counter now %d/%d", d.dut.BruteForceCurrent, d.dut.BruteForceCounter)
	}
	return true, nil
}

func (d *Driver) doUserReset(ev *fsm.Event) (bool, error) {
	logger.Info("initiating user reset")
	if ev.Source == StateAdmin {
		seq := []hardware.Chord{{"lock", "unlock", "key2"}}
		if err := d.act.Sequence(seq, hardware.DefaultPress, hardware.DefaultPause); err != nil {
			return false, err
		}
	} else {
		for _, ch := range []string{"lock", "unlock", "key2"} {
			if err := d.act.On(ch); err != nil {
				return false, err
			}
		}
		pattern := led.RedBlue
		if d.dut.Battery {
			pattern = led.UserResetKey
		}
		if !d.check("user reset initiation", d.ver.AwaitThenConfirmPattern(pattern, 15, d.opts(ev))) {
			d.act.Off("lock", "unlock", "key2")
			return false, nil
		}
	}
	d.sleepSec(10)
	if err := d.act.Off("lock", "unlock", "key2"); err != nil {
		return false, err
	}
	if !d.check("user reset key generation", d.ver.ConfirmSolid(led.KeyGenState, 8, 15, d.opts(ev))) {
		return false, nil
	}

	d.dut.Reset()
	logger.Info("user reset confirmed, device model returned to defaults")
	if d.orienting {
		if err := d.act.On("connect"); err != nil {
			return false, err
		}
	}
	return true, nil
}

// keypadWalkOrder is the order the firmware expects keys during the
// post-reset keypad test. Secure-key models place key0 before the lock key.
func keypadWalkOrder(secureKey bool) []string {
	if secureKey {
		return []string{"key1", "key2", "key3", "key4", "key5", "key6", "key7", "key8", "key9", "key0", "lock", "unlock"}
	}
	return []string{"key1", "key2", "key3", "key4", "key5", "key6", "key7", "key8", "key9", "lock", "key0", "unlock"}
}

func (d *Driver) doManufacturerReset(ev *fsm.Event) (bool, error) {
	o := d.opts(ev)
	if ev.Source == StateFactory {
		logger.Info("initiating configuration manufacturer reset")
		p := d.dut.Profile
		seq := []hardware.Chord{
			{"lock", "key2"},
			{"key3"},
			{fmt.Sprintf("key%d", p.HardwareMajor)},
			{fmt.Sprintf("key%d", p.HardwareMinor)},
			{fmt.Sprintf("key%d", p.ModelIDDigit1)},
			{fmt.Sprintf("key%d", p.ModelIDDigit2)},
		}
		if err := d.act.Sequence(seq, hardware.DefaultPress, 100*time.Millisecond); err != nil {
			return false, err
		}
	} else {
		logger.Info("initiating manufacturer reset")
		seq := []hardware.Chord{{"lock", "key2"}, {"key3"}, {"key8"}}
		if err := d.act.Sequence(seq, hardware.DefaultPress, 200*time.Millisecond); err != nil {
			return false, err
		}
		d.sleepSec(0.2)
	}
	if err := d.hold(6000, "lock"); err != nil {
		return false, err
	}

	if !d.check("reset ready", d.ver.AwaitThenConfirmPattern(led.RedGreenBlue, 7, o)) {
		return false, nil
	}

	keys := keypadWalkOrder(d.dut.Profile.SecureKey)
	first, last := keys[0], keys[len(keys)-1]
	stale := o
	stale.KeepStale = true

	// The first key overlaps the tail of the reset-ready pattern, so it gets
	// its own blue-to-green check on the stale buffer.
	logger.Infof("testing key %s", first)
	if err := d.act.On(first); err != nil {
		return false, err
	}
	if !d.check(fmt.Sprintf("%s confirmation", first), d.ver.ConfirmPattern(led.FirstKeyKeypadTest, stale)) {
		d.act.Off(first)
		return false, nil
	}
	if err := d.act.Off(first); err != nil {
		return false, err
	}
	d.ver.ConfirmSolid(led.AllOff, 0.15, 1, stale)

	for _, key := range keys[1 : len(keys)-1] {
		logger.Infof("testing key %s", key)
		if err := d.act.On(key); err != nil {
			return false, err
		}
		if !d.check(fmt.Sprintf("%s confirmation", key), d.ver.AwaitState(led.AcceptState, 1, stale)) {
			d.act.Off(key)
			return false, nil
		}
		if err := d.act.Off(key); err != nil {
			return false, err
		}
		d.ver.ConfirmSolid(led.AllOff, 0.15, 1, stale)
	}

	logger.Infof("testing key %s", last)
	if err := d.press(last); err != nil {
		return false, err
	}
	if !d.check("encryption key generation", d.ver.ConfirmSolid(led.KeyGenState, 2, 5, o)) {
		return false, nil
	}
	// Key generation runs several seconds; the long confirm is advisory.
	d.ver.ConfirmSolid(led.KeyGenState, 6, 15, o)

	d.dut.Reset()
	return true, nil
}

func (d *Driver) pressLockButton(ev *fsm.Event) error {
	logger.Info("pressing lock button")
	return d.press("lock")
}
