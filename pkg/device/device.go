// Package device drives the keypad unit through its operating modes. A
// guarded state machine mirrors the firmware's mode graph; transitions press
// keys through the actuator and verify the LED response through the camera
// before the model is allowed to advance. Transition order in the table
// encodes guard priority, so the routing after power-on and the brute-force
// thresholds read top to bottom.
package device

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"keypad-hil/pkg/checker"
	"keypad-hil/pkg/dut"
	"keypad-hil/pkg/fsm"
	"keypad-hil/pkg/hardware"
	"keypad-hil/pkg/led"
	"keypad-hil/pkg/utils"
)

var logger *zap.SugaredLogger

func init() {
	logger = utils.GetLogger()
}

// Operating modes of the device.
const (
	StateOff            fsm.State = "OFF"
	StatePOST           fsm.State = "POWER_ON_SELF_TEST"
	StateFactory        fsm.State = "FACTORY_MODE"
	StateOOB            fsm.State = "OOB_MODE"
	StateStandby        fsm.State = "STANDBY_MODE"
	StateAdmin          fsm.State = "ADMIN_MODE"
	StateUnlockedAdmin  fsm.State = "UNLOCKED_ADMIN"
	StateUnlockedUser   fsm.State = "UNLOCKED_USER"
	StateUnlockedReset  fsm.State = "UNLOCKED_RESET"
	StateBruteForce     fsm.State = "BRUTE_FORCE"
	StateForcedEnroll   fsm.State = "USER_FORCED_ENROLLMENT"
	StatePinEnroll      fsm.State = "PIN_ENROLLMENT"
	StateCounterEnroll  fsm.State = "COUNTER_ENROLLMENT"
	StateDiagnostic     fsm.State = "DIAGNOSTIC_MODE"
	StateBricked        fsm.State = "BRICKED"
)

// Verifier is the camera-side contract the driver checks LED behavior
// against. *checker.Checker implements it on the bench; tests substitute a
// scripted fake.
type Verifier interface {
	ConfirmSolid(target led.State, min, timeout float64, o checker.Opts) checker.Result
	AwaitState(target led.State, timeout float64, o checker.Opts) checker.Result
	ConfirmPattern(p led.Pattern, o checker.Opts) checker.Result
	AwaitThenConfirmPattern(p led.Pattern, timeout float64, o checker.Opts) checker.Result
}

// EnumInfo describes one enumerated device as seen by the host.
type EnumInfo struct {
	Serial      string
	BlockDevice string
}

// Enumerator checks the host's USB and block-device view of the unit.
type Enumerator interface {
	// ConfirmDeviceEnum reports whether a device with the serial is present
	// on the bus, without requiring its storage volume.
	ConfirmDeviceEnum(serial string) (EnumInfo, bool)
	// ConfirmDriveEnum reports whether the unit's storage volume enumerated.
	ConfirmDriveEnum(serial string) (EnumInfo, bool)
}

// Reporter collects failures and warnings for the run summary.
type Reporter interface {
	LogFailure(desc string)
	LogWarning(desc string)
	CountEnumeration(kind string)
}

type noopReporter struct{}

func (noopReporter) LogFailure(string)       {}
func (noopReporter) LogWarning(string)       {}
func (noopReporter) CountEnumeration(string) {}

// Config wires a Driver. DUT, Actuator and Verifier are required.
type Config struct {
	DUT      *dut.Device
	Actuator hardware.Actuator
	Verifier Verifier

	// Enum is optional; when nil the host-side enumeration checks are
	// skipped with a warning.
	Enum Enumerator

	Reporter Reporter

	// Sleep substitutes the settle delays between hardware actions. Tests
	// inject a no-op to run the long holds instantly.
	Sleep func(time.Duration)
}

// Driver owns one unit on the bench.
type Driver struct {
	dut   *dut.Device
	act   hardware.Actuator
	ver   Verifier
	enum  Enumerator
	rep   Reporter
	sleep func(time.Duration)
	m     *fsm.Machine

	// orienting is set while a block orientation reset is in flight, so the
	// reset path re-raises the data line afterwards.
	orienting bool

	// pendingCounter names the counter kind opened by the last counter
	// enrollment prelude.
	pendingCounter string
}

func New(cfg Config) (*Driver, error) {
	if cfg.DUT == nil || cfg.Actuator == nil || cfg.Verifier == nil {
		return nil, fmt.Errorf("device: dut, actuator and verifier are required")
	}
	d := &Driver{
		dut:   cfg.DUT,
		act:   cfg.Actuator,
		ver:   cfg.Verifier,
		enum:  cfg.Enum,
		rep:   cfg.Reporter,
		sleep: cfg.Sleep,
	}
	if d.rep == nil {
		d.rep = noopReporter{}
	}
	if d.sleep == nil {
		d.sleep = time.Sleep
	}
	m, err := fsm.New(cfg.DUT.Name, StateOff, d.transitions())
	if err != nil {
		return nil, err
	}
	d.m = m
	d.registerEnterHooks()
	return d, nil
}

func (d *Driver) State() fsm.State { return d.m.State() }

// Model exposes the tracked device state.
func (d *Driver) Model() *dut.Device { return d.dut }

func (d *Driver) opts(ev *fsm.Event) checker.Opts {
	return checker.Opts{Current: string(ev.Source), Dest: string(ev.Dest)}
}

func (d *Driver) sleepSec(sec float64) {
	d.sleep(utils.SecToDuration(sec))
}

func (d *Driver) press(channels ...string) error {
	return d.act.Press(hardware.DefaultPress, channels...)
}

func (d *Driver) hold(ms int, channels ...string) error {
	return d.act.Press(utils.MsToDuration(ms), channels...)
}

// sequence presses single keys in order with the default pulse timing.
func (d *Driver) sequence(keys []string, pause time.Duration) error {
	seq := make([]hardware.Chord, len(keys))
	for i, k := range keys {
		seq[i] = hardware.Chord{k}
	}
	return d.act.Sequence(seq, hardware.DefaultPress, pause)
}

// check reports a failed verification to the session and returns whether it
// passed.
func (d *Driver) check(desc string, res checker.Result) bool {
	if res.OK {
		return true
	}
	d.rep.LogFailure(desc + ": " + res.Detail)
	return false
}

// Triggers. Each returns whether the machine completed the transition; a
// false with nil error means a verification step blocked it and the device
// stayed put.

func (d *Driver) PowerOn(usb3 bool) (bool, error) {
	return d.m.Fire("power_on", map[string]interface{}{"usb3": usb3})
}

func (d *Driver) PowerOff() (bool, error) {
	return d.m.Fire("power_off", nil)
}

func (d *Driver) UserReset() (bool, error) {
	return d.m.Fire("user_reset", nil)
}

func (d *Driver) ManufacturerReset() (bool, error) {
	return d.m.Fire("manufacturer_reset", nil)
}

// LockReset locks the drive after a manufacturer reset, landing back in OOB.
func (d *Driver) LockReset() (bool, error) {
	return d.m.Fire("lock_reset", nil)
}

func (d *Driver) EnterDiagnosticMode() (bool, error) {
	return d.m.Fire("enter_diagnostic_mode", nil)
}

func (d *Driver) ExitDiagnosticMode() (bool, error) {
	return d.m.Fire("exit_diagnostic_mode", nil)
}

func (d *Driver) AdminModeLogin() (bool, error) {
	return d.m.Fire("admin_mode_login", nil)
}

func (d *Driver) LockAdmin() (bool, error) {
	return d.m.Fire("lock_admin", nil)
}

func (d *Driver) UnlockAdmin() (bool, error) {
	return d.m.Fire("unlock_admin", nil)
}

func (d *Driver) UnlockUser(userID int) (bool, error) {
	return d.m.Fire("unlock_user", map[string]interface{}{"user_id": userID})
}

func (d *Driver) LockUser() (bool, error) {
	return d.m.Fire("lock_user", nil)
}

// SelfDestructUnlock unlocks with the self-destruct PIN, wiping the unit.
func (d *Driver) SelfDestructUnlock() (bool, error) {
	return d.m.Fire("self_destruct", nil)
}

// FailUnlock enters an invalid PIN to burn one brute-force attempt. A nil pin
// uses the default all-nines entry.
func (d *Driver) FailUnlock(pin []string) (bool, error) {
	var args map[string]interface{}
	if pin != nil {
		args = map[string]interface{}{"pin": pin}
	}
	return d.m.Fire("fail_unlock", args)
}

func (d *Driver) LastTryLogin() (bool, error) {
	return d.m.Fire("last_try_login", nil)
}

func (d *Driver) AdminRecoveryFailed() (bool, error) {
	return d.m.Fire("admin_recovery_failed", nil)
}

// Enrollment triggers. The enroll_* entries move into the enrollment state;
// EnrollPin and EnrollCounter complete them.

func (d *Driver) EnrollAdmin() (bool, error) {
	return d.m.Fire("enroll_admin", nil)
}

func (d *Driver) EnrollUser() (bool, error) {
	return d.m.Fire("enroll_user", nil)
}

func (d *Driver) EnrollRecovery() (bool, error) {
	return d.m.Fire("enroll_recovery", nil)
}

func (d *Driver) EnrollSelfDestruct() (bool, error) {
	return d.m.Fire("enroll_self_destruct", nil)
}

func (d *Driver) EnrollPin(newPin []string) (bool, error) {
	return d.m.Fire("enroll_pin", map[string]interface{}{"new_pin": newPin})
}

func (d *Driver) TimeoutEnrollPin(pinEntered bool) (bool, error) {
	return d.m.Fire("timeout_enroll_pin", map[string]interface{}{"pin_entered": pinEntered})
}

func (d *Driver) ExitEnrollPin() (bool, error) {
	return d.m.Fire("exit_enroll_pin", nil)
}

func (d *Driver) EnrollBruteForceCounter() (bool, error) {
	return d.m.Fire("enroll_brute_force_counter", nil)
}

func (d *Driver) EnrollAutoLockCounter() (bool, error) {
	return d.m.Fire("enroll_unattended_auto_lock_counter", nil)
}

func (d *Driver) EnrollMinPinCounter() (bool, error) {
	return d.m.Fire("enroll_min_pin_counter", nil)
}

// EnrollCounter completes a counter enrollment. The value is a two-digit
// string for the brute-force and minimum-PIN counters and a single-digit int
// for the auto-lock counter.
func (d *Driver) EnrollCounter(value interface{}) (bool, error) {
	return d.m.Fire("enroll_counter", map[string]interface{}{"new_counter": value})
}

func (d *Driver) TimeoutEnrollCounter(pinEntered bool) (bool, error) {
	return d.m.Fire("timeout_enroll_counter", map[string]interface{}{"pin_entered": pinEntered})
}

func (d *Driver) ExitEnrollCounter() (bool, error) {
	return d.m.Fire("exit_enroll_counter", nil)
}

// Admin-mode feature toggles, all self loops on ADMIN_MODE.

func (d *Driver) ToggleBasicDisk() (bool, error) {
	return d.m.Fire("toggle_basic_disk", nil)
}

func (d *Driver) ToggleRemovableMedia() (bool, error) {
	return d.m.Fire("toggle_removable_media", nil)
}

func (d *Driver) EnableLedFlicker() (bool, error) {
	return d.m.Fire("enable_led_flicker", nil)
}

func (d *Driver) DisableLedFlicker() (bool, error) {
	return d.m.Fire("disable_led_flicker", nil)
}

func (d *Driver) DeletePins() (bool, error) {
	return d.m.Fire("delete_pins", nil)
}

func (d *Driver) ToggleLockOverride() (bool, error) {
	return d.m.Fire("toggle_lock_override", nil)
}

func (d *Driver) EnableProvisionLock() (bool, error) {
	return d.m.Fire("enable_provision_lock", nil)
}

func (d *Driver) ToggleReadOnly() (bool, error) {
	return d.m.Fire("toggle_read_only", nil)
}

func (d *Driver) ToggleReadWrite() (bool, error) {
	return d.m.Fire("toggle_read_write", nil)
}

func (d *Driver) EnableSelfDestruct() (bool, error) {
	return d.m.Fire("enable_self_destruct", nil)
}

func (d *Driver) ToggleUserForcedEnrollment() (bool, error) {
	return d.m.Fire("toggle_user_forced_enrollment", nil)
}
