package device

import "keypad-hil/pkg/fsm"

// transitions builds the mode graph. Order matters: the first transition
// whose guards pass wins, so the power-on routing and the brute-force
// thresholds are resolved top to bottom.
func (d *Driver) transitions() []fsm.Transition {
	dut := d.dut

	noAdminPin := fsm.Guard{Name: "admin pin not enrolled", Cond: func() bool { return len(dut.AdminPIN) == 0 }}
	adminPin := fsm.Guard{Name: "admin pin enrolled", Cond: func() bool { return len(dut.AdminPIN) > 0 }}
	notCMFR := fsm.Guard{Name: "manufacturing incomplete", Cond: func() bool { return !dut.CompletedCMFR }}
	bruteForced := fsm.Guard{Name: "brute force counter exhausted", Cond: func() bool { return dut.BruteForceCurrent == 0 }}
	forcedEnroll := fsm.Guard{Name: "user forced enrollment set", Cond: func() bool { return dut.UserForcedEnrollment }}
	noProvLock := fsm.Guard{Name: "provision lock clear", Cond: func() bool { return !dut.ProvisionLock }}
	noProvLockBattery := fsm.Guard{Name: "provision lock clear, battery unit", Cond: func() bool {
		return !dut.ProvisionLock && dut.Battery
	}}
	anyUserPin := fsm.Guard{Name: "a user pin is enrolled", Cond: func() bool {
		for _, pin := range dut.UserPIN {
			if pin != nil {
				return true
			}
		}
		return false
	}}
	freeUserSlot := fsm.Guard{Name: "empty user slot available", Cond: func() bool {
		_, ok := dut.FreeUserSlot()
		return ok
	}}

	// The firmware trips brute force at half the counter plus one, and again
	// at the final attempt.
	half := func() float64 { return float64(dut.BruteForceCounter) / 2 }
	cur := func() float64 { return float64(dut.BruteForceCurrent) }
	bfNotTriggered := fsm.Guard{Name: "brute force not triggered", Cond: func() bool {
		return dut.BruteForceCurrent > 1 && cur() != half()+1
	}}
	bfTriggered := fsm.Guard{Name: "brute force triggered", Cond: func() bool {
		return cur() == half()+1 || dut.BruteForceCurrent == 1
	}}
	bfTriggeredForced := fsm.Guard{Name: "brute force triggered", Cond: func() bool {
		return cur() == half() || dut.BruteForceCurrent == 1
	}}
	bfHalfway := fsm.Guard{Name: "brute force halfway point", Cond: func() bool {
		return cur() == half()
	}}

	return []fsm.Transition{
		{Trigger: "power_on", Sources: []fsm.State{StateOff}, Dest: StatePOST, Gating: d.doPowerOn,
			Guards: []fsm.Guard{{Name: "usb powered", Cond: func() bool { return !dut.Battery }}}},
		{Trigger: "power_off", Sources: []fsm.State{fsm.Wildcard}, Dest: StateOff, Action: d.doPowerOff},

		// Battery units skip the self test and boot straight into a mode.
		{Trigger: "power_on", Sources: []fsm.State{StateOff}, Dest: StateFactory, Gating: d.doPowerOn, Guards: []fsm.Guard{notCMFR}},
		{Trigger: "power_on", Sources: []fsm.State{StateOff}, Dest: StateBruteForce, Gating: d.doPowerOn, Guards: []fsm.Guard{bruteForced}},
		{Trigger: "power_on", Sources: []fsm.State{StateOff}, Dest: StateForcedEnroll, Gating: d.doPowerOn, Guards: []fsm.Guard{forcedEnroll}},
		{Trigger: "power_on", Sources: []fsm.State{StateOff}, Dest: StateOOB, Gating: d.doPowerOn, Guards: []fsm.Guard{noAdminPin}},
		{Trigger: "power_on", Sources: []fsm.State{StateOff}, Dest: StateStandby, Gating: d.doPowerOn, Guards: []fsm.Guard{adminPin}},
		{Trigger: "user_reset", Sources: []fsm.State{StateOff}, Dest: StateOOB, Gating: d.doUserReset, Guards: []fsm.Guard{noProvLockBattery}},
		{Trigger: "manufacturer_reset", Sources: []fsm.State{StateOff}, Dest: StateOOB, Gating: d.doManufacturerReset, Guards: []fsm.Guard{noProvLockBattery}},

		// Routing after a passed self test.
		{Trigger: "post_pass", Sources: []fsm.State{StatePOST}, Dest: StateFactory, Guards: []fsm.Guard{notCMFR}},
		{Trigger: "post_pass", Sources: []fsm.State{StatePOST}, Dest: StateBruteForce, Guards: []fsm.Guard{bruteForced}},
		{Trigger: "post_pass", Sources: []fsm.State{StatePOST}, Dest: StateForcedEnroll, Guards: []fsm.Guard{forcedEnroll}},
		{Trigger: "post_pass", Sources: []fsm.State{StatePOST}, Dest: StateOOB, Guards: []fsm.Guard{noAdminPin}},
		{Trigger: "post_pass", Sources: []fsm.State{StatePOST}, Dest: StateStandby, Guards: []fsm.Guard{adminPin}},

		{Trigger: "manufacturer_reset",
			Sources: []fsm.State{StateFactory, StateOOB, StateStandby, StateBruteForce, StateForcedEnroll},
			Dest:    StateUnlockedReset, Gating: d.doManufacturerReset},
		{Trigger: "lock_reset", Sources: []fsm.State{StateUnlockedReset}, Dest: StateOOB, Action: d.pressLockButton},

		// Out-of-box mode.
		{Trigger: "enter_diagnostic_mode", Sources: []fsm.State{StateOOB}, Dest: StateDiagnostic},
		{Trigger: "exit_diagnostic_mode", Sources: []fsm.State{StateDiagnostic}, Dest: StateOOB, Guards: []fsm.Guard{noAdminPin}},
		{Trigger: "enroll_admin", Sources: []fsm.State{StateOOB}, Dest: StatePinEnroll, Action: d.adminEnrollment},
		{Trigger: "user_reset", Sources: []fsm.State{StateOOB}, Dest: StateOOB, Gating: d.doUserReset, Guards: []fsm.Guard{noProvLock}},

		// Standby mode.
		{Trigger: "admin_mode_login", Sources: []fsm.State{StateStandby}, Dest: StateAdmin, Gating: d.enterAdminModeLogin},
		{Trigger: "lock_admin", Sources: []fsm.State{StateAdmin}, Dest: StateStandby, Action: d.pressLockButton},
		{Trigger: "unlock_admin", Sources: []fsm.State{StateStandby}, Dest: StateUnlockedAdmin, Gating: d.enterAdminPin},
		{Trigger: "lock_admin", Sources: []fsm.State{StateUnlockedAdmin}, Dest: StateStandby, Action: d.pressLockButton},
		{Trigger: "enter_diagnostic_mode", Sources: []fsm.State{StateStandby}, Dest: StateDiagnostic},
		{Trigger: "self_destruct", Sources: []fsm.State{StateStandby}, Dest: StateUnlockedAdmin, Gating: d.enterSelfDestructPin},
		{Trigger: "exit_diagnostic_mode", Sources: []fsm.State{StateDiagnostic}, Dest: StateStandby, Guards: []fsm.Guard{adminPin}},
		{Trigger: "user_reset", Sources: []fsm.State{StateStandby}, Dest: StateOOB, Gating: d.doUserReset, Guards: []fsm.Guard{noProvLock}},
		{Trigger: "unlock_user", Sources: []fsm.State{StateStandby}, Dest: StateUnlockedUser, Gating: d.enterUserPin},
		{Trigger: "lock_user", Sources: []fsm.State{StateUnlockedUser}, Dest: StateStandby, Action: d.pressLockButton},
		{Trigger: "fail_unlock", Sources: []fsm.State{StateStandby}, Dest: StateStandby, Gating: d.enterInvalidPin, Guards: []fsm.Guard{bfNotTriggered}},
		{Trigger: "fail_unlock", Sources: []fsm.State{StateStandby}, Dest: StateBruteForce, Gating: d.enterInvalidPin, Guards: []fsm.Guard{bfTriggered}},

		// User-forced enrollment mode.
		{Trigger: "admin_mode_login", Sources: []fsm.State{StateForcedEnroll}, Dest: StateAdmin, Gating: d.enterAdminModeLogin},
		{Trigger: "lock_admin", Sources: []fsm.State{StateAdmin}, Dest: StateForcedEnroll, Action: d.pressLockButton},
		{Trigger: "unlock_admin", Sources: []fsm.State{StateForcedEnroll}, Dest: StateUnlockedAdmin, Gating: d.enterAdminPin},
		{Trigger: "lock_admin", Sources: []fsm.State{StateUnlockedAdmin}, Dest: StateForcedEnroll, Action: d.pressLockButton},
		{Trigger: "enroll_user", Sources: []fsm.State{StateForcedEnroll}, Dest: StateStandby, Action: d.userEnrollment},
		{Trigger: "enter_diagnostic_mode", Sources: []fsm.State{StateForcedEnroll}, Dest: StateDiagnostic},
		{Trigger: "exit_diagnostic_mode", Sources: []fsm.State{StateDiagnostic}, Dest: StateForcedEnroll, Guards: []fsm.Guard{forcedEnroll}},
		{Trigger: "self_destruct", Sources: []fsm.State{StateForcedEnroll}, Dest: StateUnlockedAdmin, Gating: d.enterSelfDestructPin},
		{Trigger: "user_reset", Sources: []fsm.State{StateForcedEnroll}, Dest: StateOOB, Gating: d.doUserReset, Guards: []fsm.Guard{noProvLock}},
		{Trigger: "unlock_user", Sources: []fsm.State{StateForcedEnroll}, Dest: StateUnlockedUser, Gating: d.enterUserPin, Guards: []fsm.Guard{anyUserPin}},
		{Trigger: "lock_user", Sources: []fsm.State{StateUnlockedUser}, Dest: StateForcedEnroll, Action: d.pressLockButton},
		{Trigger: "fail_unlock", Sources: []fsm.State{StateForcedEnroll}, Dest: StateStandby, Gating: d.enterInvalidPin, Guards: []fsm.Guard{bfNotTriggered}},
		{Trigger: "fail_unlock", Sources: []fsm.State{StateForcedEnroll}, Dest: StateBruteForce, Gating: d.enterInvalidPin, Guards: []fsm.Guard{bfTriggeredForced}},

		// Brute force mode.
		{Trigger: "last_try_login", Sources: []fsm.State{StateBruteForce}, Dest: StateStandby, Gating: d.enterLastTryPin, Guards: []fsm.Guard{bfHalfway}},
		{Trigger: "user_reset", Sources: []fsm.State{StateBruteForce}, Dest: StateOOB, Gating: d.doUserReset, Guards: []fsm.Guard{noProvLock}},
		{Trigger: "admin_recovery_failed", Sources: []fsm.State{StateBruteForce}, Dest: StateBricked},

		{Trigger: "user_reset", Sources: []fsm.State{StateAdmin}, Dest: StateOOB, Gating: d.doUserReset},

		// Counter enrollments.
		{Trigger: "enroll_brute_force_counter", Sources: []fsm.State{StateAdmin}, Dest: StateCounterEnroll, Action: d.bruteForceCounterEnrollment},
		{Trigger: "enroll_unattended_auto_lock_counter", Sources: []fsm.State{StateAdmin}, Dest: StateCounterEnroll, Action: d.autoLockCounterEnrollment},
		{Trigger: "enroll_min_pin_counter", Sources: []fsm.State{StateAdmin}, Dest: StateCounterEnroll, Action: d.minPinCounterEnrollment},
		{Trigger: "enroll_counter", Sources: []fsm.State{StateCounterEnroll}, Dest: StateAdmin, Action: d.counterEnrollment},
		{Trigger: "timeout_enroll_counter", Sources: []fsm.State{StateCounterEnroll}, Dest: StateAdmin, Action: d.timeoutCounterEnrollment},
		{Trigger: "exit_enroll_counter", Sources: []fsm.State{StateCounterEnroll}, Dest: StateAdmin, Action: d.pressLockButton},

		// PIN enrollments.
		{Trigger: "enroll_admin", Sources: []fsm.State{StateAdmin}, Dest: StatePinEnroll, Action: d.adminEnrollment},
		{Trigger: "enroll_user", Sources: []fsm.State{StateAdmin}, Dest: StatePinEnroll, Action: d.userEnrollment, Guards: []fsm.Guard{freeUserSlot}},
		{Trigger: "enroll_recovery", Sources: []fsm.State{StateAdmin}, Dest: StatePinEnroll, Action: d.recoveryPinEnrollment},
		{Trigger: "enroll_self_destruct", Sources: []fsm.State{StateAdmin}, Dest: StatePinEnroll, Action: d.selfDestructPinEnrollment},
		{Trigger: "enroll_pin", Sources: []fsm.State{StatePinEnroll}, Dest: StateAdmin, Action: d.pinEnrollment},
		{Trigger: "timeout_enroll_pin", Sources: []fsm.State{StatePinEnroll}, Dest: StateAdmin, Action: d.timeoutPinEnrollment},
		{Trigger: "exit_enroll_pin", Sources: []fsm.State{StatePinEnroll}, Dest: StateAdmin, Action: d.pressLockButton},

		// Admin mode feature toggles, self loops.
		{Trigger: "toggle_basic_disk", Sources: []fsm.State{StateAdmin}, Dest: StateAdmin, Action: d.basicDiskToggle},
		{Trigger: "toggle_removable_media", Sources: []fsm.State{StateAdmin}, Dest: StateAdmin, Action: d.removableMediaToggle},
		{Trigger: "enable_led_flicker", Sources: []fsm.State{StateAdmin}, Dest: StateAdmin, Action: d.ledFlickerEnable},
		{Trigger: "disable_led_flicker", Sources: []fsm.State{StateAdmin}, Dest: StateAdmin, Action: d.ledFlickerDisable},
		{Trigger: "delete_pins", Sources: []fsm.State{StateAdmin}, Dest: StateAdmin, Action: d.deletePinsToggle},
		{Trigger: "toggle_lock_override", Sources: []fsm.State{StateAdmin}, Dest: StateAdmin, Action: d.lockOverrideToggle},
		{Trigger: "enable_provision_lock", Sources: []fsm.State{StateAdmin}, Dest: StateAdmin, Action: d.provisionLockToggle},
		{Trigger: "toggle_read_only", Sources: []fsm.State{StateAdmin}, Dest: StateAdmin, Action: d.readOnlyToggle},
		{Trigger: "toggle_read_write", Sources: []fsm.State{StateAdmin}, Dest: StateAdmin, Action: d.readWriteToggle},
		{Trigger: "enable_self_destruct", Sources: []fsm.State{StateAdmin}, Dest: StateAdmin, Action: d.selfDestructToggle},
		{Trigger: "toggle_user_forced_enrollment", Sources: []fsm.State{StateAdmin}, Dest: StateAdmin, Action: d.userForcedEnrollmentToggle},
	}
}
