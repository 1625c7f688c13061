package device

import (
	"fmt"
	"time"

	"keypad-hil/pkg/fsm"
	"keypad-hil/pkg/led"
)

// On-enter hooks verify the LED signature of each mode after the machine
// settles there. They report failures but never roll the state back; the
// physical unit has already moved on.
func (d *Driver) registerEnterHooks() {
	d.m.SetOnEnter(StatePOST, d.enterPOST)
	d.m.SetOnEnter(StateOff, d.enterOff)
	d.m.SetOnEnter(StateFactory, d.enterFactory)
	d.m.SetOnEnter(StateOOB, d.enterOOB)
	d.m.SetOnEnter(StateForcedEnroll, d.enterForcedEnroll)
	d.m.SetOnEnter(StateStandby, d.enterStandby)
	d.m.SetOnEnter(StateAdmin, d.enterAdmin)
	d.m.SetOnEnter(StateUnlockedAdmin, d.enterUnlocked)
	d.m.SetOnEnter(StateUnlockedUser, d.enterUnlocked)
	d.m.SetOnEnter(StateUnlockedReset, d.enterUnlockedReset)
	d.m.SetOnEnter(StateBruteForce, d.enterBruteForce)
	d.m.SetOnEnter(StateCounterEnroll, d.enterCounterEnroll)
	d.m.SetOnEnter(StatePinEnroll, d.enterPinEnroll)
}

func (d *Driver) enterPOST(ev *fsm.Event) {
	logger.Info("confirming power-on self test result")
	if !d.check("power-on self test accept", d.ver.AwaitThenConfirmPattern(led.Accept, 5, d.opts(ev))) {
		return
	}
	if _, err := d.m.Fire("post_pass", nil); err != nil {
		logger.Errorf("post_pass routing failed: %v", err)
	}
}

func (d *Driver) enterOff(ev *fsm.Event) {
	d.act.Off("usb3")
	d.act.Off("connect")
	// Battery units can take a while to drain their boost converter.
	timeout := 3.0
	if d.dut.Battery {
		timeout = 20.0
	}
	if d.ver.ConfirmSolid(led.AllOff, 1, timeout, d.opts(ev)).OK {
		logger.Info("device confirmed off")
	} else {
		logger.Error("failed to confirm device LEDs are off")
	}
}

func (d *Driver) enterFactory(ev *fsm.Event) {
	logger.Info("confirming factory mode, all LEDs on")
	o := d.opts(ev)
	if !d.ver.ConfirmSolid(led.AllOn, 3, 10, o).OK {
		logger.Error("failed to confirm factory mode LEDs")
		return
	}
	stale := o
	stale.KeepStale = true
	for _, key := range keypadWalkOrder(false) {
		if err := d.act.On(key); err != nil {
			d.rep.LogFailure(fmt.Sprintf("factory keypad walk: %v", err))
			return
		}
		if !d.ver.AwaitState(led.AcceptState, 1, stale).OK {
			d.act.Off(key)
			d.rep.LogFailure(fmt.Sprintf("factory keypad walk: no accept for %s", key))
		}
	}
}

func (d *Driver) enterOOB(ev *fsm.Event) {
	logger.Info("confirming OOB mode, solid green/blue")
	target := led.GreenBlueState
	if d.dut.Battery {
		target = led.GreenBlueBatteryState
	}
	if d.ver.ConfirmSolid(target, 3, 10, d.opts(ev)).OK {
		logger.Info("stable OOB mode confirmed")
	} else {
		d.dut.CompletedCMFR = false
		d.rep.LogFailure("failed to confirm OOB mode LED state")
		if d.dut.NeedsBlockOrientation {
			if err := d.OrientForBlock(1, 3*time.Second); err != nil {
				d.rep.LogFailure(err.Error())
			}
		}
	}

	if d.enum == nil {
		d.rep.LogWarning("no enumerator configured, skipping OOB device enumeration check")
		return
	}
	info, ok := d.enum.ConfirmDeviceEnum(d.dut.ScannedSerial)
	if !ok {
		d.rep.LogFailure(fmt.Sprintf("device %s did not enumerate in OOB_MODE", d.dut.ScannedSerial))
		return
	}
	d.rep.CountEnumeration("oob")
	d.dut.SerialNumber = info.Serial
	logger.Infof("confirmed enumeration for serial %s", d.dut.SerialNumber)
}

func (d *Driver) enterForcedEnroll(ev *fsm.Event) {
	logger.Info("confirming user-forced enrollment mode, solid green/blue")
	if d.ver.ConfirmSolid(led.GreenBlueState, 3, 10, d.opts(ev)).OK {
		logger.Info("stable user-forced enrollment mode confirmed")
	} else {
		logger.Error("failed to confirm user-forced enrollment LEDs")
	}
}

func (d *Driver) enterStandby(ev *fsm.Event) {
	logger.Info("confirming standby mode, solid red")
	if d.ver.ConfirmSolid(led.StandbyState, 2.5, 15, d.opts(ev)).OK {
		logger.Info("stable standby mode confirmed")
	} else {
		logger.Error("failed to confirm standby mode LEDs")
	}
}

func (d *Driver) enterAdmin(ev *fsm.Event) {
	logger.Info("confirming admin mode, solid blue")
	if d.ver.ConfirmSolid(led.AdminModeState, 3, 5, d.opts(ev)).OK {
		logger.Info("stable admin mode confirmed")
	} else {
		logger.Error("failed to confirm admin mode LEDs")
	}
}

// confirmDriveEnum checks the host sees the unlocked storage volume and
// records the reported identity on the model.
func (d *Driver) confirmDriveEnum(kind string, in fsm.State) {
	if d.enum == nil {
		d.rep.LogWarning("no enumerator configured, skipping drive enumeration check")
		return
	}
	info, ok := d.enum.ConfirmDriveEnum(d.dut.ScannedSerial)
	if !ok {
		d.rep.LogFailure(fmt.Sprintf("device %s drive did not enumerate in %s", d.dut.ScannedSerial, in))
		return
	}
	d.rep.CountEnumeration(kind)
	d.dut.SerialNumber = info.Serial
	if info.BlockDevice != "" {
		d.dut.DiskPath = info.BlockDevice
	}
	logger.Infof("confirmed drive enumeration for serial %s at %s", d.dut.SerialNumber, d.dut.DiskPath)
}

func (d *Driver) enterUnlocked(ev *fsm.Event) {
	d.confirmDriveEnum("pin", ev.Dest)
}

func (d *Driver) enterUnlockedReset(ev *fsm.Event) {
	if !d.ver.AwaitThenConfirmPattern(led.Enum, 15, d.opts(ev)).OK {
		d.rep.LogFailure("failed manufacturer reset unlock enumeration pattern")
	}
	d.confirmDriveEnum("mfr", ev.Dest)
}

func (d *Driver) enterBruteForce(ev *fsm.Event) {
	logger.Info("entered brute force mode, confirming lockout blink")
	if !d.ver.ConfirmPattern(led.BruteForced, d.opts(ev)).OK {
		logger.Error("failed to confirm brute force LED pattern")
	}
}

func (d *Driver) enterCounterEnroll(ev *fsm.Event) {
	if d.ver.ConfirmPattern(led.RedCounter, d.opts(ev)).OK {
		logger.Info("awaiting counter enrollment")
	} else {
		logger.Error("failed to confirm counter enrollment LED pattern")
	}
}

func (d *Driver) enterPinEnroll(ev *fsm.Event) {
	prompt := led.GreenBlue
	desc := "pin enrollment prompt"
	if ev.Trigger == "enroll_self_destruct" {
		prompt = led.RedBlue
		desc = "self-destruct enrollment prompt"
	}
	if d.check(desc, d.ver.AwaitThenConfirmPattern(prompt, 5, d.opts(ev))) {
		logger.Info("awaiting pin enrollment")
	}
}
