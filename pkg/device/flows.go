package device

import (
	"fmt"
	"time"
)

// High-level flows chaining several triggers.

// EnrollAdminPIN performs the full admin enrollment: the entry chord followed
// by the two-pass PIN entry. Valid from OOB_MODE and ADMIN_MODE.
func (d *Driver) EnrollAdminPIN(newPin []string) error {
	st := d.State()
	if st != StateOOB && st != StateAdmin {
		return fmt.Errorf("cannot enroll admin pin from %s, need OOB_MODE or ADMIN_MODE", st)
	}
	if _, err := d.EnrollAdmin(); err != nil {
		return err
	}
	_, err := d.EnrollPin(newPin)
	return err
}

// EnrollUserPIN enrolls a user PIN into the next free slot from ADMIN_MODE.
func (d *Driver) EnrollUserPIN(newPin []string) error {
	if st := d.State(); st != StateAdmin {
		return fmt.Errorf("cannot enroll user pin from %s, need ADMIN_MODE", st)
	}
	if _, ok := d.dut.FreeUserSlot(); !ok {
		return fmt.Errorf("no free user slot to enroll a pin")
	}
	if _, err := d.EnrollUser(); err != nil {
		return err
	}
	_, err := d.EnrollPin(newPin)
	return err
}

// EnrollRecoveryPIN enrolls a recovery PIN into the next free slot from
// ADMIN_MODE.
func (d *Driver) EnrollRecoveryPIN(newPin []string) error {
	if st := d.State(); st != StateAdmin {
		return fmt.Errorf("cannot enroll recovery pin from %s, need ADMIN_MODE", st)
	}
	if _, ok := d.dut.FreeRecoverySlot(); !ok {
		return fmt.Errorf("no free recovery slot to enroll a pin")
	}
	if _, err := d.EnrollRecovery(); err != nil {
		return err
	}
	_, err := d.EnrollPin(newPin)
	return err
}

// EnrollSelfDestructPIN enrolls the self-destruct PIN from ADMIN_MODE. The
// underlying prelude handles the feature-disabled reject on its own.
func (d *Driver) EnrollSelfDestructPIN(newPin []string) error {
	if st := d.State(); st != StateAdmin {
		return fmt.Errorf("cannot enroll self-destruct pin from %s, need ADMIN_MODE", st)
	}
	if _, err := d.EnrollSelfDestruct(); err != nil {
		return err
	}
	_, err := d.EnrollPin(newPin)
	return err
}

// OrientForBlock forces the unit back into OOB_MODE before a test block
// begins: a manufacturer reset plus lock when the provision lock is set,
// otherwise a user reset. Retries with a delay between attempts.
func (d *Driver) OrientForBlock(retryAttempts int, retryDelay time.Duration) error {
	d.orienting = true
	defer func() { d.orienting = false }()
	d.dut.NeedsBlockOrientation = false

	attempts := retryAttempts + 1
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		logger.Infof("mode orientation attempt %d/%d", attempt, attempts)
		if d.dut.ProvisionLock {
			if ok, err := d.ManufacturerReset(); err != nil {
				return err
			} else if ok {
				if _, err := d.LockReset(); err != nil {
					return err
				}
				return nil
			}
		} else {
			if ok, err := d.UserReset(); err != nil {
				return err
			} else if ok {
				return nil
			}
		}
		if attempt < attempts {
			d.sleep(retryDelay)
		}
	}
	d.dut.NeedsBlockOrientation = true
	return fmt.Errorf("mode orientation failed after %d attempts", attempts)
}
