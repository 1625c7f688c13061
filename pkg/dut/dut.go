// Package dut models the state of the device under test: enrolled PINs,
// feature flags, security counters and hardware identity. The device driver
// reads and writes this model to mirror what the physical unit should hold.
package dut

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// Profile captures the per-model hardware properties loaded from the device
// properties file.
type Profile struct {
	BridgeFW         string `json:"bridge_fw"`
	ProductID        string `json:"id_product"`
	MCUFW            string `json:"mcu_fw"`
	FIPS             int    `json:"fips"`
	SecureKey        bool   `json:"secure_key"`
	MinimumPINLength int    `json:"minimum_pin_length"`
	UserCount        int    `json:"user_count"`
	ModelIDDigit1    int    `json:"model_id_digit_1"`
	ModelIDDigit2    int    `json:"model_id_digit_2"`
	HardwareMajor    int    `json:"hardware_major"`
	HardwareMinor    int    `json:"hardware_minor"`
	SCBPartNumber    string `json:"scb_part_number"`
}

// LoadProfiles reads a device properties file mapping model names to
// profiles.
func LoadProfiles(path string) (map[string]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read device properties: %w", err)
	}
	var out map[string]Profile
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse device properties: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("device properties %s holds no profiles", path)
	}
	return out, nil
}

// DefaultProfile is a reasonable non-FIPS keypad drive used when no
// properties file is supplied.
func DefaultProfile() Profile {
	return Profile{
		BridgeFW:         "1.04",
		ProductID:        "0x1a02",
		MCUFW:            "2.3.0",
		FIPS:             0,
		SecureKey:        true,
		MinimumPINLength: 7,
		UserCount:        4,
		ModelIDDigit1:    3,
		ModelIDDigit2:    1,
		HardwareMajor:    2,
		HardwareMinor:    0,
	}
}

const defaultBruteForceCounter = 20

// Device is the stateful model of one unit on the bench.
type Device struct {
	Name          string
	Profile       Profile
	Battery       bool
	ScannedSerial string

	USB3         bool
	DiskPath     string
	Mounted      bool
	SerialNumber string

	CompletedCMFR  bool
	BasicDisk      bool
	RemovableMedia bool

	BruteForceCounter int
	BruteForceCurrent int

	LedFlicker            bool
	LockOverride          bool
	ManufacturerResetEnum bool

	MaxPINLength        int
	MinPINLength        int
	DefaultMinPINLength int

	ProvisionLock                bool
	ProvisionLockBricked         bool
	ProvisionLockRecoveryCounter int

	ReadOnlyEnabled       bool
	UnattendedAutoLock    int
	NeedsBlockOrientation bool

	UserForcedEnrollment     bool
	UserForcedEnrollmentUsed bool

	// PendingEnrollment names the PIN kind being enrolled while the device
	// sits in the enrollment state, e.g. "user" or "self_destruct".
	PendingEnrollment string

	AdminPIN    []string
	OldAdminPIN []string

	RecoveryPIN     map[int][]string
	OldRecoveryPIN  map[int][]string
	RecoveryPINUsed map[int]bool

	SelfDestructEnabled bool
	SelfDestructPIN     []string
	OldSelfDestructPIN  []string
	SelfDestructEnum    bool
	SelfDestructUsed    bool

	UserPIN     map[int][]string
	OldUserPIN  map[int][]string
	UserPINEnum map[int]bool
}

// New builds a fresh model. The scanned serial is passed in by the caller
// that performed the barcode scan; the model never scans on its own.
func New(name string, p Profile, battery bool, scannedSerial string) *Device {
	d := &Device{
		Name:          name,
		Profile:       p,
		Battery:       battery,
		ScannedSerial: scannedSerial,

		CompletedCMFR: true,
		BasicDisk:     true,

		BruteForceCounter: defaultBruteForceCounter,
		BruteForceCurrent: defaultBruteForceCounter,

		MaxPINLength:        16,
		MinPINLength:        p.MinimumPINLength,
		DefaultMinPINLength: p.MinimumPINLength,

		ProvisionLockRecoveryCounter: 5,
	}
	d.initSlots()
	return d
}

func (d *Device) initSlots() {
	d.RecoveryPIN, d.RecoveryPINUsed = emptySlots(4)
	d.OldRecoveryPIN, _ = emptySlots(4)

	n := d.MaxUsers()
	d.UserPIN, d.UserPINEnum = emptySlots(n)
	d.OldUserPIN, _ = emptySlots(n)
}

// MaxUsers is capped at one slot for FIPS level 2 and 3 hardware.
func (d *Device) MaxUsers() int {
	if d.Profile.FIPS == 2 || d.Profile.FIPS == 3 {
		return 1
	}
	return 4
}

// SingleCodeBase reports whether the model ships without a separate SCB part.
func (d *Device) SingleCodeBase() bool {
	return d.Profile.SCBPartNumber == ""
}

// Reset returns the model to the factory defaults, keeping only identity:
// name, profile, battery and the scanned serial survive.
func (d *Device) Reset() {
	*d = *New(d.Name, d.Profile, d.Battery, d.ScannedSerial)
}

func emptySlots(n int) (pins map[int][]string, used map[int]bool) {
	pins = make(map[int][]string, n)
	used = make(map[int]bool, n)
	for i := 1; i <= n; i++ {
		pins[i] = nil
		used[i] = false
	}
	return pins, used
}

// SelfDestruct applies the destructive unlock: the self-destruct PIN becomes
// the admin PIN, every other credential is wiped and the counters return to
// default.
func (d *Device) SelfDestruct() {
	d.OldAdminPIN = d.AdminPIN
	d.AdminPIN = d.SelfDestructPIN

	d.OldRecoveryPIN = d.RecoveryPIN
	d.RecoveryPIN, d.RecoveryPINUsed = emptySlots(4)

	d.OldUserPIN, _ = emptySlots(d.MaxUsers())
	d.UserPIN, d.UserPINEnum = emptySlots(d.MaxUsers())

	d.OldSelfDestructPIN = d.SelfDestructPIN
	d.SelfDestructPIN = nil
	d.SelfDestructEnabled = false
	d.SelfDestructUsed = true

	d.BruteForceCounter = defaultBruteForceCounter
	d.BruteForceCurrent = defaultBruteForceCounter
	d.UnattendedAutoLock = 0
}

// DeletePins clears all user and recovery credentials, the self-destruct PIN
// and the forced-enrollment flag. The admin PIN survives.
func (d *Device) DeletePins() {
	d.OldRecoveryPIN = d.RecoveryPIN
	d.RecoveryPIN, d.RecoveryPINUsed = emptySlots(4)

	d.OldSelfDestructPIN = d.SelfDestructPIN
	d.SelfDestructPIN = nil
	d.SelfDestructEnabled = false
	d.SelfDestructEnum = false
	d.SelfDestructUsed = false

	d.OldUserPIN = d.UserPIN
	d.UserPIN, d.UserPINEnum = emptySlots(d.MaxUsers())

	d.UserForcedEnrollment = false
	d.UserForcedEnrollmentUsed = false
}

// FreeUserSlot returns the lowest unoccupied user PIN slot.
func (d *Device) FreeUserSlot() (int, bool) {
	for i := 1; i <= d.MaxUsers(); i++ {
		if d.UserPIN[i] == nil {
			return i, true
		}
	}
	return 0, false
}

// FreeRecoverySlot returns the lowest unoccupied recovery PIN slot.
func (d *Device) FreeRecoverySlot() (int, bool) {
	for i := 1; i <= 4; i++ {
		if d.RecoveryPIN[i] == nil {
			return i, true
		}
	}
	return 0, false
}
