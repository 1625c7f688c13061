package dut

import (
	"strings"
	"testing"
)

func testDevice() *Device {
	return New("bench-unit", DefaultProfile(), false, "SN123456")
}

func TestNewDefaults(t *testing.T) {
	d := testDevice()

	if !d.CompletedCMFR || !d.BasicDisk {
		t.Fatal("fresh model should assume completed manufacturing and basic disk")
	}
	if d.BruteForceCounter != 20 || d.BruteForceCurrent != 20 {
		t.Fatalf("brute force counters should default to 20, got %d/%d", d.BruteForceCounter, d.BruteForceCurrent)
	}
	if d.MinPINLength != 7 || d.MaxPINLength != 16 {
		t.Fatalf("unexpected pin length bounds: %d..%d", d.MinPINLength, d.MaxPINLength)
	}
	if d.MaxUsers() != 4 {
		t.Fatalf("non-fips device should have 4 user slots, got %d", d.MaxUsers())
	}
	if len(d.UserPIN) != 4 || len(d.RecoveryPIN) != 4 {
		t.Fatal("pin slot maps not initialized")
	}
}

func TestFIPSLimitsUserSlots(t *testing.T) {
	p := DefaultProfile()
	p.FIPS = 3
	d := New("fips-unit", p, false, "SN1")
	if d.MaxUsers() != 1 {
		t.Fatalf("fips 3 device should have a single user slot, got %d", d.MaxUsers())
	}
	if len(d.UserPIN) != 1 {
		t.Fatalf("user slot map should match MaxUsers, got %d", len(d.UserPIN))
	}
}

func TestResetKeepsIdentity(t *testing.T) {
	d := testDevice()
	d.AdminPIN = []string{"key1", "key2", "key3", "key4", "key5", "key6", "key7"}
	d.ReadOnlyEnabled = true
	d.BruteForceCurrent = 3
	d.MinPINLength = 10

	d.Reset()

	if len(d.AdminPIN) != 0 || d.ReadOnlyEnabled || d.BruteForceCurrent != 20 {
		t.Fatal("reset should return credentials, flags and counters to defaults")
	}
	if d.MinPINLength != d.DefaultMinPINLength {
		t.Fatal("reset should restore the default minimum pin length")
	}
	if d.Name != "bench-unit" || d.ScannedSerial != "SN123456" || d.Profile.MCUFW != "2.3.0" {
		t.Fatal("reset should keep name, profile and scanned serial")
	}
}

func TestSelfDestructPromotesPIN(t *testing.T) {
	d := testDevice()
	d.AdminPIN = []string{"key1", "key1", "key2", "key2", "key3", "key3", "key4"}
	d.SelfDestructPIN = []string{"key9", "key8", "key7", "key6", "key5", "key4", "key3"}
	d.SelfDestructEnabled = true
	d.UserPIN[1] = []string{"key5", "key5", "key6"}
	d.BruteForceCurrent = 2

	d.SelfDestruct()

	if strings.Join(d.AdminPIN, "") != "key9key8key7key6key5key4key3" {
		t.Fatal("self destruct should promote the self-destruct pin to admin")
	}
	if d.SelfDestructPIN != nil || d.SelfDestructEnabled {
		t.Fatal("self-destruct pin should be consumed")
	}
	if !d.SelfDestructUsed {
		t.Fatal("self destruct should be marked used")
	}
	if d.UserPIN[1] != nil {
		t.Fatal("user pins should be wiped")
	}
	if d.BruteForceCurrent != 20 {
		t.Fatal("brute force counter should reset")
	}
}

func TestDeletePinsKeepsAdmin(t *testing.T) {
	d := testDevice()
	d.AdminPIN = []string{"key1", "key2", "key3", "key4", "key5", "key6", "key7"}
	d.UserPIN[2] = []string{"key4", "key4", "key5"}
	d.RecoveryPIN[1] = []string{"key6", "key6", "key7"}
	d.SelfDestructPIN = []string{"key8", "key8", "key9"}
	d.UserForcedEnrollment = true

	d.DeletePins()

	if len(d.AdminPIN) == 0 {
		t.Fatal("admin pin must survive delete pins")
	}
	if d.UserPIN[2] != nil || d.RecoveryPIN[1] != nil || d.SelfDestructPIN != nil {
		t.Fatal("user, recovery and self-destruct pins should be wiped")
	}
	if d.UserForcedEnrollment {
		t.Fatal("forced enrollment flag should clear")
	}
}

func TestFreeSlots(t *testing.T) {
	d := testDevice()
	d.UserPIN[1] = []string{"key1", "key2", "key3"}
	if slot, ok := d.FreeUserSlot(); !ok || slot != 2 {
		t.Fatalf("expected slot 2 free, got %d ok=%v", slot, ok)
	}

	for i := 1; i <= 4; i++ {
		d.RecoveryPIN[i] = []string{"key1"}
	}
	if _, ok := d.FreeRecoverySlot(); ok {
		t.Fatal("expected no free recovery slot")
	}
}

func TestGeneratorValid(t *testing.T) {
	d := testDevice()
	g := NewGenerator(d, 1)

	for i := 0; i < 50; i++ {
		pin, err := g.Valid(7)
		if err != nil {
			t.Fatal(err)
		}
		if !pin.Valid {
			t.Fatalf("generated pin %q marked invalid: %s", pin.Digits, pin.Reason)
		}
		if len(pin.Digits) != 7 {
			t.Fatalf("unexpected length for %q", pin.Digits)
		}
	}
}

func TestGeneratorAvoidsSelfDestructPIN(t *testing.T) {
	d := testDevice()
	d.SelfDestructPIN = []string{"key1", "key2", "key5", "key8", "key3", "key0", "key9"}
	g := NewGenerator(d, 7)

	for i := 0; i < 200; i++ {
		pin, err := g.Valid(7)
		if err != nil {
			t.Fatal(err)
		}
		if pin.Digits == "1258309" {
			t.Fatal("generator must never produce the self-destruct pin")
		}
	}
}

func TestGeneratorInvalidKinds(t *testing.T) {
	g := NewGenerator(testDevice(), 3)

	rep := g.Repeating(7)
	if rep.Valid || rep.Reason != "is repeating" {
		t.Fatalf("repeating pin misclassified: %+v", rep)
	}

	asc, err := g.Sequential(5, false)
	if err != nil {
		t.Fatal(err)
	}
	if asc.Valid || asc.Reason != "is sequential" {
		t.Fatalf("ascending pin misclassified: %+v", asc)
	}
	for i := 1; i < len(asc.Digits); i++ {
		if asc.Digits[i] != asc.Digits[i-1]+1 {
			t.Fatalf("digits not ascending: %q", asc.Digits)
		}
	}

	desc, err := g.Sequential(4, true)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(desc.Digits); i++ {
		if desc.Digits[i] != desc.Digits[i-1]-1 {
			t.Fatalf("digits not descending: %q", desc.Digits)
		}
	}
}

func TestPINKeys(t *testing.T) {
	p := PIN{Digits: "304"}
	want := []string{"key3", "key0", "key4", "unlock"}
	got := p.Keys()
	if len(got) != len(want) {
		t.Fatalf("unexpected keys: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected keys: %v", got)
		}
	}
}
