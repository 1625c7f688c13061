package dut

import (
	"fmt"
	"math/rand"
	"strings"
)

// PIN is a generated keypad entry plus the validity verdict against the
// device's current rules.
type PIN struct {
	Digits string
	Valid  bool
	Reason string
}

// Keys expands the PIN into actuator channel names, terminated by unlock.
func (p PIN) Keys() []string {
	out := make([]string, 0, len(p.Digits)+1)
	for _, d := range p.Digits {
		out = append(out, "key"+string(d))
	}
	return append(out, "unlock")
}

// Sequence returns the key presses without the trailing unlock.
func (p PIN) Sequence() []string {
	out := make([]string, 0, len(p.Digits))
	for _, d := range p.Digits {
		out = append(out, "key"+string(d))
	}
	return out
}

const (
	ascendingDigits  = "0123456789"
	descendingDigits = "9876543210"
)

// Generator produces valid and deliberately invalid PINs. It keeps a
// reference to the device model so validity tracks the live self-destruct
// PIN.
type Generator struct {
	dev *Device
	rnd *rand.Rand
}

func NewGenerator(dev *Device, seed int64) *Generator {
	return &Generator{dev: dev, rnd: rand.New(rand.NewSource(seed))}
}

// invalidReason classifies a candidate against the firmware's PIN rules.
func (g *Generator) invalidReason(digits string) (bool, string) {
	if sd := strings.Join(digitsOf(g.dev.SelfDestructPIN), ""); sd != "" && digits == sd {
		return true, "matches self-destruct PIN"
	}
	if len(digits) > 0 && strings.Count(digits, digits[:1]) == len(digits) {
		return true, "is repeating"
	}
	if strings.Contains(ascendingDigits, digits) || strings.Contains(descendingDigits, digits) {
		return true, "is sequential"
	}
	return false, "is valid"
}

func digitsOf(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, "key"))
	}
	return out
}

func (g *Generator) describe(digits string) PIN {
	invalid, reason := g.invalidReason(digits)
	return PIN{Digits: digits, Valid: !invalid, Reason: reason}
}

// Valid generates a random PIN guaranteed valid against the current device
// state.
func (g *Generator) Valid(length int) (PIN, error) {
	if length < 2 || length > 16 {
		return PIN{}, fmt.Errorf("pin length must be between 2 and 16, got %d", length)
	}
	for attempt := 0; attempt < 500; attempt++ {
		var b strings.Builder
		for i := 0; i < length; i++ {
			b.WriteByte(byte('0' + g.rnd.Intn(10)))
		}
		if invalid, _ := g.invalidReason(b.String()); !invalid {
			return g.describe(b.String()), nil
		}
	}
	return PIN{}, fmt.Errorf("could not generate a valid pin of length %d", length)
}

// Repeating generates a PIN of one repeated digit, which the firmware must
// reject.
func (g *Generator) Repeating(length int) PIN {
	d := byte('0' + g.rnd.Intn(10))
	return g.describe(strings.Repeat(string(d), length))
}

// Sequential generates an ascending or descending digit run, which the
// firmware must reject.
func (g *Generator) Sequential(length int, reverse bool) (PIN, error) {
	if length < 2 || length > 10 {
		return PIN{}, fmt.Errorf("sequential pin length must be between 2 and 10, got %d", length)
	}
	var digits string
	if reverse {
		start := length - 1 + g.rnd.Intn(10-length+1)
		var b strings.Builder
		for i := 0; i < length; i++ {
			b.WriteByte(byte('0' + start - i))
		}
		digits = b.String()
	} else {
		start := g.rnd.Intn(10 - length + 1)
		var b strings.Builder
		for i := 0; i < length; i++ {
			b.WriteByte(byte('0' + start + i))
		}
		digits = b.String()
	}
	return g.describe(digits), nil
}

// SelfDestructPIN returns the enrolled self-destruct PIN as an entry, or
// false when none is set.
func (g *Generator) SelfDestructPIN() (PIN, bool) {
	if len(g.dev.SelfDestructPIN) == 0 {
		return PIN{}, false
	}
	digits := strings.Join(digitsOf(g.dev.SelfDestructPIN), "")
	return g.describe(digits), true
}
