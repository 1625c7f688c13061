// Package hardware drives the relay box wired to the device under test. Each
// keypad key and power rail is one output channel; a press is an on-hold-off
// pulse on that channel.
package hardware

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"keypad-hil/pkg/utils"
)

var logger *zap.SugaredLogger

func init() {
	logger = utils.GetLogger()
}

// Default pulse timing for key presses and sequences.
const (
	DefaultPress = 100 * time.Millisecond
	DefaultPause = 100 * time.Millisecond
)

// Chord is a set of channels driven simultaneously, like the two-key
// combinations used by the admin mode toggles.
type Chord []string

// Actuator is the control surface the device driver works against. The GPIO
// box implements it for the bench, the simulator for tests.
type Actuator interface {
	// On latches the named channels high until Off.
	On(channels ...string) error
	// Off drops the named channels.
	Off(channels ...string) error
	// Press pulses the channels simultaneously for the hold duration.
	Press(hold time.Duration, channels ...string) error
	// Sequence presses each chord in order with a pause in between.
	Sequence(seq []Chord, press, pause time.Duration) error
	Close() error
}

// Config maps channel names onto GPIO line offsets.
type Config struct {
	Chip     string         `json:"chip" toml:"chip"`
	Consumer string         `json:"consumer" toml:"consumer"`
	Outputs  map[string]int `json:"outputs" toml:"outputs"`
	Inputs   map[string]int `json:"inputs" toml:"inputs"`
}

// DefaultConfig is the bench wiring of the relay box: ten keypad digits, the
// lock and unlock keys, plus power and data rails.
func DefaultConfig() Config {
	return Config{
		Chip:     "gpiochip0",
		Consumer: "keypad-hil",
		Outputs: map[string]int{
			"key0":    0,
			"key1":    1,
			"key2":    2,
			"key3":    3,
			"key4":    4,
			"key5":    5,
			"key6":    6,
			"key7":    7,
			"key8":    8,
			"key9":    9,
			"lock":    10,
			"unlock":  11,
			"hold":    12,
			"connect": 13,
			"usb3":    14,
			"barcode": 15,
		},
		Inputs: map[string]int{
			"prod_inserted": 16,
			"power_on":      17,
		},
	}
}

// runSequence implements Sequence in terms of Press, shared by every
// Actuator.
func runSequence(a Actuator, seq []Chord, press, pause time.Duration) error {
	if press < 0 || pause < 0 {
		return fmt.Errorf("sequence timing must be non-negative, got press %v pause %v", press, pause)
	}
	for i, chord := range seq {
		if len(chord) == 0 {
			return fmt.Errorf("sequence item %d is empty", i)
		}
		if err := a.Press(press, chord...); err != nil {
			return err
		}
		if i < len(seq)-1 && pause > 0 {
			time.Sleep(pause)
		}
	}
	return nil
}

// Counted wraps an Actuator and tallies per-channel press counts through the
// callback, one count per channel per pulse.
type Counted struct {
	inner Actuator
	count func(name string)
}

func NewCounted(inner Actuator, count func(name string)) *Counted {
	return &Counted{inner: inner, count: count}
}

func (c *Counted) On(channels ...string) error  { return c.inner.On(channels...) }
func (c *Counted) Off(channels ...string) error { return c.inner.Off(channels...) }

func (c *Counted) Press(hold time.Duration, channels ...string) error {
	for _, ch := range channels {
		c.count(ch)
	}
	return c.inner.Press(hold, channels...)
}

func (c *Counted) Sequence(seq []Chord, press, pause time.Duration) error {
	return runSequence(c, seq, press, pause)
}

func (c *Counted) Close() error { return c.inner.Close() }

// Recorder receives key activity so replay clips can draw the keypad overlay
// in sync with the actuator.
type Recorder interface {
	LogKeyPress(name string, hold time.Duration)
	StartKeyHold(name string)
	StopKeyHold(name string)
}

// Recorded wraps an Actuator and mirrors every action into a Recorder.
type Recorded struct {
	inner Actuator
	rec   Recorder
}

func NewRecorded(inner Actuator, rec Recorder) *Recorded {
	return &Recorded{inner: inner, rec: rec}
}

func (r *Recorded) On(channels ...string) error {
	for _, ch := range channels {
		r.rec.StartKeyHold(ch)
	}
	return r.inner.On(channels...)
}

func (r *Recorded) Off(channels ...string) error {
	for _, ch := range channels {
		r.rec.StopKeyHold(ch)
	}
	return r.inner.Off(channels...)
}

func (r *Recorded) Press(hold time.Duration, channels ...string) error {
	for _, ch := range channels {
		r.rec.LogKeyPress(ch, hold)
	}
	return r.inner.Press(hold, channels...)
}

func (r *Recorded) Sequence(seq []Chord, press, pause time.Duration) error {
	return runSequence(r, seq, press, pause)
}

func (r *Recorded) Close() error {
	return r.inner.Close()
}
