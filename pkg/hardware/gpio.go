package hardware

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOBox drives the relay board through the character device GPIO API.
type GPIOBox struct {
	chip    *gpiocdev.Chip
	outputs map[string]*gpiocdev.Line
	inputs  map[string]*gpiocdev.Line
}

// NewGPIOBox opens the chip and requests every configured line. All outputs
// start low.
func NewGPIOBox(cfg Config) (*GPIOBox, error) {
	chip, err := gpiocdev.NewChip(cfg.Chip, gpiocdev.WithConsumer(cfg.Consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", cfg.Chip, err)
	}

	box := &GPIOBox{
		chip:    chip,
		outputs: make(map[string]*gpiocdev.Line, len(cfg.Outputs)),
		inputs:  make(map[string]*gpiocdev.Line, len(cfg.Inputs)),
	}

	for name, offset := range cfg.Outputs {
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0))
		if err != nil {
			box.Close()
			return nil, fmt.Errorf("request output %s (line %d): %w", name, offset, err)
		}
		box.outputs[name] = line
	}
	for name, offset := range cfg.Inputs {
		line, err := chip.RequestLine(offset, gpiocdev.AsInput)
		if err != nil {
			box.Close()
			return nil, fmt.Errorf("request input %s (line %d): %w", name, offset, err)
		}
		box.inputs[name] = line
	}

	logger.Infof("gpio box ready on %s: %d outputs, %d inputs", cfg.Chip, len(box.outputs), len(box.inputs))
	return box, nil
}

func (b *GPIOBox) set(name string, value int) error {
	line, ok := b.outputs[name]
	if !ok {
		return fmt.Errorf("unknown output channel %q", name)
	}
	if err := line.SetValue(value); err != nil {
		return fmt.Errorf("set %s=%d: %w", name, value, err)
	}
	return nil
}

func (b *GPIOBox) On(channels ...string) error {
	for _, ch := range channels {
		if err := b.set(ch, 1); err != nil {
			return err
		}
		logger.Debugf("output %s ON", ch)
	}
	return nil
}

func (b *GPIOBox) Off(channels ...string) error {
	for _, ch := range channels {
		if err := b.set(ch, 0); err != nil {
			return err
		}
		logger.Debugf("output %s OFF", ch)
	}
	return nil
}

// Press raises the channels together, holds, then drops them. The release
// runs even when raising one of the channels failed part-way.
func (b *GPIOBox) Press(hold time.Duration, channels ...string) error {
	logger.Debugf("press %v for %v", channels, hold)
	err := b.On(channels...)
	time.Sleep(hold)
	if offErr := b.Off(channels...); err == nil {
		err = offErr
	}
	return err
}

func (b *GPIOBox) Sequence(seq []Chord, press, pause time.Duration) error {
	logger.Debugf("sequence of %d presses (press %v, pause %v)", len(seq), press, pause)
	return runSequence(b, seq, press, pause)
}

// ReadInput samples a digital input channel.
func (b *GPIOBox) ReadInput(name string) (bool, error) {
	line, ok := b.inputs[name]
	if !ok {
		return false, fmt.Errorf("unknown input channel %q", name)
	}
	v, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	return v != 0, nil
}

// WaitForInput polls an input until it reaches the expected level or the
// timeout passes.
func (b *GPIOBox) WaitForInput(name string, expected bool, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		v, err := b.ReadInput(name)
		if err != nil {
			return false, err
		}
		if v == expected {
			return true, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	logger.Warnf("timeout waiting for input %s to be %v", name, expected)
	return false, nil
}

// Close drops all outputs and releases the lines and the chip.
func (b *GPIOBox) Close() error {
	for name, line := range b.outputs {
		if err := line.SetValue(0); err != nil {
			logger.Warnf("drop output %s on close: %v", name, err)
		}
		line.Close()
	}
	for _, line := range b.inputs {
		line.Close()
	}
	b.outputs = map[string]*gpiocdev.Line{}
	b.inputs = map[string]*gpiocdev.Line{}
	if b.chip != nil {
		err := b.chip.Close()
		b.chip = nil
		return err
	}
	return nil
}
