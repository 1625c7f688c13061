package led

// Signal dictionary for the keypad device family. The timed sequences mirror
// firmware blink cadences measured on the bench, so the durations are
// load-bearing.

func step(r, g, b int, min, max float64) Step {
	return Step{Target: RGB(r, g, b), Min: min, Max: max}
}

// Solid states.
var (
	AllOff         = RGB(0, 0, 0)
	AllOn          = RGB(1, 1, 1)
	AcceptState    = RGB(0, 1, 0)
	AdminModeState = RGB(0, 0, 1)
	StandbyState   = RGB(1, 0, 0)
	GreenBlueState = RGB(0, 1, 1)
	// GreenBlueBatteryState leaves red unconstrained: battery units may show
	// the charge LED during OOB.
	GreenBlueBatteryState = State{"green": 1, "blue": 1}
	KeyGenState    = RGB(1, 1, 0)
	StableEnum     = RGB(0, 1, 0)
	RedOnly        = RGB(1, 0, 0)
	GreenOnly      = RGB(0, 1, 0)
	BlueOnly       = RGB(0, 0, 1)
)

// Accept is the green triple blink following a valid entry.
var Accept = Pattern{
	step(0, 0, 0, 0.00, 3.0),
	step(0, 1, 0, 0.01, 1.0),
	step(0, 0, 0, 0.08, 0.6),
	step(0, 1, 0, 0.10, 0.6),
	step(0, 0, 0, 0.10, 0.6),
	step(0, 1, 0, 0.10, 0.6),
	step(0, 0, 0, 0.10, 0.6),
}

// Reject is the red triple blink following an invalid entry.
var Reject = Pattern{
	step(0, 0, 0, 0.00, 3.0),
	step(1, 0, 0, 0.10, 1.1),
	step(0, 0, 0, 0.10, 0.4),
	step(1, 0, 0, 0.10, 0.4),
	step(0, 0, 0, 0.10, 0.4),
	step(1, 0, 0, 0.10, 0.4),
	step(0, 0, 0, 0.10, 0.4),
}

// BruteForced flashes red when the failed-attempt counter trips.
var BruteForced = Pattern{
	step(0, 0, 0, 0.00, 1.0),
	step(1, 0, 0, 0.02, 1.0),
	step(0, 0, 0, 0.02, 0.30),
	step(1, 0, 0, 0.05, 0.30),
	step(0, 0, 0, 0.05, 0.30),
	step(1, 0, 0, 0.05, 0.30),
}

// Enum variants shown while the device enumerates after an unlock. The
// firmware picks a different cadence depending on the read-only and
// lock-override settings.
var (
	Enum = Pattern{
		step(0, 0, 0, 0.05, 3.0),
		step(0, 1, 0, 0.05, 0.6),
		step(0, 0, 0, 0.05, 1.0),
		step(0, 1, 0, 0.05, 0.6),
		step(0, 0, 0, 0.05, 0.6),
		step(0, 1, 0, 0.05, 0.6),
	}

	EnumLegacy = Pattern{
		step(0, 1, 0, 4.00, 12.0),
		step(0, 0, 0, 0.05, 1.0),
		step(0, 1, 0, 0.05, 1.0),
		step(0, 0, 0, 0.05, 1.0),
		step(0, 1, 0, 0.05, 4.0),
		step(0, 0, 0, 0.05, 1.0),
		step(0, 1, 0, 0.05, 1.0),
	}

	// The self-destruct unlock takes 5-7s of background wipe before the
	// device settles, hence the long leading step.
	EnumSelfDestruct = Pattern{
		step(0, 1, 0, 4.0, 7.0),
		step(0, 0, 0, 0.05, 0.7),
		step(0, 1, 0, 0.05, 0.7),
		step(0, 0, 0, 0.05, 0.7),
		step(0, 1, 0, 0.05, 5.0),
	}

	EnumLockOverride = Pattern{
		step(0, 1, 1, 0.00, 5.0),
		step(0, 1, 0, 2.50, 3.5),
		step(0, 1, 1, 0.20, 0.7),
		step(0, 1, 0, 2.50, 3.5),
	}

	EnumLockOverrideReadOnly = Pattern{
		step(1, 1, 0, 0.00, 10.0),
		step(0, 1, 0, 1.00, 2.0),
		step(0, 1, 1, 0.15, 0.7),
		step(0, 1, 0, 1.00, 2.0),
		step(1, 1, 0, 0.15, 0.7),
		step(0, 1, 0, 1.00, 2.0),
		step(0, 1, 1, 0.15, 0.7),
	}

	EnumReadOnly = Pattern{
		step(1, 1, 0, 0.0, 5.0),
		step(0, 1, 0, 2.0, 3.5),
		step(1, 1, 0, 0.2, 1.2),
		step(0, 1, 0, 2.0, 3.5),
	}
)

// ErrorState is the slow red blink of a failed self test.
var ErrorState = Pattern{
	step(0, 0, 0, 0.00, 1.35),
	step(1, 0, 0, 0.01, 1.35),
	step(0, 0, 0, 0.50, 1.35),
	step(1, 0, 0, 0.50, 1.35),
}

// FirstKeyKeypadTest covers the blue-to-green handoff seen only on the first
// key of the post-reset keypad walk.
var FirstKeyKeypadTest = Pattern{
	step(0, 0, 1, 0.01, 0.5),
	step(0, 1, 0, 0.01, 0.5),
}

// GreenBlue alternates during PIN enrollment prompts.
var GreenBlue = Pattern{
	step(0, 0, 1, 0.00, 1.0),
	step(0, 1, 1, 0.05, 1.0),
	step(0, 0, 1, 0.05, 0.7),
	step(0, 1, 1, 0.20, 0.7),
	step(0, 0, 1, 0.10, 0.7),
}

// RedCounter blinks red while awaiting a two-digit counter entry.
var RedCounter = Pattern{
	step(0, 0, 0, 0, 1.9),
	step(1, 0, 0, 0.05, 0.6),
	step(0, 0, 0, 0.05, 1.9),
	step(1, 0, 0, 0.05, 0.6),
	step(0, 0, 0, 0.05, 1.9),
}

// RedLogin is the admin-mode login acknowledgement.
var RedLogin = Pattern{
	step(0, 0, 0, 0.00, 1.9),
	step(1, 0, 0, 0.01, 2.1),
	step(0, 0, 0, 0.90, 1.9),
	step(1, 0, 0, 0.90, 1.9),
	step(0, 0, 0, 0.90, 1.9),
}

// RedBlue alternates during self-destruct enrollment and reset warnings.
var RedBlue = Pattern{
	step(1, 0, 0, 0.00, 1.0),
	step(0, 0, 1, 0.01, 1.0),
	step(1, 0, 0, 0.10, 0.7),
	step(0, 0, 1, 0.10, 0.7),
	step(1, 0, 0, 0.10, 0.7),
}

// RedGreen acknowledges the last-try login hold.
var RedGreen = Pattern{
	step(0, 1, 0, 0.00, 1.1),
	step(1, 0, 0, 0.05, 1.1),
	step(0, 1, 0, 0.40, 1.1),
	step(1, 0, 0, 0.40, 1.1),
	step(0, 1, 0, 0.40, 1.1),
}

// RedGreenBlue is the power-on self-test walk across all three LEDs.
var RedGreenBlue = Pattern{
	step(1, 0, 0, 0.00, 4.0),
	step(0, 1, 0, 0.50, 2.3),
	step(0, 0, 1, 0.01, 2.3),
}

// UserResetKey acknowledges the three-key user reset hold on battery units.
// Red is deliberately unconstrained; only green and blue are sampled.
var UserResetKey = Pattern{
	{Target: State{"green": 0, "blue": 0}, Min: 0.00, Max: 1.0},
	{Target: State{"green": 0, "blue": 1}, Min: 0.01, Max: 1.0},
	{Target: State{"green": 0, "blue": 0}, Min: 0.10, Max: 0.7},
	{Target: State{"green": 0, "blue": 1}, Min: 0.10, Max: 0.7},
	{Target: State{"green": 0, "blue": 0}, Min: 0.10, Max: 0.7},
}

// Flicker patterns for the LED-flicker feature toggles.
var (
	FlickerRed   = flicker(RGB(1, 0, 0), 0.7)
	FlickerGreen = flicker(RGB(0, 1, 0), 0.8)
	FlickerBlue  = flicker(RGB(0, 0, 1), 0.8)
)

func flicker(on State, gap float64) Pattern {
	off := AllOff
	p := Pattern{{Target: on, Min: 0, Max: 3.0}}
	for i := 0; i < 4; i++ {
		p = append(p,
			Step{Target: off, Min: 0.01, Max: gap},
			Step{Target: on, Min: 0.01, Max: gap},
		)
	}
	return p
}

// CounterFeedback builds the green blink train echoing an accepted
// brute-force counter value, one blink per count.
func CounterFeedback(count int) Pattern {
	p := make(Pattern, 0, count*2)
	for i := 0; i < count; i++ {
		p = append(p,
			step(0, 0, 0, 0.00, 3.0),
			step(0, 1, 0, 0.01, 1.0),
		)
	}
	return p
}
