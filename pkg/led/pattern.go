package led

import (
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

// Step is one entry of a timed LED pattern: the target state must appear and
// hold between Min and Max seconds. Max may be math.Inf(1) for "until the
// next step's state shows up".
type Step struct {
	Target State
	Min    float64
	Max    float64
}

// Unbounded reports whether the step has no upper hold limit.
func (s Step) Unbounded() bool {
	return math.IsInf(s.Max, 1)
}

// Pattern is an ordered sequence of timed states, evaluated strictly in
// order.
type Pattern []Step

// Solid builds a single-step pattern holding one state.
func Solid(target State, min, max float64) Pattern {
	return Pattern{{Target: target, Min: min, Max: max}}
}

// stepJSON is the wire shape shared with external pattern files:
// {"red":0|1,"green":0|1,"blue":0|1,"duration":[min,max]}. A missing
// duration means [0, +inf). Absent color keys default to 0.
type stepJSON struct {
	Red      int        `json:"red"`
	Green    int        `json:"green"`
	Blue     int        `json:"blue"`
	Duration *[]float64 `json:"duration,omitempty"`
}

func (s *Step) UnmarshalJSON(data []byte) error {
	var raw stepJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Target = RGB(raw.Red, raw.Green, raw.Blue)
	s.Min, s.Max = 0, math.Inf(1)
	if raw.Duration != nil {
		d := *raw.Duration
		if len(d) != 2 {
			return fmt.Errorf("pattern step duration must have two entries, got %d", len(d))
		}
		if d[0] < 0 || (d[1] < d[0]) {
			return fmt.Errorf("pattern step duration [%v, %v] invalid", d[0], d[1])
		}
		s.Min, s.Max = d[0], d[1]
	}
	return nil
}

func (s Step) MarshalJSON() ([]byte, error) {
	raw := stepJSON{
		Red:   s.Target["red"],
		Green: s.Target["green"],
		Blue:  s.Target["blue"],
	}
	if !(s.Min == 0 && s.Unbounded()) {
		d := []float64{s.Min, s.Max}
		raw.Duration = &d
	}
	return json.Marshal(raw)
}

// ParsePattern decodes a JSON array of wire-format steps.
func ParsePattern(data []byte) (Pattern, error) {
	var p Pattern
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse pattern: %w", err)
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("parse pattern: empty")
	}
	return p, nil
}
