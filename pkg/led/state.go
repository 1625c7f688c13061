package led

import (
	"sort"
	"strings"
)

// State maps an LED name to 1 (lit) or 0 (dark). A name absent from the map
// is treated as 0 by Matches, so a partial target like {"green": 1} accepts
// any state where green is lit regardless of the other LEDs' values in the
// target, but every named LED must agree.
type State map[string]int

// DisplayOrder is the canonical ordering used for log lines and failure
// tokens when no explicit order is configured.
var DisplayOrder = []string{"red", "green", "blue"}

func RGB(r, g, b int) State {
	return State{"red": r, "green": g, "blue": b}
}

func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (s State) Equal(other State) bool {
	if len(s) != len(other) {
		return false
	}
	for k, v := range s {
		if other[k] != v {
			return false
		}
	}
	return true
}

// Matches reports whether the observed state s satisfies target. Any LED
// named in failLeds that is lit causes a mismatch regardless of target.
func (s State) Matches(target State, failLeds []string) bool {
	if len(s) == 0 {
		return false
	}
	for _, name := range failLeds {
		if s[name] == 1 {
			return false
		}
	}
	for name, want := range target {
		if s[name] != want {
			return false
		}
	}
	return true
}

// Lit returns the prohibited LED that is currently on, if any.
func (s State) Lit(failLeds []string) (string, bool) {
	for _, name := range failLeds {
		if s[name] == 1 {
			return name, true
		}
	}
	return "", false
}

// Display renders the state in the given order, e.g. "(1) ( ) (3)" for
// red+blue in red/green/blue order. Mirrors the console log format.
func (s State) Display(order []string) string {
	if order == nil {
		order = DisplayOrder
	}
	parts := make([]string, 0, len(order))
	for i, name := range order {
		if s[name] == 1 {
			parts = append(parts, "("+string(rune('1'+i))+")")
		} else {
			parts = append(parts, "( )")
		}
	}
	return strings.Join(parts, " ")
}

// Token renders the state as a compact machine-readable token for failure
// details, e.g. "red1_green0_blue1". LEDs outside DisplayOrder follow sorted.
func (s State) Token() string {
	order := make([]string, 0, len(s))
	seen := make(map[string]bool, len(s))
	for _, name := range DisplayOrder {
		if _, ok := s[name]; ok {
			order = append(order, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0)
	for name := range s {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	var b strings.Builder
	for i, name := range order {
		if i > 0 {
			b.WriteByte('_')
		}
		b.WriteString(name)
		if s[name] == 1 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
