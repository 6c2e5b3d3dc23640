package perf

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type metricState uint8

const (
	stateDefined metricState = iota
	stateUndefined
	stateInfinite
)

// Metric is a statistic that may be mathematically undefined or
// infinite for degenerate inputs (flat equity curve, zero drawdown,
// no losing trades). Those conditions are legitimate outcomes, not
// errors: a Metric carries them as explicit states so reports never
// contain a silent NaN or Inf.
//
// JSON encoding: a defined metric is a plain number, undefined is
// null, infinite is the string "inf".
type Metric struct {
	value float64
	state metricState
}

// Defined returns a metric holding a concrete value.
func Defined(v float64) Metric {
	return Metric{value: v, state: stateDefined}
}

// Undefined returns the undefined sentinel.
func Undefined() Metric {
	return Metric{state: stateUndefined}
}

// Infinite returns the infinite sentinel.
func Infinite() Metric {
	return Metric{state: stateInfinite}
}

// IsDefined reports whether the metric holds a concrete value.
func (m Metric) IsDefined() bool { return m.state == stateDefined }

// IsUndefined reports whether the metric is the undefined sentinel.
func (m Metric) IsUndefined() bool { return m.state == stateUndefined }

// IsInfinite reports whether the metric is the infinite sentinel.
func (m Metric) IsInfinite() bool { return m.state == stateInfinite }

// Value returns the concrete value and whether one is present.
func (m Metric) Value() (float64, bool) {
	return m.value, m.state == stateDefined
}

// Or returns the concrete value, or fallback when the metric is not defined.
func (m Metric) Or(fallback float64) float64 {
	if m.state == stateDefined {
		return m.value
	}
	return fallback
}

// String renders the metric for logs: the value, "n/a", or "inf".
func (m Metric) String() string {
	switch m.state {
	case stateUndefined:
		return "n/a"
	case stateInfinite:
		return "inf"
	default:
		return strconv.FormatFloat(m.value, 'g', -1, 64)
	}
}

// Format renders the metric with a fixed number of decimals for
// report output. Sentinels render as "n/a" and "inf".
func (m Metric) Format(decimals int) string {
	switch m.state {
	case stateUndefined:
		return "n/a"
	case stateInfinite:
		return "inf"
	default:
		return strconv.FormatFloat(m.value, 'f', decimals, 64)
	}
}

// MarshalJSON implements json.Marshaler.
func (m Metric) MarshalJSON() ([]byte, error) {
	switch m.state {
	case stateUndefined:
		return []byte("null"), nil
	case stateInfinite:
		return []byte(`"inf"`), nil
	default:
		return json.Marshal(m.value)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metric) UnmarshalJSON(data []byte) error {
	s := string(data)
	switch s {
	case "null":
		*m = Undefined()
		return nil
	case `"inf"`, `"+inf"`, `"Infinity"`:
		*m = Infinite()
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("metric: %w", err)
	}
	*m = Defined(v)
	return nil
}

// ratio divides num by den, returning the undefined sentinel when the
// denominator is zero instead of producing Inf or NaN.
func ratio(num, den float64) Metric {
	if den == 0 {
		return Undefined()
	}
	return Defined(num / den)
}
