package planlimits

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const unlimitedKeyword = "unlimited"

// Limit is either a finite ceiling or explicitly unbounded.
// The zero value is Finite(0).
type Limit struct {
	n         float64
	unlimited bool
}

// Unlimited returns a limit that never blocks usage.
func Unlimited() Limit {
	return Limit{unlimited: true}
}

// Finite returns a ceiling of n. Use Table.Validate or Limit.Valid to reject negative values.
func Finite(n float64) Limit {
	return Limit{n: n}
}

// IsUnlimited reports whether the limit is unbounded.
func (l Limit) IsUnlimited() bool {
	return l.unlimited
}

// Value returns the ceiling and true for finite limits, or 0 and false for unlimited ones.
func (l Limit) Value() (float64, bool) {
	if l.unlimited {
		return 0, false
	}
	return l.n, true
}

// Valid reports whether a finite limit is a non-negative number.
func (l Limit) Valid() bool {
	return l.unlimited || (l.n >= 0 && !math.IsNaN(l.n) && !math.IsInf(l.n, 0))
}

// Exceeded reports whether current usage has reached the ceiling.
// Reaching the limit counts as over: a limit of N admits items 1..N and blocks N+1.
func (l Limit) Exceeded(current float64) bool {
	if l.unlimited {
		return false
	}
	return current >= l.n
}

// Remaining returns the allowance left before the ceiling, never negative.
func (l Limit) Remaining(current float64) Limit {
	if l.unlimited {
		return l
	}
	return Finite(math.Max(0, l.n-current))
}

// Less reports whether l grants strictly less than other. Unlimited is greater than every finite limit.
func (l Limit) Less(other Limit) bool {
	switch {
	case l.unlimited:
		return false
	case other.unlimited:
		return true
	default:
		return l.n < other.n
	}
}

func (l Limit) String() string {
	if l.unlimited {
		return unlimitedKeyword
	}
	return strconv.FormatFloat(l.n, 'f', -1, 64)
}

// MarshalJSON encodes finite limits as numbers and unlimited as the string "unlimited".
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.unlimited {
		return []byte(`"` + unlimitedKeyword + `"`), nil
	}
	return []byte(l.String()), nil
}

func (l *Limit) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return l.parse(s)
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: limit must be a number or %q", ErrInvalidPlanConfiguration, unlimitedKeyword)
	}
	*l = Finite(n)
	return nil
}

// MarshalYAML mirrors the JSON encoding so plan files round-trip unchanged.
func (l Limit) MarshalYAML() (any, error) {
	if l.unlimited {
		return unlimitedKeyword, nil
	}
	if l.n == math.Trunc(l.n) {
		return int64(l.n), nil
	}
	return l.n, nil
}

func (l *Limit) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: limit at line %d must be a scalar", ErrInvalidPlanConfiguration, value.Line)
	}
	return l.parse(value.Value)
}

func (l *Limit) parse(s string) error {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, unlimitedKeyword) {
		*l = Unlimited()
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("%w: limit %q must be a number or %q", ErrInvalidPlanConfiguration, s, unlimitedKeyword)
	}
	*l = Finite(n)
	return nil
}
