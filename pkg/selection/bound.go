package selection

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	apperr "github.com/DavidWHallberg/iotlab-topologies/pkg/errors"
)

// Bound is the maximum weight an edge may have to be traversed.
type Bound float64

// Unbounded admits every edge.
var Unbounded = Bound(math.Inf(1))

// IsUnbounded reports whether b is the unbounded sentinel.
func (b Bound) IsUnbounded() bool { return math.IsInf(float64(b), 1) }

// Admits reports whether an edge of weight w may be used under b.
func (b Bound) Admits(w float64) bool { return w <= float64(b) }

func (b Bound) String() string {
	if b.IsUnbounded() {
		return "unbounded"
	}
	return strconv.FormatFloat(float64(b), 'f', -1, 64)
}

// ParseBound parses a numeric bound or the sentinel names "unbounded" and
// "inf". Negative and NaN bounds are rejected.
func ParseBound(s string) (Bound, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unbounded", "inf", "+inf":
		return Unbounded, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrCodeInvalidConfig, err, "invalid bound %q", s)
	}
	b := Bound(f)
	if err := b.validate(); err != nil {
		return 0, err
	}
	return b, nil
}

func (b Bound) validate() error {
	if math.IsNaN(float64(b)) || b < 0 {
		return apperr.New(apperr.ErrCodeInvalidConfig, "bound must be a non-negative number, got %v", float64(b))
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (b Bound) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Bound) UnmarshalText(text []byte) error {
	v, err := ParseBound(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// MarshalJSON encodes finite bounds as numbers and the sentinel as
// "unbounded", since JSON has no infinity.
func (b Bound) MarshalJSON() ([]byte, error) {
	if b.IsUnbounded() {
		return []byte(`"unbounded"`), nil
	}
	return json.Marshal(float64(b))
}

// UnmarshalJSON accepts a number or a sentinel string.
func (b *Bound) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return b.UnmarshalText([]byte(s))
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidInput, err, "invalid bound %s", data)
	}
	*b = Bound(f)
	return b.validate()
}
