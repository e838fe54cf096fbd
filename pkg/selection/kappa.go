package selection

import (
	"fmt"
	"math"
	"strings"

	apperr "github.com/DavidWHallberg/iotlab-topologies/pkg/errors"
)

// Kappa is the growth policy: the minimum number of nodes a level must
// contain before the expander promotes it.
type Kappa int

const (
	// Tree requires depth+1 nodes at each depth, giving a widening tree.
	Tree Kappa = iota + 1
	// Line requires a single node per depth, giving a chain.
	Line
)

// Kappas lists the supported policies in display order.
var Kappas = []Kappa{Tree, Line}

// Width returns the minimum level size at depth. Invalid policies return
// math.MaxInt so that nothing is ever promoted under them.
func (k Kappa) Width(depth int) int {
	switch k {
	case Tree:
		return depth + 1
	case Line:
		return 1
	default:
		return math.MaxInt
	}
}

// Valid reports whether k is a known policy.
func (k Kappa) Valid() bool { return k == Tree || k == Line }

func (k Kappa) String() string {
	switch k {
	case Tree:
		return "tree"
	case Line:
		return "line"
	default:
		return fmt.Sprintf("Kappa(%d)", int(k))
	}
}

// ParseKappa resolves a policy name. Matching is case-insensitive.
func ParseKappa(s string) (Kappa, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tree":
		return Tree, nil
	case "line":
		return Line, nil
	}
	return 0, apperr.New(apperr.ErrCodeInvalidConfig, "unknown kappa %q (want tree or line)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kappa) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, apperr.New(apperr.ErrCodeInvalidConfig, "invalid kappa %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kappa) UnmarshalText(b []byte) error {
	v, err := ParseKappa(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
