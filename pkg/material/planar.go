package material

import (
	"fmt"
	"strings"
)

// Axis identifies one of the three lattice axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	return [...]string{"x", "y", "z"}[a]
}

// Planar is a combination of the nine directional flags -x, x, +x, -y, y,
// +y, -z, z, +z. An unsigned axis flag covers both sides of that axis.
type Planar uint16

const (
	PlanarNegX Planar = 1 << iota
	PlanarX
	PlanarPosX
	PlanarNegY
	PlanarY
	PlanarPosY
	PlanarNegZ
	PlanarZ
	PlanarPosZ
)

// PlanarNone is the empty set.
const PlanarNone Planar = 0

var planarTokens = []struct {
	name string
	flag Planar
}{
	{"-x", PlanarNegX}, {"x", PlanarX}, {"+x", PlanarPosX},
	{"-y", PlanarNegY}, {"y", PlanarY}, {"+y", PlanarPosY},
	{"-z", PlanarNegZ}, {"z", PlanarZ}, {"+z", PlanarPosZ},
}

// ParsePlanar parses a planar expression such as "-x +y z" or "x, -z".
// "none" and the empty string yield PlanarNone.
func ParsePlanar(s string) (Planar, error) {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	var p Planar
	for _, f := range fields {
		if f == "none" {
			continue
		}
		found := false
		for _, t := range planarTokens {
			if t.name == f {
				p |= t.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("material: planar %q: %w", s, ErrInvalidPlanar)
		}
	}
	return p, nil
}

// MustPlanar is ParsePlanar for literals known to be valid.
func MustPlanar(s string) Planar {
	p, err := ParsePlanar(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Planar) shift(a Axis) Planar { return p >> (3 * uint(a)) & 7 }

// Neg reports whether the set covers the negative side of an axis.
func (p Planar) Neg(a Axis) bool { return p.shift(a)&(PlanarNegX|PlanarX) != 0 }

// Pos reports whether the set covers the positive side of an axis.
func (p Planar) Pos(a Axis) bool { return p.shift(a)&(PlanarPosX|PlanarX) != 0 }

// Side reports whether the set covers the given side of an axis.
func (p Planar) Side(a Axis, positive bool) bool {
	if positive {
		return p.Pos(a)
	}
	return p.Neg(a)
}

// Signed returns -1, 0 or +1 for an axis: -1 when only the negative flag is
// set, +1 when only the positive flag is set, 0 otherwise.
func (p Planar) Signed(a Axis) int {
	s := p.shift(a)
	switch {
	case s&PlanarX != 0, s == PlanarNegX|PlanarPosX, s == 0:
		return 0
	case s&PlanarNegX != 0:
		return -1
	default:
		return 1
	}
}

// Has reports whether one of the X-axis flags (PlanarNegX, PlanarX,
// PlanarPosX), moved to axis a, is in the set.
func (p Planar) Has(flag Planar, a Axis) bool { return p.shift(a)&flag != 0 }

// Any reports whether the set has any flag on the axis.
func (p Planar) Any(a Axis) bool { return p.shift(a) != 0 }

func (p Planar) String() string {
	if p == PlanarNone {
		return "none"
	}
	var parts []string
	for _, t := range planarTokens {
		if p&t.flag != 0 {
			parts = append(parts, t.name)
		}
	}
	return strings.Join(parts, " ")
}
