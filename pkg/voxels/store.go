// Package voxels implements a sparse palette volume. Cells hold bit-packed
// palette indices; the palette is reference counted and the index width
// doubles whenever a new color no longer fits.
package voxels

import (
	"errors"
	"fmt"

	"github.com/chazu/smoothvox/pkg/bits"
)

// MaxSize is the largest extent of a store along any axis.
const MaxSize = 128

var (
	ErrSize        = errors.New("voxels: size out of range")
	ErrOutOfBounds = errors.New("voxels: coordinate out of bounds")
	ErrIndex       = errors.New("voxels: palette index out of range")
)

// Size is the extent of a store in cells.
type Size struct {
	X, Y, Z int
}

// Volume returns the number of cells.
func (s Size) Volume() int { return s.X * s.Y * s.Z }

// Valid reports whether every axis is within 1..MaxSize.
func (s Size) Valid() bool {
	return s.X >= 1 && s.Y >= 1 && s.Z >= 1 && s.X <= MaxSize && s.Y <= MaxSize && s.Z <= MaxSize
}

func (s Size) String() string { return fmt.Sprintf("%dx%dx%d", s.X, s.Y, s.Z) }

// Point is a cell coordinate in the centered store space.
type Point struct {
	X, Y, Z int
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y, p.Z + q.Z} }

// Shift returns how far the coordinate origin sits from the first cell of
// an axis of extent n. Valid coordinates run [-Shift(n), n-Shift(n)-1].
func Shift(n int) int {
	if n%2 == 0 {
		return n/2 - 1
	}
	return n / 2
}

// Store is a palette-indexed voxel volume.
// The invariant refCounts[i] == number of cells with index i+1 holds after
// every exported mutation.
type Store struct {
	size      Size
	shift     Point
	palette   []Color
	refCounts []uint32
	slots     map[Color]uint32
	indices   *bits.Array
}

// NewStore allocates an empty store.
func NewStore(size Size) (*Store, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrSize, size)
	}
	return &Store{
		size:    size,
		shift:   Point{Shift(size.X), Shift(size.Y), Shift(size.Z)},
		slots:   make(map[Color]uint32),
		indices: bits.New(bits.W1, size.Volume()),
	}, nil
}

// Size returns the store extent.
func (s *Store) Size() Size { return s.size }

// Min returns the smallest valid coordinate.
func (s *Store) Min() Point { return Point{-s.shift.X, -s.shift.Y, -s.shift.Z} }

// Max returns the largest valid coordinate.
func (s *Store) Max() Point {
	return Point{s.size.X - s.shift.X - 1, s.size.Y - s.shift.Y - 1, s.size.Z - s.shift.Z - 1}
}

// Width returns the current bit width of the index buffer.
func (s *Store) Width() bits.Width { return s.indices.Width() }

// InBounds reports whether (x, y, z) addresses a cell.
func (s *Store) InBounds(x, y, z int) bool {
	x += s.shift.X
	y += s.shift.Y
	z += s.shift.Z
	return x >= 0 && y >= 0 && z >= 0 && x < s.size.X && y < s.size.Y && z < s.size.Z
}

// offset maps a coordinate to its linear cell index, x fastest, then y, then z.
func (s *Store) offset(x, y, z int) int {
	return (x + s.shift.X) + s.size.X*((y+s.shift.Y)+s.size.Y*(z+s.shift.Z))
}

// IndexAt returns the palette index at (x, y, z); cells outside the store
// read as empty.
func (s *Store) IndexAt(x, y, z int) uint32 {
	if !s.InBounds(x, y, z) {
		return 0
	}
	return s.indices.Get(s.offset(x, y, z))
}

// SetIndexAt writes a palette index. Reference counts of the old and new
// index are updated before the index buffer changes.
func (s *Store) SetIndexAt(x, y, z int, index uint32) error {
	if !s.InBounds(x, y, z) {
		return fmt.Errorf("%w: (%d,%d,%d) in %s", ErrOutOfBounds, x, y, z, s.size)
	}
	if int(index) > len(s.palette) {
		return fmt.Errorf("%w: %d with %d palette entries", ErrIndex, index, len(s.palette))
	}
	off := s.offset(x, y, z)
	old := s.indices.Get(off)
	if old == index {
		return nil
	}
	if old != 0 {
		s.refCounts[old-1]--
	}
	if index != 0 {
		s.refCounts[index-1]++
	}
	s.indices.Set(off, index)
	return nil
}

// ColorAt returns the color at (x, y, z) and whether the cell is filled.
func (s *Store) ColorAt(x, y, z int) (Color, bool) {
	i := s.IndexAt(x, y, z)
	if i == 0 {
		return 0, false
	}
	return s.palette[i-1], true
}

// SetColorAt stores a color, returning the palette index used. Setting
// RemoveColor is not special here; use ClearAt to empty a cell.
func (s *Store) SetColorAt(x, y, z int, c Color) (uint32, error) {
	if !s.InBounds(x, y, z) {
		return 0, fmt.Errorf("%w: (%d,%d,%d) in %s", ErrOutOfBounds, x, y, z, s.size)
	}
	if cur, ok := s.ColorAt(x, y, z); ok && cur == c {
		return s.IndexAt(x, y, z), nil
	}
	index := s.slotFor(c)
	if err := s.SetIndexAt(x, y, z, index); err != nil {
		return 0, err
	}
	return index, nil
}

// ClearAt empties a cell.
func (s *Store) ClearAt(x, y, z int) error {
	return s.SetIndexAt(x, y, z, 0)
}

// slotFor finds or allocates the palette slot for c.
func (s *Store) slotFor(c Color) uint32 {
	if i, ok := s.slots[c]; ok {
		return i
	}
	for i, n := range s.refCounts {
		if n == 0 {
			delete(s.slots, s.palette[i])
			s.palette[i] = c
			s.slots[c] = uint32(i + 1)
			return uint32(i + 1)
		}
	}
	if uint32(len(s.palette)+1) > s.indices.Width().Max() {
		s.grow()
	}
	s.palette = append(s.palette, c)
	s.refCounts = append(s.refCounts, 0)
	index := uint32(len(s.palette))
	s.slots[c] = index
	return index
}

// grow doubles the index width and re-encodes every cell.
func (s *Store) grow() {
	wider, err := s.indices.Promote(s.indices.Width().Next())
	if err != nil {
		panic(err)
	}
	s.indices = wider
}

// Palette returns a copy of the color table; entry i is palette index i+1.
func (s *Store) Palette() []Color {
	return append([]Color(nil), s.palette...)
}

// RefCounts returns a copy of the per-slot reference counts.
func (s *Store) RefCounts() []uint32 {
	return append([]uint32(nil), s.refCounts...)
}

// Count returns the number of filled cells.
func (s *Store) Count() int {
	n := 0
	for _, c := range s.refCounts {
		n += int(c)
	}
	return n
}

// ForEach calls fn for every filled cell in x-fastest, then y, then z order.
// Iteration stops when fn returns false.
func (s *Store) ForEach(fn func(p Point, c Color) bool) {
	lo, hi := s.Min(), s.Max()
	off := 0
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				if i := s.indices.Get(off); i != 0 {
					if !fn(Point{x, y, z}, s.palette[i-1]) {
						return
					}
				}
				off++
			}
		}
	}
}

// Bounds returns the smallest box containing every filled cell.
func (s *Store) Bounds() (lo, hi Point, ok bool) {
	s.ForEach(func(p Point, _ Color) bool {
		if !ok {
			lo, hi, ok = p, p, true
			return true
		}
		lo = Point{min(lo.X, p.X), min(lo.Y, p.Y), min(lo.Z, p.Z)}
		hi = Point{max(hi.X, p.X), max(hi.Y, p.Y), max(hi.Z, p.Z)}
		return true
	})
	return lo, hi, ok
}

// Clone returns a deep copy of the palette and index buffers.
func (s *Store) Clone() *Store {
	c := &Store{
		size:      s.size,
		shift:     s.shift,
		palette:   append([]Color(nil), s.palette...),
		refCounts: append([]uint32(nil), s.refCounts...),
		slots:     make(map[Color]uint32, len(s.slots)),
		indices:   s.indices.Clone(),
	}
	for k, v := range s.slots {
		c.slots[k] = v
	}
	return c
}

// Equal reports whether both stores have the same size and the same color
// in every cell. Palette layout is not compared.
func (s *Store) Equal(o *Store) bool {
	if s.size != o.size || s.Count() != o.Count() {
		return false
	}
	equal := true
	s.ForEach(func(p Point, c Color) bool {
		oc, ok := o.ColorAt(p.X, p.Y, p.Z)
		equal = ok && oc == c
		return equal
	})
	return equal
}

// ResizeTo grows the store so every axis is at least as large as size.
// Axes are never shrunk; when nothing grows the store is left untouched.
// Cells keep their world coordinates, not their raw offsets.
func (s *Store) ResizeTo(size Size) error {
	next := Size{max(s.size.X, size.X), max(s.size.Y, size.Y), max(s.size.Z, size.Z)}
	if next == s.size {
		return nil
	}
	if !next.Valid() {
		return fmt.Errorf("%w: %s", ErrSize, next)
	}
	fresh, err := NewStore(next)
	if err != nil {
		return err
	}
	fresh.indices = bits.New(s.indices.Width(), next.Volume())
	fresh.palette = append([]Color(nil), s.palette...)
	fresh.refCounts = make([]uint32, len(s.refCounts))
	for k, v := range s.slots {
		fresh.slots[k] = v
	}
	lo, hi := s.Min(), s.Max()
	off := 0
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				if i := s.indices.Get(off); i != 0 {
					fresh.refCounts[i-1]++
					fresh.indices.Set(fresh.offset(x, y, z), i)
				}
				off++
			}
		}
	}
	*s = *fresh
	return nil
}
