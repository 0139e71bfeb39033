// Package bits provides fixed-width unsigned integer arrays packed into a
// byte buffer. Power-of-two widths (1, 2, 4, 8, 16, 32) have specialized
// accessors; any other width between 1 and 32 goes through a generic
// shift-and-mask path.
package bits

import "fmt"

// Width is the number of bits used to store one element.
type Width uint8

const (
	W1  Width = 1
	W2  Width = 2
	W4  Width = 4
	W8  Width = 8
	W16 Width = 16
	W32 Width = 32
)

// Max returns the largest value an element of this width can hold.
func (w Width) Max() uint32 {
	if w >= 32 {
		return 0xFFFFFFFF
	}
	return uint32(1)<<w - 1
}

// Next returns the doubled width, saturating at 32.
func (w Width) Next() Width {
	if w >= W16 {
		return W32
	}
	return w * 2
}

// WidthFor returns the smallest power-of-two width able to hold v.
func WidthFor(v uint32) Width {
	w := W1
	for w < W32 && v > w.Max() {
		w = w.Next()
	}
	return w
}

// Array is a packed array of n elements of a fixed bit width.
type Array struct {
	width Width
	n     int
	data  []byte
}

// New allocates a zeroed array of n elements of the given width.
// It panics if the width is outside 1..32.
func New(width Width, n int) *Array {
	if width < 1 || width > 32 {
		panic(fmt.Sprintf("bits: invalid width %d", width))
	}
	if n < 0 {
		n = 0
	}
	return &Array{
		width: width,
		n:     n,
		data:  make([]byte, byteLen(width, n)),
	}
}

func byteLen(width Width, n int) int {
	return (int(width)*n + 7) / 8
}

// Len returns the number of elements.
func (a *Array) Len() int { return a.n }

// Width returns the element width in bits.
func (a *Array) Width() Width { return a.width }

// Bytes returns the backing buffer. It is shared, not copied.
func (a *Array) Bytes() []byte { return a.data }

// Clear zeroes every element in place.
func (a *Array) Clear() {
	clear(a.data)
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	c := &Array{width: a.width, n: a.n, data: make([]byte, len(a.data))}
	copy(c.data, a.data)
	return c
}

// Get returns element i.
func (a *Array) Get(i int) uint32 {
	switch a.width {
	case W1:
		return uint32(a.data[i>>3]>>(uint(i)&7)) & 1
	case W2:
		return uint32(a.data[i>>2]>>((uint(i)&3)<<1)) & 3
	case W4:
		return uint32(a.data[i>>1]>>((uint(i)&1)<<2)) & 0xF
	case W8:
		return uint32(a.data[i])
	case W16:
		o := i << 1
		return uint32(a.data[o]) | uint32(a.data[o+1])<<8
	case W32:
		o := i << 2
		return uint32(a.data[o]) | uint32(a.data[o+1])<<8 | uint32(a.data[o+2])<<16 | uint32(a.data[o+3])<<24
	}
	return a.getN(i)
}

// Set stores v in element i. Bits of v above the width are discarded.
func (a *Array) Set(i int, v uint32) {
	switch a.width {
	case W1:
		s := uint(i) & 7
		a.data[i>>3] = a.data[i>>3]&^(1<<s) | byte(v&1)<<s
	case W2:
		s := (uint(i) & 3) << 1
		a.data[i>>2] = a.data[i>>2]&^(3<<s) | byte(v&3)<<s
	case W4:
		s := (uint(i) & 1) << 2
		a.data[i>>1] = a.data[i>>1]&^(0xF<<s) | byte(v&0xF)<<s
	case W8:
		a.data[i] = byte(v)
	case W16:
		o := i << 1
		a.data[o] = byte(v)
		a.data[o+1] = byte(v >> 8)
	case W32:
		o := i << 2
		a.data[o] = byte(v)
		a.data[o+1] = byte(v >> 8)
		a.data[o+2] = byte(v >> 16)
		a.data[o+3] = byte(v >> 24)
	default:
		a.setN(i, v)
	}
}

// getN reads an element of arbitrary width through a 64-bit window.
func (a *Array) getN(i int) uint32 {
	bit := i * int(a.width)
	var window uint64
	first := bit >> 3
	for k := 0; k < 5 && first+k < len(a.data); k++ {
		window |= uint64(a.data[first+k]) << (8 * k)
	}
	return uint32(window>>(uint(bit)&7)) & a.width.Max()
}

func (a *Array) setN(i int, v uint32) {
	bit := i * int(a.width)
	v &= a.width.Max()
	for k := 0; k < int(a.width); k++ {
		b := bit + k
		if v>>k&1 == 1 {
			a.data[b>>3] |= 1 << (uint(b) & 7)
		} else {
			a.data[b>>3] &^= 1 << (uint(b) & 7)
		}
	}
}

// Promote returns a new array of the wider width holding the same values.
// Every element is re-encoded, so the cost is linear in Len.
func (a *Array) Promote(width Width) (*Array, error) {
	if width < a.width {
		return nil, fmt.Errorf("bits: cannot promote width %d to narrower width %d", a.width, width)
	}
	p := New(width, a.n)
	if width == a.width {
		copy(p.data, a.data)
		return p, nil
	}
	for i := 0; i < a.n; i++ {
		if v := a.Get(i); v != 0 {
			p.Set(i, v)
		}
	}
	return p, nil
}

// FromBytes wraps an existing buffer. The buffer must be exactly the size
// New would have allocated.
func FromBytes(width Width, n int, data []byte) (*Array, error) {
	if width < 1 || width > 32 {
		return nil, fmt.Errorf("bits: invalid width %d", width)
	}
	if len(data) != byteLen(width, n) {
		return nil, fmt.Errorf("bits: buffer of %d bytes does not hold %d elements of width %d", len(data), n, width)
	}
	return &Array{width: width, n: n, data: data}, nil
}
