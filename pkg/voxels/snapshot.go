package voxels

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/chazu/smoothvox/pkg/bits"
)

var snapshotMagic = [4]byte{'S', 'V', 'X', '1'}

// MarshalBinary encodes the size, palette and index buffer. Reference
// counts are derived again on decode.
func (s *Store) MarshalBinary() ([]byte, error) {
	raw := s.indices.Bytes()
	out := make([]byte, 0, 4+4+4+len(s.palette)*4+len(raw))
	out = append(out, snapshotMagic[:]...)
	out = append(out, byte(s.size.X-1), byte(s.size.Y-1), byte(s.size.Z-1), byte(s.indices.Width()))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(s.palette)))
	for _, c := range s.palette {
		out = binary.LittleEndian.AppendUint32(out, uint32(c))
	}
	return append(out, raw...), nil
}

// UnmarshalBinary replaces s with a decoded snapshot.
func (s *Store) UnmarshalBinary(data []byte) error {
	if len(data) < 12 || [4]byte(data[:4]) != snapshotMagic {
		return errors.New("voxels: not a store snapshot")
	}
	size := Size{int(data[4]) + 1, int(data[5]) + 1, int(data[6]) + 1}
	width := bits.Width(data[7])
	n := int(binary.LittleEndian.Uint32(data[8:12]))
	data = data[12:]
	if len(data) < n*4 {
		return fmt.Errorf("voxels: snapshot truncated in palette (%d entries)", n)
	}
	fresh, err := NewStore(size)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		c := Color(binary.LittleEndian.Uint32(data[i*4:]))
		fresh.palette = append(fresh.palette, c)
		fresh.slots[c] = uint32(i + 1)
	}
	fresh.refCounts = make([]uint32, n)
	raw := append([]byte(nil), data[n*4:]...)
	fresh.indices, err = bits.FromBytes(width, size.Volume(), raw)
	if err != nil {
		return fmt.Errorf("voxels: snapshot index buffer: %w", err)
	}
	for i := 0; i < size.Volume(); i++ {
		idx := fresh.indices.Get(i)
		if int(idx) > n {
			return fmt.Errorf("%w: cell %d holds %d", ErrIndex, i, idx)
		}
		if idx != 0 {
			fresh.refCounts[idx-1]++
		}
	}
	*s = *fresh
	return nil
}
