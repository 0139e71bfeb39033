package voxtext

import (
	"fmt"

	"github.com/chazu/smoothvox/pkg/model"
	"github.com/chazu/smoothvox/pkg/voxels"
)

// Apply decodes src against the size of m and paints every cell. Empty
// cells are cleared; unknown ids are painted with the error material.
// Nothing is written when src does not decode.
func Apply(m *model.Model, src string) error {
	size := m.Voxels.Size()
	cells, err := Decode(src, size)
	if err != nil {
		return fmt.Errorf("model %q: %w", m.Name, err)
	}
	lo := m.Voxels.Min()
	for i, id := range cells {
		x := lo.X + i%size.X
		y := lo.Y + (i/size.X)%size.Y
		z := lo.Z + i/(size.X*size.Y)
		if id == Empty {
			err = m.Voxels.ClearAt(x, y, z)
		} else {
			err = m.Set(x, y, z, id)
		}
		if err != nil {
			return fmt.Errorf("model %q: %w", m.Name, err)
		}
	}
	return nil
}

// FromModel encodes the voxels of m. Every filled cell must carry a
// registered color.
func FromModel(m *model.Model) (string, error) {
	size := m.Voxels.Size()
	ids := m.Materials.ColorIDs()
	cells := make([]string, size.Volume())
	lo := m.Voxels.Min()
	var err error
	m.Voxels.ForEach(func(p voxels.Point, c voxels.Color) bool {
		id, ok := ids[c]
		if !ok {
			err = fmt.Errorf("model %q: %w: unregistered color %s at %v", m.Name, ErrColorID, c.Hex(), p)
			return false
		}
		cells[(p.Z-lo.Z)*size.X*size.Y+(p.Y-lo.Y)*size.X+(p.X-lo.X)] = id
		return true
	})
	if err != nil {
		return "", err
	}
	return Encode(cells, size)
}
