package material

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/chazu/smoothvox/pkg/voxels"
)

// ErrorColorID is the color id synthesized for unknown colors.
const ErrorColorID = "Err"

// List holds the materials of one model. A color id belongs to exactly one
// material; bases with identical content share one instance.
type List struct {
	materials []*Material
	bases     map[string]*Base
	colors    map[string]voxels.Color
	errorMat  int
}

// NewList returns an empty list.
func NewList() *List {
	return &List{
		bases:    make(map[string]*Base),
		colors:   make(map[string]voxels.Color),
		errorMat: -1,
	}
}

// Add validates m, shares its base and registers its colors. The material
// index is encoded in the high byte of every color it owns.
func (l *List) Add(m *Material) error {
	if err := m.Validate(); err != nil {
		return err
	}
	// Slot 255 would let black pack to voxels.RemoveColor.
	if len(l.materials) >= 255 {
		return fmt.Errorf("material %q: %w", m.Name, ErrTooManyMaterials)
	}
	slot := uint8(len(l.materials))
	for _, c := range m.Colors {
		if _, ok := l.colors[c.ID]; ok {
			return fmt.Errorf("material %q: color %s: %w", m.Name, c.ID, ErrColorReassigned)
		}
	}
	h := HashBase(&m.Base)
	shared, ok := l.bases[h]
	if !ok {
		b := m.Base
		shared = &b
		l.bases[h] = shared
	}
	m.base, m.baseHash, m.materialSlot = shared, h, slot
	for _, c := range m.Colors {
		l.colors[c.ID] = voxels.NewColor(c.RGB[0], c.RGB[1], c.RGB[2], slot)
	}
	l.materials = append(l.materials, m)
	return nil
}

// Len returns the number of materials.
func (l *List) Len() int { return len(l.materials) }

// At returns the material in slot i.
func (l *List) At(i int) *Material { return l.materials[i] }

// All returns the materials in slot order.
func (l *List) All() []*Material { return l.materials }

// Of returns the material owning a voxel color.
func (l *List) Of(c voxels.Color) *Material {
	i := int(c.Material())
	if i >= len(l.materials) {
		return nil
	}
	return l.materials[i]
}

// BaseCount returns the number of distinct bases.
func (l *List) BaseCount() int { return len(l.bases) }

// Color resolves a color id.
func (l *List) Color(id string) (voxels.Color, bool) {
	c, ok := l.colors[id]
	return c, ok
}

// ColorIDs returns the id of every registered color, keyed by color.
func (l *List) ColorIDs() map[voxels.Color]string {
	out := make(map[voxels.Color]string, len(l.colors))
	for id, c := range l.colors {
		out[c] = id
	}
	return out
}

// ErrorColor returns the magenta color used for unknown color ids, adding
// the basic error material on first use.
func (l *List) ErrorColor() (voxels.Color, error) {
	if l.errorMat >= 0 {
		c, _ := l.Color(ErrorColorID)
		return c, nil
	}
	m := New("error")
	m.Base.Type = Basic
	m.Colors = []ColorDef{{ID: ErrorColorID, RGB: [3]uint8{255, 0, 255}}}
	if err := l.Add(m); err != nil {
		return 0, err
	}
	l.errorMat = len(l.materials) - 1
	c, _ := l.Color(ErrorColorID)
	return c, nil
}

// MaxDeformCount returns the largest deform count of any material.
func (l *List) MaxDeformCount() int {
	n := 0
	for _, m := range l.materials {
		n = max(n, m.Deform.Count)
	}
	return n
}

// HashBase returns a hex sha256 of the base content.
func HashBase(b *Base) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%g|%g|%g|%t|%t|%d|%g|%g|%g|%g",
		b.Type, b.Roughness, b.Metalness, b.Opacity, b.Transparent, b.Wireframe, b.Side,
		b.Emissive[0], b.Emissive[1], b.Emissive[2], b.EmissiveIntensity)
	b.Maps.each(func(slot string, t *TextureRef) {
		writeTexture(h, slot, t)
	})
	return hex.EncodeToString(h.Sum(nil))
}

func writeTexture(h hash.Hash, slot string, t *TextureRef) {
	tr := t.Transform
	fmt.Fprintf(h, "|%s=%s,%t,%g,%g,%g,%g,%g", slot, t.Name, t.Cube,
		tr.Offset[0], tr.Offset[1], tr.Repeat[0], tr.Repeat[1], tr.Rotation)
}
