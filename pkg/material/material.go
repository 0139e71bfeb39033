// Package material defines rendering attributes and the per-material
// geometric modifiers consumed by the mesh pipeline.
package material

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chewxy/math32"
)

var (
	ErrUnknownType      = errors.New("unknown material type")
	ErrUnknownSide      = errors.New("unknown material side")
	ErrUnknownLighting  = errors.New("unknown lighting mode")
	ErrInvalidPlanar    = errors.New("invalid planar expression")
	ErrCubeUVTransform  = errors.New("cube texture cannot have a uv transform")
	ErrReflectRefract   = errors.New("reflection and refraction maps are mutually exclusive")
	ErrColorReassigned  = errors.New("color already belongs to another material")
	ErrInvalidColorID   = errors.New("invalid color id")
	ErrTooManyMaterials = errors.New("too many materials")
)

// Type selects the shading model a renderer applies.
type Type int

const (
	Basic Type = iota
	Lambert
	Phong
	Standard
	Physical
	Toon
	Normal
	Matcap
)

var typeNames = [...]string{"basic", "lambert", "phong", "standard", "physical", "toon", "normal", "matcap"}

func (t Type) String() string { return typeNames[t] }

// ParseType maps a type name to its Type.
func ParseType(s string) (Type, error) {
	for i, n := range typeNames {
		if strings.EqualFold(s, n) {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("material: %q: %w", s, ErrUnknownType)
}

// Side selects which triangle faces are rendered.
type Side int

const (
	Front Side = iota
	Back
	Double
)

var sideNames = [...]string{"front", "back", "double"}

func (s Side) String() string { return sideNames[s] }

// ParseSide maps a side name to its Side.
func ParseSide(s string) (Side, error) {
	for i, n := range sideNames {
		if strings.EqualFold(s, n) {
			return Side(i), nil
		}
	}
	return 0, fmt.Errorf("material: %q: %w", s, ErrUnknownSide)
}

// Lighting selects how corner normals are resolved.
type Lighting int

const (
	Flat Lighting = iota
	Smooth
	Quad
	Both
)

var lightingNames = [...]string{"flat", "smooth", "quad", "both"}

func (l Lighting) String() string { return lightingNames[l] }

// ParseLighting maps a lighting name to its Lighting.
func ParseLighting(s string) (Lighting, error) {
	for i, n := range lightingNames {
		if strings.EqualFold(s, n) {
			return Lighting(i), nil
		}
	}
	return 0, fmt.Errorf("material: %q: %w", s, ErrUnknownLighting)
}

// UVTransform is applied to texture coordinates of one map.
type UVTransform struct {
	Offset   [2]float32
	Repeat   [2]float32
	Rotation float32 // degrees
}

// IdentityUV leaves coordinates unchanged.
var IdentityUV = UVTransform{Repeat: [2]float32{1, 1}}

// IsIdentity reports whether t leaves coordinates unchanged.
func (t UVTransform) IsIdentity() bool {
	return t == IdentityUV || t == UVTransform{}
}

// TextureRef points at a named texture. Cube textures are sampled by
// direction and take no UV transform.
type TextureRef struct {
	Name      string
	Cube      bool
	Transform UVTransform
}

// Maps groups the optional texture slots of a material.
type Maps struct {
	Map          *TextureRef
	NormalMap    *TextureRef
	RoughnessMap *TextureRef
	MetalnessMap *TextureRef
	EmissiveMap  *TextureRef
	MatcapMap    *TextureRef
	ReflectMap   *TextureRef
	RefractMap   *TextureRef
}

func (m Maps) each(fn func(slot string, t *TextureRef)) {
	for _, s := range []struct {
		n string
		t *TextureRef
	}{
		{"map", m.Map}, {"normalmap", m.NormalMap}, {"roughnessmap", m.RoughnessMap},
		{"metalnessmap", m.MetalnessMap}, {"emissivemap", m.EmissiveMap}, {"matcap", m.MatcapMap},
		{"reflectionmap", m.ReflectMap}, {"refractionmap", m.RefractMap},
	} {
		if s.t != nil {
			fn(s.n, s.t)
		}
	}
}

// Base holds the rendering attributes a renderer needs. Identical bases are
// shared between materials.
type Base struct {
	Type              Type
	Roughness         float32
	Metalness         float32
	Opacity           float32
	Transparent       bool
	Wireframe         bool
	Side              Side
	Emissive          [3]float32
	EmissiveIntensity float32
	Maps              Maps
}

// DefaultBase returns an opaque standard base.
func DefaultBase() Base {
	return Base{Type: Standard, Roughness: 1, Opacity: 1}
}

// Opaque reports whether the base hides faces behind it.
func (b *Base) Opaque() bool {
	return b.Opacity >= 1 && !b.Transparent
}

// Validate checks the configuration errors that cannot be expressed by the
// field types.
func (b *Base) Validate() error {
	if b.Type < Basic || b.Type > Matcap {
		return fmt.Errorf("material: type %d: %w", b.Type, ErrUnknownType)
	}
	if b.Maps.ReflectMap != nil && b.Maps.RefractMap != nil {
		return fmt.Errorf("material: %w", ErrReflectRefract)
	}
	var err error
	b.Maps.each(func(slot string, t *TextureRef) {
		if err == nil && t.Cube && !t.Transform.IsIdentity() {
			err = fmt.Errorf("material: %s %q: %w", slot, t.Name, ErrCubeUVTransform)
		}
	})
	return err
}

// Deform configures iterative smoothing.
type Deform struct {
	Count    int
	Strength float32
	Damping  float32
}

// Integral is the total displacement weight of the deform over all steps.
// Welded vertices keep the parameters with the larger integral.
func (d Deform) Integral() float32 {
	if d.Count <= 0 {
		return 0
	}
	if d.Damping == 1 {
		return d.Strength * float32(d.Count+1)
	}
	return d.Strength * (1 - math32.Pow(d.Damping, float32(d.Count+1))) / (1 - d.Damping)
}

// Warp configures gradient-noise displacement.
type Warp struct {
	Amplitude float32
	Frequency float32
}

// Stronger reports whether w should win over o on a shared vertex.
func (w Warp) Stronger(o Warp) bool {
	if w.Amplitude != o.Amplitude {
		return w.Amplitude > o.Amplitude
	}
	return w.Frequency > o.Frequency
}

// AO configures the ambient-occlusion solver.
type AO struct {
	Color       [3]float32
	MaxDistance float32
	Strength    float32
	Angle       float32 // cone half angle, degrees
	Samples     int
}

// DefaultAO returns the solver defaults.
func DefaultAO() AO {
	return AO{MaxDistance: 1, Strength: 1, Angle: 70, Samples: 20}
}

// Material combines a shared base with the geometric modifiers applied to
// the voxels colored by it.
type Material struct {
	Name     string
	Base     Base
	Lighting Lighting
	Deform   Deform
	Warp     Warp
	Scatter  float32

	// nil planar sets fall back to the model's.
	Flatten *Planar
	Clamp   *Planar
	Skip    *Planar

	AO           *AO
	Lights       bool
	Fade         bool
	NoSimplify   bool
	Data         map[string][]float32
	Colors       []ColorDef
	base         *Base
	baseHash     string
	materialSlot uint8
}

// ColorDef names a color of a material. IDs are one upper case letter
// followed by lower case letters, e.g. "A" or "Bx".
type ColorDef struct {
	ID  string
	RGB [3]uint8
}

// New returns a material with the default base and lights enabled.
func New(name string) *Material {
	return &Material{Name: name, Base: DefaultBase(), Lighting: Flat, Lights: true}
}

// Index returns the slot the material occupies in its list.
func (m *Material) Index() uint8 { return m.materialSlot }

// Shared returns the deduplicated base after the material is added to a list.
func (m *Material) Shared() *Base {
	if m.base != nil {
		return m.base
	}
	return &m.Base
}

// BaseHash returns the content hash of the shared base.
func (m *Material) BaseHash() string { return m.baseHash }

// Simplify reports whether faces of m may be merged.
func (m *Material) Simplify() bool { return !m.NoSimplify }

// Validate checks the material configuration.
func (m *Material) Validate() error {
	if err := m.Base.Validate(); err != nil {
		return fmt.Errorf("material %q: %w", m.Name, err)
	}
	if m.Lighting < Flat || m.Lighting > Both {
		return fmt.Errorf("material %q: lighting %d: %w", m.Name, m.Lighting, ErrUnknownLighting)
	}
	for _, c := range m.Colors {
		if !ValidColorID(c.ID) {
			return fmt.Errorf("material %q: %q: %w", m.Name, c.ID, ErrInvalidColorID)
		}
	}
	return nil
}

// ValidColorID reports whether id is an upper case letter followed by zero
// or more lower case letters.
func ValidColorID(id string) bool {
	if id == "" || id[0] < 'A' || id[0] > 'Z' {
		return false
	}
	for i := 1; i < len(id); i++ {
		if id[i] < 'a' || id[i] > 'z' {
			return false
		}
	}
	return true
}
