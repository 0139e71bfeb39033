// Package model turns a voxel store and its materials into a renderable
// mesh. A Model is pure configuration; a Builder owns the scratch state of a
// build and runs the stages in a fixed order.
package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/smoothvox/pkg/material"
	"github.com/chazu/smoothvox/pkg/voxels"
)

var (
	ErrInvalidShape  = errors.New("invalid shape")
	ErrInvalidResize = errors.New("invalid resize")
	ErrDataSchema    = errors.New("vertex data schema mismatch")
	ErrInvalid       = errors.New("invalid model")
)

// Shape selects the radial warp applied before smoothing.
type Shape int

const (
	Box Shape = iota
	Sphere
	CylinderX
	CylinderY
	CylinderZ
)

var shapeNames = [...]string{"box", "sphere", "cylinder-x", "cylinder-y", "cylinder-z"}

func (s Shape) String() string { return shapeNames[s] }

// ParseShape maps a shape name to its Shape.
func ParseShape(s string) (Shape, error) {
	for i, n := range shapeNames {
		if strings.EqualFold(s, n) {
			return Shape(i), nil
		}
	}
	return 0, fmt.Errorf("model: shape %q: %w", s, ErrInvalidShape)
}

// weights returns the per-axis strength of the shape warp.
func (s Shape) weights() [3]float32 {
	switch s {
	case Sphere:
		return [3]float32{1, 1, 1}
	case CylinderX:
		return [3]float32{0, 1, 1}
	case CylinderY:
		return [3]float32{1, 0, 1}
	case CylinderZ:
		return [3]float32{1, 1, 0}
	}
	return [3]float32{}
}

// Resize selects how the deformed model is scaled back to its voxel extent.
type Resize int

const (
	ResizeNone Resize = iota
	ResizeFit
	ResizeFill
)

var resizeNames = [...]string{"none", "fit", "fill"}

func (r Resize) String() string { return resizeNames[r] }

// ParseResize maps a resize name to its Resize.
func ParseResize(s string) (Resize, error) {
	for i, n := range resizeNames {
		if strings.EqualFold(s, n) {
			return Resize(i), nil
		}
	}
	return 0, fmt.Errorf("model: resize %q: %w", s, ErrInvalidResize)
}

// Transform places the model. Rotation is in degrees, applied x, then y,
// then z.
type Transform struct {
	Position [3]float32
	Rotation [3]float32
	Scale    [3]float32
}

// Identity is the transform that leaves vertices in voxel units.
var Identity = Transform{Scale: [3]float32{1, 1, 1}}

// LightKind distinguishes the supported static lights.
type LightKind int

const (
	Ambient LightKind = iota
	Directional
	Point
)

// Light is a static light baked into vertex colors.
type Light struct {
	Kind     LightKind
	Color    [3]float32
	Strength float32
	// Direction the light travels, for directional lights.
	Direction [3]float32
	Position  [3]float32
	// Distance at which a point light fades out; zero means no falloff.
	Distance float32
}

// DataField declares a custom per-vertex attribute of Size floats.
type DataField struct {
	Name string
	Size int
}

// Model is the input of a build.
type Model struct {
	Name      string
	Voxels    *voxels.Store
	Materials *material.List

	Shape     Shape
	Resize    Resize
	Transform Transform

	Origin  material.Planar
	Flatten material.Planar
	Clamp   material.Planar
	Skip    material.Planar
	Tile    material.Planar

	// AO applies to materials without their own settings; nil disables it.
	AO      *material.AO
	AOSides material.Planar

	Lights []Light
	Data   []DataField

	// Seed drives scatter jitter so builds are reproducible.
	Seed int64
}

// New returns an empty model of the given size with no materials.
func New(name string, size voxels.Size) (*Model, error) {
	store, err := voxels.NewStore(size)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", name, err)
	}
	return &Model{
		Name:      name,
		Voxels:    store,
		Materials: material.NewList(),
		Transform: Identity,
	}, nil
}

// Set paints a voxel with a registered color id. Unknown ids are painted
// with the error material.
func (m *Model) Set(x, y, z int, colorID string) error {
	c, ok := m.Materials.Color(colorID)
	if !ok {
		var err error
		if c, err = m.Materials.ErrorColor(); err != nil {
			return err
		}
	}
	_, err := m.Voxels.SetColorAt(x, y, z, c)
	return err
}

// aoFor returns the AO settings in force for a material.
func (m *Model) aoFor(mat *material.Material) *material.AO {
	if mat.AO != nil {
		return mat.AO
	}
	return m.AO
}
