// Package export writes built meshes to interchange formats.
package export

import (
	"errors"
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/smoothvox/pkg/mesh"
)

// ErrEmptyMesh is returned when there is no geometry to export.
var ErrEmptyMesh = errors.New("export: empty mesh")

// Triangles converts the indexed triangles of m into sdfx triangles.
// Degenerate triangles are dropped; STL has no way to express them.
func Triangles(m *mesh.Mesh) []*sdf.Triangle3 {
	out := make([]*sdf.Triangle3, 0, m.TriangleCount())
	for t := 0; t+2 < len(m.Indices); t += 3 {
		a, b, c := vertex(m, m.Indices[t]), vertex(m, m.Indices[t+1]), vertex(m, m.Indices[t+2])
		if b.Sub(a).Cross(c.Sub(a)).Length() < 1e-12 {
			continue
		}
		out = append(out, &sdf.Triangle3{a, b, c})
	}
	return out
}

func vertex(m *mesh.Mesh, i uint32) v3.Vec {
	p := m.Vertex(i)
	return v3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
}

// SaveSTL writes the meshes to path as one binary STL solid.
func SaveSTL(path string, meshes ...*mesh.Mesh) error {
	var tris []*sdf.Triangle3
	for _, m := range meshes {
		if m == nil {
			continue
		}
		tris = append(tris, Triangles(m)...)
	}
	if len(tris) == 0 {
		return ErrEmptyMesh
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return fmt.Errorf("export: %s: %w", path, err)
	}
	return nil
}
