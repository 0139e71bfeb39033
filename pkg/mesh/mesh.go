// Package mesh defines the renderable output of a voxel model build.
package mesh

import "github.com/chewxy/math32"

// Mesh is an indexed triangle mesh suitable for rendering.
// All arrays are flat: vertices, normals and colors have 3 floats per
// vertex, uvs 2 floats per vertex, indices 3 uint32s per triangle.
type Mesh struct {
	Name      string               `json:"name"`
	Vertices  []float32            `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals   []float32            `json:"normals"`  // [nx0,ny0,nz0, ...]
	Colors    []float32            `json:"colors"`   // [r0,g0,b0, ...] in 0..1
	UVs       []float32            `json:"uvs"`      // [u0,v0, ...]
	Indices   []uint32             `json:"indices"`  // [i0,i1,i2, ...] triangles
	Data      map[string][]float32 `json:"data,omitempty"`
	Groups    []Group              `json:"groups"`
	Materials []MaterialDescriptor `json:"materials"`
}

// Group is a run of indices drawn with one material.
type Group struct {
	Start         int  `json:"start"`
	Count         int  `json:"count"`
	MaterialIndex int  `json:"materialIndex"`
	Shell         bool `json:"shell,omitempty"`
}

// MaterialDescriptor carries what a renderer needs to build a material.
type MaterialDescriptor struct {
	Type              string          `json:"type"`
	Roughness         float32         `json:"roughness"`
	Metalness         float32         `json:"metalness"`
	Opacity           float32         `json:"opacity"`
	Transparent       bool            `json:"transparent"`
	Wireframe         bool            `json:"wireframe"`
	Side              string          `json:"side"`
	Emissive          [3]float32      `json:"emissive"`
	EmissiveIntensity float32         `json:"emissiveIntensity"`
	VertexColors      bool            `json:"vertexColors"`
	Maps              []MapDescriptor `json:"maps,omitempty"`
}

// MapDescriptor references a texture for one material slot.
type MapDescriptor struct {
	Slot     string     `json:"slot"`
	Texture  string     `json:"texture"`
	Cube     bool       `json:"cube"`
	Offset   [2]float32 `json:"offset"`
	Repeat   [2]float32 `json:"repeat"`
	Rotation float32    `json:"rotation"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Vertex returns the position of vertex i.
func (m *Mesh) Vertex(i uint32) [3]float32 {
	return [3]float32{m.Vertices[i*3], m.Vertices[i*3+1], m.Vertices[i*3+2]}
}

// Bounds returns the axis-aligned bounding box of the vertices.
func (m *Mesh) Bounds() (lo, hi [3]float32) {
	if m.IsEmpty() {
		return lo, hi
	}
	lo = m.Vertex(0)
	hi = lo
	for i := 1; i < m.VertexCount(); i++ {
		v := m.Vertex(uint32(i))
		for k := 0; k < 3; k++ {
			lo[k] = math32.Min(lo[k], v[k])
			hi[k] = math32.Max(hi[k], v[k])
		}
	}
	return lo, hi
}

// Area returns the summed area of all triangles.
func (m *Mesh) Area() float32 {
	var a float32
	for t := 0; t+2 < len(m.Indices); t += 3 {
		p, q, r := m.Vertex(m.Indices[t]), m.Vertex(m.Indices[t+1]), m.Vertex(m.Indices[t+2])
		ux, uy, uz := q[0]-p[0], q[1]-p[1], q[2]-p[2]
		vx, vy, vz := r[0]-p[0], r[1]-p[1], r[2]-p[2]
		cx, cy, cz := uy*vz-uz*vy, uz*vx-ux*vz, ux*vy-uy*vx
		a += math32.Sqrt(cx*cx+cy*cy+cz*cz) / 2
	}
	return a
}
