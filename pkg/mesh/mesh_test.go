package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func quad() *Mesh {
	return &Mesh{
		Vertices: []float32{0, 0, 0, 2, 0, 0, 2, 3, 0, 0, 3, 0},
		Indices:  []uint32{0, 1, 2, 2, 3, 0},
	}
}

func TestMeshCounts(t *testing.T) {
	tests := []struct {
		name      string
		m         *Mesh
		verts     int
		triangles int
		empty     bool
	}{
		{"empty", &Mesh{}, 0, 0, true},
		{"one vertex", &Mesh{Vertices: []float32{1, 2, 3}}, 1, 0, false},
		{"quad", quad(), 4, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.verts, tt.m.VertexCount())
			assert.Equal(t, tt.triangles, tt.m.TriangleCount())
			assert.Equal(t, tt.empty, tt.m.IsEmpty())
		})
	}
}

func TestMeshBoundsAndArea(t *testing.T) {
	m := quad()
	lo, hi := m.Bounds()
	assert.Equal(t, [3]float32{0, 0, 0}, lo)
	assert.Equal(t, [3]float32{2, 3, 0}, hi)
	assert.InDelta(t, 6, m.Area(), 1e-6)

	lo, hi = (&Mesh{}).Bounds()
	assert.Equal(t, lo, hi)
}
