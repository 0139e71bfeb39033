package export

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/smoothvox/pkg/mesh"
)

func square() *mesh.Mesh {
	return &mesh.Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
		Indices:  []uint32{0, 1, 2, 2, 3, 0},
	}
}

func TestTriangles(t *testing.T) {
	tris := Triangles(square())
	if len(tris) != 2 {
		t.Fatalf("expected 2 triangles, got %d", len(tris))
	}
	if n := tris[0].Normal(); n.Z < 0.99 {
		t.Errorf("normal = %v, want +z", n)
	}
}

func TestTrianglesDropsDegenerate(t *testing.T) {
	m := square()
	m.Indices = append(m.Indices, 0, 0, 1)
	if got := len(Triangles(m)); got != 2 {
		t.Errorf("expected 2 triangles, got %d", got)
	}
}

func TestSaveSTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "square.stl")
	if err := SaveSTL(path, square(), nil); err != nil {
		t.Fatalf("SaveSTL failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	// 80-byte header, uint32 count, 50 bytes per triangle.
	if len(data) != 84+2*50 {
		t.Fatalf("file is %d bytes, want %d", len(data), 84+2*50)
	}
	if n := binary.LittleEndian.Uint32(data[80:84]); n != 2 {
		t.Errorf("triangle count = %d, want 2", n)
	}
}

func TestSaveSTLEmpty(t *testing.T) {
	err := SaveSTL(filepath.Join(t.TempDir(), "empty.stl"), &mesh.Mesh{})
	if !errors.Is(err, ErrEmptyMesh) {
		t.Errorf("expected ErrEmptyMesh, got %v", err)
	}
}
