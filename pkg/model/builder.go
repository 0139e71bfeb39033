package model

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/smoothvox/pkg/buffers"
	"github.com/chazu/smoothvox/pkg/mesh"
	"github.com/chazu/smoothvox/pkg/voxels"
)

// Stats describes the last build of a Builder.
type Stats struct {
	Faces          int
	Verts          int
	NonCulledFaces int
	Indices        int
	Triangles      int
	AOCacheHits    int
	OctreeNodes    int
}

// Builder owns the build-scoped state: scratch buffers, the weld map, the
// AO cache and the octree node pool. It is reused across builds but must not
// be shared between goroutines.
type Builder struct {
	buf *buffers.Buffers

	weld    map[uint32]int32
	aoCache map[aoKey]float32
	spheres map[sphereKey][]v3.Vec
	nodes   []*octNode
	used    int
	tris    []triangle

	model *Model
	lo    voxels.Point
	hi    voxels.Point
	bases map[string]box

	// Vertex extent before deformation, in voxel units.
	rawLo, rawHi [3]float32
	// Largest absolute scale applied by the vertex transformer.
	maxScale float32

	rng   *rand.Rand
	stats Stats
}

type box struct {
	lo, hi voxels.Point
}

// NewBuilder allocates a builder for at most maxVerts welded vertices.
func NewBuilder(maxVerts int) *Builder {
	return &Builder{
		buf:     buffers.New(maxVerts),
		weld:    make(map[uint32]int32),
		aoCache: make(map[aoKey]float32),
		spheres: make(map[sphereKey][]v3.Vec),
		bases:   make(map[string]box),
		rng:     rand.New(rand.NewSource(1)),
	}
}

// Build builds m with a builder sized for it.
func Build(m *Model) (*mesh.Mesh, error) {
	verts := m.Voxels.Count() * 24
	return NewBuilder(min(max(verts, 64), buffers.DefaultMaxVerts)).Build(m)
}

// Stats returns the counters of the last successful build.
func (b *Builder) Stats() Stats { return b.stats }

// Buffers exposes the scratch buffers of the last build.
func (b *Builder) Buffers() *buffers.Buffers { return b.buf }

// Build runs every stage over m and emits the mesh. Buffers are cleared at
// the start; a capacity error aborts the build.
func (b *Builder) Build(m *Model) (*mesh.Mesh, error) {
	if errs := Errors(m.Validate()); len(errs) > 0 {
		return nil, fmt.Errorf("model %q: %w", m.Name, errs[0])
	}
	b.reset(m)

	if err := b.createFaces(); err != nil {
		return nil, fmt.Errorf("model %q: %w", m.Name, err)
	}
	b.linkVertices()
	b.changeShape()
	b.deform()
	b.warpAndScatter()
	b.calculateNormals()
	b.transformVertices()
	b.calculateLights()
	b.calculateAO()
	b.combineColors()
	b.assignUVs()
	b.simplify()
	b.alignFaces()
	out := b.emit()

	b.stats.Faces = b.buf.FaceCount
	b.stats.Verts = b.buf.VertCount
	b.stats.NonCulledFaces = b.buf.NonCulledFaceCount
	b.stats.Indices = len(out.Indices)
	b.stats.Triangles = out.TriangleCount()
	slog.Debug("model built",
		"model", m.Name,
		"faces", b.stats.Faces,
		"verts", b.stats.Verts,
		"visible", b.stats.NonCulledFaces,
		"triangles", b.stats.Triangles)
	return out, nil
}

func (b *Builder) reset(m *Model) {
	b.buf.Reset()
	clear(b.weld)
	clear(b.aoCache)
	clear(b.bases)
	b.releaseNodes()
	b.tris = b.tris[:0]
	b.model = m
	b.maxScale = 1
	b.rng.Seed(m.Seed)
	b.stats = Stats{}
	b.computeBounds()
}

// computeBounds finds the filled extent of the model and of every base
// material.
func (b *Builder) computeBounds() {
	m := b.model
	lo, hi, ok := m.Voxels.Bounds()
	if !ok {
		lo, hi = voxels.Point{}, voxels.Point{}
	}
	b.lo, b.hi = lo, hi
	m.Voxels.ForEach(func(p voxels.Point, c voxels.Color) bool {
		mat := m.Materials.Of(c)
		if mat == nil {
			return true
		}
		h := mat.BaseHash()
		bb, seen := b.bases[h]
		if !seen {
			b.bases[h] = box{p, p}
			return true
		}
		bb.lo = voxels.Point{X: min(bb.lo.X, p.X), Y: min(bb.lo.Y, p.Y), Z: min(bb.lo.Z, p.Z)}
		bb.hi = voxels.Point{X: max(bb.hi.X, p.X), Y: max(bb.hi.Y, p.Y), Z: max(bb.hi.Z, p.Z)}
		b.bases[h] = bb
		return true
	})
	b.rawLo = [3]float32{float32(lo.X), float32(lo.Y), float32(lo.Z)}
	b.rawHi = [3]float32{float32(hi.X + 1), float32(hi.Y + 1), float32(hi.Z + 1)}
}

func axisOf(p voxels.Point, a int) int {
	switch a {
	case 0:
		return p.X
	case 1:
		return p.Y
	}
	return p.Z
}
