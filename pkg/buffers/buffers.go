// Package buffers holds the preallocated struct-of-arrays scratch space a
// mesh build works in. Corner k of face f lives at f*4+k; per-corner vectors
// at (f*4+k)*3. Nothing is reallocated between builds; Reset zeroes in place.
package buffers

import (
	"errors"
	"fmt"

	"github.com/chazu/smoothvox/pkg/bits"
)

// ErrCapacity is returned when a build needs more vertices or faces than the
// buffers were sized for. The build must abort.
var ErrCapacity = errors.New("buffers: capacity exceeded")

// MaxLinks is the number of neighbor links a vertex can hold.
const MaxLinks = 6

// MaxFadeSamples is the number of face colors a vertex can average.
const MaxFadeSamples = 6

// DefaultMaxVerts is the vertex budget used when none is configured.
const DefaultMaxVerts = 1 << 18

// Flags is a bit-packed boolean array.
type Flags struct {
	a *bits.Array
}

func newFlags(n int) Flags { return Flags{bits.New(bits.W1, n)} }

// Get reports whether bit i is set.
func (f Flags) Get(i int) bool { return f.a.Get(i) != 0 }

// Set sets or clears bit i.
func (f Flags) Set(i int, v bool) {
	if v {
		f.a.Set(i, 1)
	} else {
		f.a.Set(i, 0)
	}
}

// Or sets bit i when v is true and leaves it untouched otherwise.
func (f Flags) Or(i int, v bool) {
	if v {
		f.a.Set(i, 1)
	}
}

func (f Flags) clear() { f.a.Clear() }

// Buffers is the scratch space of one builder.
type Buffers struct {
	MaxVerts int
	MaxFaces int

	VertCount          int
	FaceCount          int
	NonCulledFaceCount int

	// Vertex positions and the deform double buffer.
	VertX, VertY, VertZ []float32
	TmpX, TmpY, TmpZ    []float32
	VertRing            []float32

	// Normal accumulators, 3 floats per vertex.
	VertSmooth []float32
	VertBoth   []float32

	// Fade samples, MaxFadeSamples colors of 3 floats per vertex.
	VertFade      []float32
	VertFadeCount []uint8

	VertDeformCount    []int32
	VertDeformStrength []float32
	VertDeformDamping  []float32
	VertWarpAmplitude  []float32
	VertWarpFrequency  []float32
	VertScatter        []float32

	VertLinks     []int32 // MaxLinks per vertex
	VertLinkCount []uint8

	// Per-axis planar flags, 3 bits per vertex.
	VertFlatten Flags
	VertClamp   Flags

	FaceMaterial []uint8
	FaceDir      []uint8
	FaceVerts    []int32 // 4 per face
	FaceVoxel    []int16 // x, y, z of the producing cell

	FaceFlat    []float32 // flat normal per corner
	FaceSmooth  []float32 // smooth normal per corner
	FaceBoth    []float32 // blended normal per corner
	FaceNormals []float32 // resolved normal per corner

	FaceColors []float32 // rgb per corner
	FaceLight  []float32 // rgb per corner
	FaceAO     []float32 // one per corner
	FaceUVs    []float32 // uv per corner

	Culled      Flags
	Flattened   Flags
	Clamped     Flags
	SmoothFace  Flags
	Equidistant Flags
}

// New allocates buffers for maxVerts vertices and maxVerts/4 faces.
func New(maxVerts int) *Buffers {
	if maxVerts <= 0 {
		maxVerts = DefaultMaxVerts
	}
	v, f := maxVerts, maxVerts/4
	c := f * 4
	return &Buffers{
		MaxVerts: v,
		MaxFaces: f,

		VertX: make([]float32, v), VertY: make([]float32, v), VertZ: make([]float32, v),
		TmpX: make([]float32, v), TmpY: make([]float32, v), TmpZ: make([]float32, v),
		VertRing: make([]float32, v),

		VertSmooth: make([]float32, v*3),
		VertBoth:   make([]float32, v*3),

		VertFade:      make([]float32, v*MaxFadeSamples*3),
		VertFadeCount: make([]uint8, v),

		VertDeformCount:    make([]int32, v),
		VertDeformStrength: make([]float32, v),
		VertDeformDamping:  make([]float32, v),
		VertWarpAmplitude:  make([]float32, v),
		VertWarpFrequency:  make([]float32, v),
		VertScatter:        make([]float32, v),

		VertLinks:     make([]int32, v*MaxLinks),
		VertLinkCount: make([]uint8, v),

		VertFlatten: newFlags(v * 3),
		VertClamp:   newFlags(v * 3),

		FaceMaterial: make([]uint8, f),
		FaceDir:      make([]uint8, f),
		FaceVerts:    make([]int32, c),
		FaceVoxel:    make([]int16, f*3),

		FaceFlat:    make([]float32, c*3),
		FaceSmooth:  make([]float32, c*3),
		FaceBoth:    make([]float32, c*3),
		FaceNormals: make([]float32, c*3),

		FaceColors: make([]float32, c*3),
		FaceLight:  make([]float32, c*3),
		FaceAO:     make([]float32, c),
		FaceUVs:    make([]float32, c*2),

		Culled:      newFlags(f),
		Flattened:   newFlags(f),
		Clamped:     newFlags(f),
		SmoothFace:  newFlags(f),
		Equidistant: newFlags(f),
	}
}

// Reset zeroes the used prefix of every array and the counters.
func (b *Buffers) Reset() {
	v, f := b.VertCount, b.FaceCount
	c := f * 4
	for _, s := range [][]float32{b.VertX[:v], b.VertY[:v], b.VertZ[:v], b.TmpX[:v], b.TmpY[:v], b.TmpZ[:v],
		b.VertRing[:v], b.VertSmooth[:v*3], b.VertBoth[:v*3], b.VertFade[:v*MaxFadeSamples*3],
		b.VertDeformStrength[:v], b.VertDeformDamping[:v], b.VertWarpAmplitude[:v],
		b.VertWarpFrequency[:v], b.VertScatter[:v],
		b.FaceFlat[:c*3], b.FaceSmooth[:c*3], b.FaceBoth[:c*3], b.FaceNormals[:c*3],
		b.FaceColors[:c*3], b.FaceLight[:c*3], b.FaceAO[:c], b.FaceUVs[:c*2]} {
		clear(s)
	}
	clear(b.VertFadeCount[:v])
	clear(b.VertDeformCount[:v])
	clear(b.VertLinks[:v*MaxLinks])
	clear(b.VertLinkCount[:v])
	clear(b.FaceMaterial[:f])
	clear(b.FaceDir[:f])
	clear(b.FaceVerts[:c])
	clear(b.FaceVoxel[:f*3])
	for _, fl := range []Flags{b.VertFlatten, b.VertClamp, b.Culled, b.Flattened, b.Clamped, b.SmoothFace, b.Equidistant} {
		fl.clear()
	}
	b.VertCount, b.FaceCount, b.NonCulledFaceCount = 0, 0, 0
}

// AddVertex reserves the next vertex slot.
func (b *Buffers) AddVertex(x, y, z float32) (int, error) {
	if b.VertCount >= b.MaxVerts {
		return 0, fmt.Errorf("%w: more than %d vertices", ErrCapacity, b.MaxVerts)
	}
	i := b.VertCount
	b.VertX[i], b.VertY[i], b.VertZ[i] = x, y, z
	b.VertCount++
	return i, nil
}

// AddFace reserves the next face slot.
func (b *Buffers) AddFace(material, dir uint8, x, y, z int) (int, error) {
	if b.FaceCount >= b.MaxFaces {
		return 0, fmt.Errorf("%w: more than %d faces", ErrCapacity, b.MaxFaces)
	}
	f := b.FaceCount
	b.FaceMaterial[f] = material
	b.FaceDir[f] = dir
	b.FaceVoxel[f*3], b.FaceVoxel[f*3+1], b.FaceVoxel[f*3+2] = int16(x), int16(y), int16(z)
	b.FaceCount++
	b.NonCulledFaceCount++
	return f, nil
}

// Link adds a directed link from vertex a to vertex to. Duplicate
// and overflowing links are ignored.
func (b *Buffers) Link(a, to int) {
	n := int(b.VertLinkCount[a])
	links := b.VertLinks[a*MaxLinks : a*MaxLinks+n]
	for _, l := range links {
		if int(l) == to {
			return
		}
	}
	if n == MaxLinks {
		return
	}
	b.VertLinks[a*MaxLinks+n] = int32(to)
	b.VertLinkCount[a]++
}

// Links returns the linked neighbors of vertex v.
func (b *Buffers) Links(v int) []int32 {
	return b.VertLinks[v*MaxLinks : v*MaxLinks+int(b.VertLinkCount[v])]
}

// AddFade records a face color for vertex v. Samples beyond
// MaxFadeSamples are dropped.
func (b *Buffers) AddFade(v int, r, g, bl float32) {
	n := int(b.VertFadeCount[v])
	if n == MaxFadeSamples {
		return
	}
	o := (v*MaxFadeSamples + n) * 3
	b.VertFade[o], b.VertFade[o+1], b.VertFade[o+2] = r, g, bl
	b.VertFadeCount[v]++
}

// Fade returns the average of the fade samples of vertex v.
func (b *Buffers) Fade(v int) (r, g, bl float32, ok bool) {
	n := int(b.VertFadeCount[v])
	if n == 0 {
		return 0, 0, 0, false
	}
	for i := 0; i < n; i++ {
		o := (v*MaxFadeSamples + i) * 3
		r += b.VertFade[o]
		g += b.VertFade[o+1]
		bl += b.VertFade[o+2]
	}
	k := float32(n)
	return r / k, g / k, bl / k, true
}

// Cull marks face f culled once.
func (b *Buffers) Cull(f int) {
	if !b.Culled.Get(f) {
		b.Culled.Set(f, true)
		b.NonCulledFaceCount--
	}
}
