package model

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/chazu/smoothvox/pkg/material"
)

// minOccluderOpacity is the opacity from which faces cast occlusion.
const minOccluderOpacity = 0.75

// aoNudge moves ray origins off the surface, relative to the model scale.
const aoNudge = 1e-3

type aoKey struct {
	px, py, pz int32
	nx, ny, nz int32
	settings   *material.AO
}

type sphereKey struct {
	samples int
	angle   float32
}

func round3(v mgl32.Vec3, s float32) (int32, int32, int32) {
	return int32(math32.Round(v[0] * s)), int32(math32.Round(v[1] * s)), int32(math32.Round(v[2] * s))
}

// directions returns Fibonacci sphere points dense enough that roughly
// samples of them fall inside a cone of the given half angle.
func (b *Builder) directions(samples int, angle float32) []v3.Vec {
	key := sphereKey{samples, angle}
	if d, ok := b.spheres[key]; ok {
		return d
	}
	cone := (1 - math.Cos(float64(angle)*math.Pi/180)) / 2
	n := samples
	if cone > 0 {
		n = int(math.Ceil(float64(samples) / cone))
	}
	golden := math.Pi * (3 - math.Sqrt(5))
	dirs := make([]v3.Vec, n)
	for i := range dirs {
		y := 1 - 2*(float64(i)+0.5)/float64(n)
		r := math.Sqrt(1 - y*y)
		phi := golden * float64(i)
		dirs[i] = v3.Vec{X: math.Cos(phi) * r, Y: y, Z: math.Sin(phi) * r}
	}
	b.spheres[key] = dirs
	return dirs
}

// needsAO reports whether any material of the model has AO in force.
func (b *Builder) needsAO() bool {
	if b.model.AO != nil {
		return true
	}
	for _, mat := range b.model.Materials.All() {
		if mat.AO != nil {
			return true
		}
	}
	return false
}

// collectOccluders fills the triangle list from visible, mostly opaque
// faces plus the backdrop sides.
func (b *Builder) collectOccluders() {
	buf := b.buf
	for f := 0; f < buf.FaceCount; f++ {
		mat := b.model.Materials.At(int(buf.FaceMaterial[f]))
		if mat.Shared().Opacity < minOccluderOpacity {
			continue
		}
		var p [4]mgl32.Vec3
		for k := 0; k < 4; k++ {
			p[k] = b.position(buf.FaceVerts[f*4+k])
		}
		b.tris = append(b.tris, newTriangle(p[0], p[1], p[2]), newTriangle(p[0], p[2], p[3]))
	}
	b.addBackdrop()
}

// addBackdrop adds large quads just outside the model on the aoSides
// sides. They occlude but are never emitted.
func (b *Builder) addBackdrop() {
	sides := b.model.AOSides
	if sides == 0 {
		return
	}
	lo, hi := b.vertexBounds()
	margin := b.maxScale
	if b.model.AO != nil {
		margin *= b.model.AO.MaxDistance
	}
	for a := 0; a < 3; a++ {
		u, w := (a+1)%3, (a+2)%3
		for _, positive := range []bool{false, true} {
			if !sides.Side(axis(a), positive) {
				continue
			}
			plane := lo[a]
			if positive {
				plane = hi[a]
			}
			var q [4]mgl32.Vec3
			for k, c := range [4][2]float32{
				{lo[u] - margin, lo[w] - margin}, {hi[u] + margin, lo[w] - margin},
				{hi[u] + margin, hi[w] + margin}, {lo[u] - margin, hi[w] + margin},
			} {
				q[k][a], q[k][u], q[k][w] = plane, c[0], c[1]
			}
			b.tris = append(b.tris, newTriangle(q[0], q[1], q[2]), newTriangle(q[0], q[2], q[3]))
		}
	}
}

// calculateAO casts cone rays from every face corner against the octree.
func (b *Builder) calculateAO() {
	if !b.needsAO() {
		return
	}
	b.collectOccluders()
	if len(b.tris) == 0 {
		return
	}
	idx := make([]int32, len(b.tris))
	for i := range idx {
		idx[i] = int32(i)
	}
	root := b.buildOctree(idx, 0)
	b.stats.OctreeNodes = b.used

	buf := b.buf
	for f := 0; f < buf.FaceCount; f++ {
		mat := b.model.Materials.At(int(buf.FaceMaterial[f]))
		ao := b.model.aoFor(mat)
		if ao == nil || ao.Samples <= 0 {
			continue
		}
		for k := 0; k < 4; k++ {
			c := f*4 + k
			buf.FaceAO[c] = b.cornerAO(root, ao, f, k)
		}
	}
	b.releaseNodes()
}

func (b *Builder) cornerAO(root *octNode, ao *material.AO, f, k int) float32 {
	buf := b.buf
	c := f*4 + k
	p := b.position(buf.FaceVerts[c])
	n := load3(buf.FaceNormals, c)

	key := aoKey{settings: ao}
	key.px, key.py, key.pz = round3(p, 1000)
	key.nx, key.ny, key.nz = round3(n, 1000)
	if v, ok := b.aoCache[key]; ok {
		b.stats.AOCacheHits++
		return v
	}

	opposite := b.position(buf.FaceVerts[f*4+(k+2)%4])
	nudge := aoNudge * b.maxScale
	origin := toV3(p.Add(n.Mul(nudge)).Add(opposite.Sub(p).Mul(aoNudge)))
	normal := toV3(n)
	maxDist := float64(ao.MaxDistance * b.maxScale)
	if maxDist <= 0 {
		return 0
	}
	cosAngle := math.Cos(float64(ao.Angle) * math.Pi / 180)

	var sum float64
	count := 0
	for _, d := range b.directions(ao.Samples, ao.Angle) {
		if d.Dot(normal) <= cosAngle {
			continue
		}
		inv := v3.Vec{X: 1 / d.X, Y: 1 / d.Y, Z: 1 / d.Z}
		sum += b.nearest(root, origin, d, inv, maxDist) / maxDist
		count++
	}
	mean := 1.0
	if count > 0 {
		mean = sum / float64(count)
	}
	mean = math.Max(0, math.Min(1, mean))
	v := float32(1 - math.Pow(mean, float64(ao.Strength)))
	b.aoCache[key] = v
	return v
}
