package model

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	"github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	maxLeafTriangles = 32
	maxOctreeDepth   = 12
	rayEpsilon       = 1e-6
)

type triangle struct {
	a, b, c  v3.Vec
	centroid v3.Vec
	bounds   sdf.Box3
}

func newTriangle(a, b, c mgl32.Vec3) triangle {
	t := triangle{a: toV3(a), b: toV3(b), c: toV3(c)}
	t.centroid = t.a.Add(t.b).Add(t.c).MulScalar(1.0 / 3)
	t.bounds = sdf.Box3{Min: t.a.Min(t.b).Min(t.c), Max: t.a.Max(t.b).Max(t.c)}
	return t
}

func toV3(p mgl32.Vec3) v3.Vec { return v3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])} }

// intersect is the Möller–Trumbore ray/triangle test. It reports the ray
// parameter of the hit.
func (t *triangle) intersect(o, d v3.Vec) (float64, bool) {
	e1, e2 := t.b.Sub(t.a), t.c.Sub(t.a)
	p := d.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < 1e-12 {
		return 0, false
	}
	inv := 1 / det
	s := o.Sub(t.a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := d.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	return e2.Dot(q) * inv, true
}

// octNode is an axis-aligned octree node. Leaves hold triangle indices.
type octNode struct {
	bounds   sdf.Box3
	tris     []int32
	children [8]*octNode
	leaf     bool
}

// newNode takes a node from the builder pool.
func (b *Builder) newNode() *octNode {
	if b.used == len(b.nodes) {
		b.nodes = append(b.nodes, &octNode{})
	}
	n := b.nodes[b.used]
	b.used++
	n.tris = n.tris[:0]
	n.children = [8]*octNode{}
	n.leaf = false
	return n
}

// releaseNodes returns every node to the pool.
func (b *Builder) releaseNodes() { b.used = 0 }

// buildOctree partitions the triangles in idx about their mean centroid
// until a node holds at most maxLeafTriangles.
func (b *Builder) buildOctree(idx []int32, depth int) *octNode {
	n := b.newNode()
	n.bounds = b.tris[idx[0]].bounds
	var mean v3.Vec
	for _, i := range idx {
		n.bounds = n.bounds.Extend(b.tris[i].bounds)
		mean = mean.Add(b.tris[i].centroid)
	}
	if len(idx) <= maxLeafTriangles || depth >= maxOctreeDepth {
		n.leaf = true
		n.tris = append(n.tris, idx...)
		return n
	}
	mean = mean.MulScalar(1 / float64(len(idx)))

	var parts [8][]int32
	for _, i := range idx {
		c := b.tris[i].centroid
		o := 0
		if c.X >= mean.X {
			o |= 1
		}
		if c.Y >= mean.Y {
			o |= 2
		}
		if c.Z >= mean.Z {
			o |= 4
		}
		parts[o] = append(parts[o], i)
	}
	for _, p := range parts {
		if len(p) == len(idx) {
			n.leaf = true
			n.tris = append(n.tris, idx...)
			return n
		}
	}
	for o, p := range parts {
		if len(p) > 0 {
			n.children[o] = b.buildOctree(p, depth+1)
		}
	}
	return n
}

// slab clips the ray segment [0, tmax] against the node bounds.
func (n *octNode) slab(o, inv v3.Vec, tmax float64) bool {
	t0, t1 := 0.0, tmax
	return clip(o.X, inv.X, n.bounds.Min.X, n.bounds.Max.X, &t0, &t1) &&
		clip(o.Y, inv.Y, n.bounds.Min.Y, n.bounds.Max.Y, &t0, &t1) &&
		clip(o.Z, inv.Z, n.bounds.Min.Z, n.bounds.Max.Z, &t0, &t1)
}

func clip(o, inv, lo, hi float64, t0, t1 *float64) bool {
	near, far := (lo-o)*inv, (hi-o)*inv
	if math.IsNaN(near) || math.IsNaN(far) {
		// parallel ray starting on the slab plane
		return true
	}
	if near > far {
		near, far = far, near
	}
	*t0, *t1 = math.Max(*t0, near), math.Min(*t1, far)
	return *t0 <= *t1
}

// nearest returns the closest hit distance below tmax, or tmax.
func (b *Builder) nearest(n *octNode, o, d, inv v3.Vec, tmax float64) float64 {
	if !n.slab(o, inv, tmax) {
		return tmax
	}
	best := tmax
	if n.leaf {
		for _, i := range n.tris {
			if t, ok := b.tris[i].intersect(o, d); ok && t > rayEpsilon && t < best {
				best = t
			}
		}
		return best
	}
	for _, c := range n.children {
		if c != nil {
			best = math.Min(best, b.nearest(c, o, d, inv, best))
		}
	}
	return best
}
