package model

import (
	"slices"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	normalTolerance = 0.01
	lerpTolerance   = 1e-4
)

// scanOrders are the (axis1, axis2, axis3) orders of the simplifier passes.
// Faces merge along axis3.
var scanOrders = [3][3]int{
	{0, 2, 1},
	{0, 1, 2},
	{1, 2, 0},
}

// cornerPair links the corner slot of a face on the near side of the merge
// axis to the slot on the far side that shares its other coordinates.
type cornerPair struct {
	near, far int
}

// mergePairs returns the two corner pairs of a face direction along an axis.
func mergePairs(dir, along int) [2]cornerPair {
	var pairs [2]cornerPair
	n := 0
	corners := faceCorners[dir]
	for k, ck := range corners {
		if ck[along] != 0 {
			continue
		}
		for j, cj := range corners {
			if cj[along] != 1 {
				continue
			}
			same := true
			for a := 0; a < 3; a++ {
				if a != along && ck[a] != cj[a] {
					same = false
				}
			}
			if same {
				pairs[n] = cornerPair{k, j}
				n++
			}
		}
	}
	return pairs
}

type scanFace struct {
	key  uint64
	face int
}

// simplify merges runs of coplanar faces with matching attributes along
// each scan order. The earlier face of a merge is culled; the later one
// takes over its near corners.
func (b *Builder) simplify() {
	buf := b.buf
	var list []scanFace
	for _, order := range scanOrders {
		a1, a2, a3 := order[0], order[1], order[2]
		for dir := 0; dir < 6; dir++ {
			if dir/2 == a3 {
				continue
			}
			list = list[:0]
			for f := 0; f < buf.FaceCount; f++ {
				if buf.Culled.Get(f) || int(buf.FaceDir[f]) != dir {
					continue
				}
				c1 := uint64(int(buf.FaceVoxel[f*3+a1]) + 128)
				c2 := uint64(int(buf.FaceVoxel[f*3+a2]) + 128)
				c3 := uint64(int(buf.FaceVoxel[f*3+a3]) + 128)
				list = append(list, scanFace{(c1<<16|c2<<8|c3)<<28 + uint64(f), f})
			}
			slices.SortFunc(list, func(x, y scanFace) int {
				switch {
				case x.key < y.key:
					return -1
				case x.key > y.key:
					return 1
				}
				return 0
			})
			pairs := mergePairs(dir, a3)
			last := -1
			var lastCtx uint64
			for _, sf := range list {
				ctx := sf.key >> 36
				if last >= 0 && ctx == lastCtx && b.mergeable(last, sf.face, a3, pairs) {
					b.merge(last, sf.face, pairs)
				}
				last, lastCtx = sf.face, ctx
			}
		}
	}
}

// mergeable reports whether face f continues face l along an axis.
func (b *Builder) mergeable(l, f, along int, pairs [2]cornerPair) bool {
	buf := b.buf
	if int(buf.FaceVoxel[f*3+along]) != int(buf.FaceVoxel[l*3+along])+1 {
		return false
	}
	if buf.FaceMaterial[f] != buf.FaceMaterial[l] {
		return false
	}
	if !b.model.Materials.At(int(buf.FaceMaterial[f])).Simplify() {
		return false
	}
	for _, p := range pairs {
		if buf.FaceVerts[f*4+p.near] != buf.FaceVerts[l*4+p.far] {
			return false
		}
	}
	for k := 0; k < 4; k++ {
		nf, nl := load3(buf.FaceNormals, f*4+k), load3(buf.FaceNormals, l*4+k)
		for a := 0; a < 3; a++ {
			if math32.Abs(nf[a]-nl[a]) > normalTolerance {
				return false
			}
		}
		if load3(buf.FaceColors, f*4+k) != load3(buf.FaceColors, l*4+k) {
			return false
		}
	}
	for _, p := range pairs {
		start := b.position(buf.FaceVerts[l*4+p.near])
		mid := b.position(buf.FaceVerts[f*4+p.near])
		end := b.position(buf.FaceVerts[f*4+p.far])
		if !onSegment(start, mid, end) {
			return false
		}
	}
	return true
}

// onSegment reports whether mid lies on the segment start-end within
// lerpTolerance per axis.
func onSegment(start, mid, end mgl32.Vec3) bool {
	d := end.Sub(start)
	l2 := d.Dot(d)
	if l2 == 0 {
		return false
	}
	t := mid.Sub(start).Dot(d) / l2
	if t <= 0 || t >= 1 {
		return false
	}
	want := start.Add(d.Mul(t))
	for a := 0; a < 3; a++ {
		if math32.Abs(want[a]-mid[a]) > lerpTolerance {
			return false
		}
	}
	return true
}

// merge culls l and moves its near corners onto f.
func (b *Builder) merge(l, f int, pairs [2]cornerPair) {
	buf := b.buf
	buf.Cull(l)
	for _, p := range pairs {
		src, dst := l*4+p.near, f*4+p.near
		buf.FaceVerts[dst] = buf.FaceVerts[src]
		for _, s := range [][]float32{buf.FaceFlat, buf.FaceSmooth, buf.FaceBoth, buf.FaceNormals, buf.FaceColors, buf.FaceLight} {
			store3(s, dst, load3(s, src))
		}
		buf.FaceAO[dst] = buf.FaceAO[src]
		buf.FaceUVs[dst*2], buf.FaceUVs[dst*2+1] = buf.FaceUVs[src*2], buf.FaceUVs[src*2+1]
	}
}
