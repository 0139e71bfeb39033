package model

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/chazu/smoothvox/pkg/material"
)

// normalize returns a unit vector, or the zero vector for zero input.
func normalize(a mgl32.Vec3) mgl32.Vec3 {
	l := a.Len()
	if l == 0 {
		return mgl32.Vec3{}
	}
	return a.Mul(1 / l)
}

func (b *Builder) position(v int32) mgl32.Vec3 {
	return mgl32.Vec3{b.buf.VertX[v], b.buf.VertY[v], b.buf.VertZ[v]}
}

func load3(s []float32, i int) mgl32.Vec3 { return mgl32.Vec3{s[i*3], s[i*3+1], s[i*3+2]} }

func store3(s []float32, i int, v mgl32.Vec3) { s[i*3], s[i*3+1], s[i*3+2] = v[0], v[1], v[2] }

// tileMask zeroes normal components of a vertex on a tiled boundary so
// lighting matches across tiles.
func (b *Builder) tileMask(v int32, n mgl32.Vec3) mgl32.Vec3 {
	tile := b.model.Tile
	if tile == 0 {
		return n
	}
	p := b.position(v)
	for a := 0; a < 3; a++ {
		if (tile.Neg(axis(a)) && math32.Abs(p[a]-b.rawLo[a]) < tileEpsilon) ||
			(tile.Pos(axis(a)) && math32.Abs(p[a]-b.rawHi[a]) < tileEpsilon) {
			n[a] = 0
		}
	}
	return n
}

// calculateNormals computes flat corner normals, accumulates angle-weighted
// smooth and blended vertex normals and resolves the corner normal per
// material lighting mode.
func (b *Builder) calculateNormals() {
	buf := b.buf
	for f := 0; f < buf.FaceCount; f++ {
		smooth := buf.Equidistant.Get(f) || !(buf.Flattened.Get(f) || buf.Clamped.Get(f))
		buf.SmoothFace.Set(f, smooth)

		var p [4]mgl32.Vec3
		for k := 0; k < 4; k++ {
			p[k] = b.position(buf.FaceVerts[f*4+k])
		}
		centroid := p[0].Add(p[1]).Add(p[2]).Add(p[3]).Mul(0.25)
		for k := 0; k < 4; k++ {
			v := buf.FaceVerts[f*4+k]
			prev, next := p[(k+3)%4], p[(k+1)%4]
			flat := normalize(centroid.Sub(p[k]).Cross(prev.Sub(p[k])))
			flat = normalize(b.tileMask(v, flat))
			store3(buf.FaceFlat, f*4+k, flat)

			e1, e2 := normalize(prev.Sub(p[k])), normalize(next.Sub(p[k]))
			w := math32.Acos(math32.Max(-1, math32.Min(1, e1.Dot(e2))))
			contrib := flat.Mul(w)
			store3(buf.VertSmooth, int(v), load3(buf.VertSmooth, int(v)).Add(contrib))
			if smooth {
				store3(buf.VertBoth, int(v), load3(buf.VertBoth, int(v)).Add(contrib))
			}
		}
	}
	for v := 0; v < buf.VertCount; v++ {
		store3(buf.VertSmooth, v, normalize(load3(buf.VertSmooth, v)))
		store3(buf.VertBoth, v, normalize(load3(buf.VertBoth, v)))
	}
	for f := 0; f < buf.FaceCount; f++ {
		mat := b.model.Materials.At(int(buf.FaceMaterial[f]))
		smooth := buf.SmoothFace.Get(f)
		var quad mgl32.Vec3
		for k := 0; k < 4; k++ {
			quad = quad.Add(load3(buf.FaceFlat, f*4+k))
		}
		quad = normalize(quad)
		for k := 0; k < 4; k++ {
			c := f*4 + k
			v := int(buf.FaceVerts[c])
			flat := load3(buf.FaceFlat, c)
			sm := load3(buf.VertSmooth, v)
			if sm == (mgl32.Vec3{}) {
				sm = flat
			}
			both := load3(buf.VertBoth, v)
			if both == (mgl32.Vec3{}) || !smooth {
				both = flat
			}
			store3(buf.FaceSmooth, c, sm)
			store3(buf.FaceBoth, c, both)

			var n mgl32.Vec3
			switch mat.Lighting {
			case material.Smooth:
				n = sm
			case material.Both:
				n = both
			case material.Quad:
				n = quad
			default:
				n = flat
			}
			store3(buf.FaceNormals, c, n)
		}
	}
}
