package model

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const diagonalTolerance = 1e-5

// alignFaces picks the triangulation diagonal of every visible quad. Quads
// are split along corners 0-2; a face whose 1-3 diagonal is shorter, or on
// a tie carries more occlusion, is rotated one slot.
func (b *Builder) alignFaces() {
	buf := b.buf
	for f := 0; f < buf.FaceCount; f++ {
		if buf.Culled.Get(f) {
			continue
		}
		var p [4]mgl32.Vec3
		for k := 0; k < 4; k++ {
			p[k] = b.position(buf.FaceVerts[f*4+k])
		}
		d02, d13 := p[2].Sub(p[0]).Len(), p[3].Sub(p[1]).Len()
		ao := buf.FaceAO[f*4 : f*4+4]
		switch {
		case d13 < d02-diagonalTolerance:
			b.rotateFace(f)
		case math32.Abs(d13-d02) <= diagonalTolerance && ao[1]+ao[3] > ao[0]+ao[2]:
			b.rotateFace(f)
		}
	}
}

// rotateFace shifts every corner attribute of f one slot, keeping the
// winding.
func (b *Builder) rotateFace(f int) {
	buf := b.buf
	base := f * 4
	v := buf.FaceVerts[base : base+4]
	v[0], v[1], v[2], v[3] = v[1], v[2], v[3], v[0]
	a := buf.FaceAO[base : base+4]
	a[0], a[1], a[2], a[3] = a[1], a[2], a[3], a[0]
	for _, s := range [][]float32{buf.FaceFlat, buf.FaceSmooth, buf.FaceBoth, buf.FaceNormals, buf.FaceColors, buf.FaceLight} {
		c := s[base*3 : base*3+12]
		var first [3]float32
		copy(first[:], c[:3])
		copy(c, c[3:])
		copy(c[9:], first[:])
	}
	uv := buf.FaceUVs[base*2 : base*2+8]
	u0, v0 := uv[0], uv[1]
	copy(uv, uv[2:])
	uv[6], uv[7] = u0, v0
}
