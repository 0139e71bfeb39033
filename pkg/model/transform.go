package model

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// vertexBounds returns the extent of the current vertex positions.
func (b *Builder) vertexBounds() (lo, hi mgl32.Vec3) {
	buf := b.buf
	if buf.VertCount == 0 {
		return lo, hi
	}
	lo = b.position(0)
	hi = lo
	for v := 1; v < buf.VertCount; v++ {
		p := b.position(int32(v))
		for a := 0; a < 3; a++ {
			lo[a] = math32.Min(lo[a], p[a])
			hi[a] = math32.Max(hi[a], p[a])
		}
	}
	return lo, hi
}

// resizeMatrix scales the deformed model back toward its voxel extent.
func (b *Builder) resizeMatrix(lo, hi mgl32.Vec3) (mgl32.Mat4, mgl32.Vec3) {
	s := mgl32.Vec3{1, 1, 1}
	if b.model.Resize == ResizeNone {
		return mgl32.Ident4(), s
	}
	var target mgl32.Vec3
	fit := float32(math32.MaxFloat32)
	for a := 0; a < 3; a++ {
		want := b.rawHi[a] - b.rawLo[a]
		have := hi[a] - lo[a]
		if have > 0 {
			s[a] = want / have
			fit = math32.Min(fit, s[a])
		}
		target[a] = (b.rawLo[a] + b.rawHi[a]) / 2
	}
	if b.model.Resize == ResizeFit {
		if fit == math32.MaxFloat32 {
			fit = 1
		}
		s = mgl32.Vec3{fit, fit, fit}
	}
	c := lo.Add(hi).Mul(0.5)
	m := mgl32.Translate3D(target[0], target[1], target[2]).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2])).
		Mul4(mgl32.Translate3D(-c[0], -c[1], -c[2]))
	return m, s
}

// originOffset moves the model so each axis is centered, or has its
// minimum or maximum at zero.
func (b *Builder) originOffset(lo, hi mgl32.Vec3) mgl32.Vec3 {
	var off mgl32.Vec3
	for a := 0; a < 3; a++ {
		switch b.model.Origin.Signed(axis(a)) {
		case -1:
			off[a] = -lo[a]
		case 1:
			off[a] = -hi[a]
		default:
			off[a] = -(lo[a] + hi[a]) / 2
		}
	}
	return off
}

// modelMatrix returns the full vertex transform and the normal matrix.
func (b *Builder) modelMatrix() (mgl32.Mat4, mgl32.Mat3) {
	lo, hi := b.vertexBounds()
	resize, rs := b.resizeMatrix(lo, hi)

	rlo := resize.Mul4x1(lo.Vec4(1)).Vec3()
	rhi := resize.Mul4x1(hi.Vec4(1)).Vec3()
	off := b.originOffset(rlo, rhi)

	t := b.model.Transform
	place := mgl32.Translate3D(t.Position[0], t.Position[1], t.Position[2]).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(t.Rotation[2]))).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(t.Rotation[1]))).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(t.Rotation[0]))).
		Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))

	full := place.Mul4(mgl32.Translate3D(off[0], off[1], off[2])).Mul4(resize)

	b.maxScale = 0
	for a := 0; a < 3; a++ {
		b.maxScale = math32.Max(b.maxScale, math32.Abs(t.Scale[a]*rs[a]))
	}
	return full, full.Mat3().Inv().Transpose()
}

// transformVertices applies the model matrix to positions and the normal
// matrix to resolved corner normals.
func (b *Builder) transformVertices() {
	buf := b.buf
	full, normal := b.modelMatrix()
	for v := 0; v < buf.VertCount; v++ {
		p := full.Mul4x1(mgl32.Vec4{buf.VertX[v], buf.VertY[v], buf.VertZ[v], 1})
		buf.VertX[v], buf.VertY[v], buf.VertZ[v] = p[0], p[1], p[2]
	}
	for c := 0; c < buf.FaceCount*4; c++ {
		n := normal.Mul3x1(load3(buf.FaceNormals, c))
		store3(buf.FaceNormals, c, normalize(n))
	}
}
