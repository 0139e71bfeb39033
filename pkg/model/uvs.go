package model

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// uvAxes lists, per face direction, the lattice axes mapped to u and v and
// whether each is mirrored so textures read upright from outside.
var uvAxes = [6]struct {
	u, v         int
	flipU, flipV bool
}{
	faceNX: {2, 1, false, false},
	facePX: {2, 1, true, false},
	faceNY: {0, 2, false, false},
	facePY: {0, 2, false, true},
	faceNZ: {0, 1, true, false},
	facePZ: {0, 1, false, false},
}

// assignUVs box-projects the undeformed lattice corners of every face onto
// the model extent. Map transforms travel in the material descriptors and
// are applied by the renderer, never baked in here.
func (b *Builder) assignUVs() {
	buf := b.buf
	var ext mgl32.Vec3
	for a := 0; a < 3; a++ {
		ext[a] = math32.Max(1, b.rawHi[a]-b.rawLo[a])
	}
	for f := 0; f < buf.FaceCount; f++ {
		dir := int(buf.FaceDir[f])
		ax := uvAxes[dir]
		for k := 0; k < 4; k++ {
			off := faceCorners[dir][k]
			var lattice mgl32.Vec3
			for a := 0; a < 3; a++ {
				lattice[a] = (float32(buf.FaceVoxel[f*3+a]) + float32(off[a]) - b.rawLo[a]) / ext[a]
			}
			u, v := lattice[ax.u], lattice[ax.v]
			if ax.flipU {
				u = 1 - u
			}
			if ax.flipV {
				v = 1 - v
			}
			c := f*4 + k
			buf.FaceUVs[c*2], buf.FaceUVs[c*2+1] = u, v
		}
	}
}
