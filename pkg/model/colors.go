package model

import "github.com/go-gl/mathgl/mgl32"

// combineColors folds fade, light and ambient occlusion into the corner
// colors: c*light, then blended toward the AO color by the AO amount.
func (b *Builder) combineColors() {
	buf := b.buf
	for f := 0; f < buf.FaceCount; f++ {
		mat := b.model.Materials.At(int(buf.FaceMaterial[f]))
		ao := b.model.aoFor(mat)
		var aoColor mgl32.Vec3
		if ao != nil {
			aoColor = ao.Color
		}
		for k := 0; k < 4; k++ {
			c := f*4 + k
			col := load3(buf.FaceColors, c)
			if mat.Fade {
				if r, g, bl, ok := buf.Fade(int(buf.FaceVerts[c])); ok {
					col = mgl32.Vec3{r, g, bl}
				}
			}
			light := load3(buf.FaceLight, c)
			col = mgl32.Vec3{col[0] * light[0], col[1] * light[1], col[2] * light[2]}
			if a := buf.FaceAO[c]; a != 0 {
				col = col.Mul(1 - a).Add(aoColor.Mul(a))
			}
			store3(buf.FaceColors, c, col)
		}
	}
}
