package model

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// calculateLights bakes the static lights into a per-corner light color.
// Corners of materials without lighting, or of models without lights, get
// full white.
func (b *Builder) calculateLights() {
	buf := b.buf
	lights := b.model.Lights
	for f := 0; f < buf.FaceCount; f++ {
		mat := b.model.Materials.At(int(buf.FaceMaterial[f]))
		for k := 0; k < 4; k++ {
			c := f*4 + k
			if len(lights) == 0 || !mat.Lights {
				store3(buf.FaceLight, c, mgl32.Vec3{1, 1, 1})
				continue
			}
			p := b.position(buf.FaceVerts[c])
			n := load3(buf.FaceNormals, c)
			var sum mgl32.Vec3
			for _, l := range lights {
				sum = sum.Add(mgl32.Vec3(l.Color).Mul(l.Strength * lightFactor(l, p, n)))
			}
			store3(buf.FaceLight, c, sum)
		}
	}
}

// lightFactor is the contribution of l at point p with normal n, before
// color and strength.
func lightFactor(l Light, p, n mgl32.Vec3) float32 {
	switch l.Kind {
	case Directional:
		d := normalize(mgl32.Vec3(l.Direction))
		return math32.Max(0, -n.Dot(d))
	case Point:
		to := mgl32.Vec3(l.Position).Sub(p)
		dist := to.Len()
		f := math32.Max(0, n.Dot(normalize(to)))
		if l.Distance > 0 {
			f *= math32.Max(0, 1-dist/l.Distance)
		}
		return f
	}
	return 1
}
