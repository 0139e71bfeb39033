package model

import (
	"github.com/chewxy/math32"
)

const tileEpsilon = 1e-4

// changeShape pulls every vertex onto the ring of its distance from the
// model center so box shells become spheres or cylinders. Faces whose four
// corners lie on one ring are marked equidistant.
func (b *Builder) changeShape() {
	if b.model.Shape == Box {
		return
	}
	buf := b.buf
	w := b.model.Shape.weights()
	var c, r [3]float32
	for a := 0; a < 3; a++ {
		c[a] = (b.rawLo[a] + b.rawHi[a]) / 2
		r[a] = (b.rawHi[a] - b.rawLo[a]) / 2
	}
	pos := [3][]float32{buf.VertX, buf.VertY, buf.VertZ}
	for v := 0; v < buf.VertCount; v++ {
		var d [3]float32
		var ring, dist float32
		for a := 0; a < 3; a++ {
			if w[a] == 0 {
				continue
			}
			d[a] = (pos[a][v] - c[a]) / r[a] * w[a]
			ring = max(ring, math32.Abs(d[a]))
			dist += d[a] * d[a]
		}
		buf.VertRing[v] = ring
		dist = math32.Sqrt(dist)
		if dist == 0 {
			continue
		}
		s := ring / dist
		for a := 0; a < 3; a++ {
			if w[a] != 0 {
				pos[a][v] = c[a] + d[a]*s*r[a]
			}
		}
	}
	for f := 0; f < buf.FaceCount; f++ {
		ring := buf.VertRing[buf.FaceVerts[f*4]]
		eq := true
		for k := 1; k < 4; k++ {
			eq = eq && buf.VertRing[buf.FaceVerts[f*4+k]] == ring
		}
		buf.Equidistant.Set(f, eq)
	}
}

// locked reports whether vertex v may not move along axis a.
func (b *Builder) locked(v, a int) bool {
	return b.buf.VertFlatten.Get(v*3+a) || b.buf.VertClamp.Get(v*3+a)
}

// deform moves every vertex toward the centroid of its linked neighbors.
// Each step reads the previous step's positions and commits all updates
// at once.
func (b *Builder) deform() {
	steps := b.model.Materials.MaxDeformCount()
	if steps == 0 {
		return
	}
	buf := b.buf
	pos := [3][]float32{buf.VertX, buf.VertY, buf.VertZ}
	tmp := [3][]float32{buf.TmpX, buf.TmpY, buf.TmpZ}
	n := buf.VertCount
	for s := 0; s < steps; s++ {
		for v := 0; v < n; v++ {
			for a := 0; a < 3; a++ {
				tmp[a][v] = pos[a][v]
			}
			links := buf.Links(v)
			if int(buf.VertDeformCount[v]) <= s || len(links) == 0 {
				continue
			}
			factor := math32.Pow(buf.VertDeformDamping[v], float32(s)) * buf.VertDeformStrength[v]
			for a := 0; a < 3; a++ {
				if b.locked(v, a) {
					continue
				}
				var sum float32
				for _, l := range links {
					sum += pos[a][l]
				}
				centroid := sum / float32(len(links))
				tmp[a][v] = pos[a][v] + (centroid-pos[a][v])*factor
			}
		}
		for a := 0; a < 3; a++ {
			copy(pos[a][:n], tmp[a][:n])
		}
	}
}

// onTile reports whether vertex v lies on a boundary the model tiles
// across.
func (b *Builder) onTile(v int) bool {
	tile := b.model.Tile
	if tile == 0 {
		return false
	}
	pos := [3]float32{b.buf.VertX[v], b.buf.VertY[v], b.buf.VertZ[v]}
	for a := 0; a < 3; a++ {
		if tile.Neg(axis(a)) && math32.Abs(pos[a]-b.rawLo[a]) < tileEpsilon {
			return true
		}
		if tile.Pos(axis(a)) && math32.Abs(pos[a]-b.rawHi[a]) < tileEpsilon {
			return true
		}
	}
	return false
}

// warpAndScatter displaces vertices with gradient noise and uniform
// jitter. Tile boundary vertices stay put; locked axes are skipped.
func (b *Builder) warpAndScatter() {
	buf := b.buf
	pos := [3][]float32{buf.VertX, buf.VertY, buf.VertZ}
	offsets := [3]float32{0, 31.41, 62.83}
	for v := 0; v < buf.VertCount; v++ {
		amp, freq, scatter := buf.VertWarpAmplitude[v], buf.VertWarpFrequency[v], buf.VertScatter[v]
		if amp == 0 && scatter == 0 {
			continue
		}
		if b.onTile(v) {
			continue
		}
		x, y, z := buf.VertX[v]*freq, buf.VertY[v]*freq, buf.VertZ[v]*freq
		var d [3]float32
		if amp != 0 {
			for a := 0; a < 3; a++ {
				d[a] = amp * defaultNoise.At(x+offsets[a], y+offsets[a], z+offsets[a])
			}
		}
		if scatter != 0 {
			for a := 0; a < 3; a++ {
				d[a] += (b.rng.Float32()*2 - 1) * scatter
			}
		}
		for a := 0; a < 3; a++ {
			if !b.locked(v, a) {
				pos[a][v] += d[a]
			}
		}
	}
}
