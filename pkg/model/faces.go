package model

import (
	"fmt"

	"github.com/chazu/smoothvox/pkg/material"
	"github.com/chazu/smoothvox/pkg/voxels"
)

// Face directions. The axis of a direction is dir/2; odd directions face
// the positive side.
const (
	faceNX = iota
	facePX
	faceNY
	facePY
	faceNZ
	facePZ
)

var faceNames = [6]string{"nx", "px", "ny", "py", "nz", "pz"}

var faceNormals = [6][3]int{
	{-1, 0, 0}, {1, 0, 0},
	{0, -1, 0}, {0, 1, 0},
	{0, 0, -1}, {0, 0, 1},
}

// faceCorners lists the corner offsets of each face counter-clockwise seen
// from outside the voxel.
var faceCorners = [6][4][3]int{
	{{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}},
	{{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}},
	{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
	{{0, 1, 0}, {0, 1, 1}, {1, 1, 1}, {1, 1, 0}},
	{{0, 0, 0}, {0, 1, 0}, {1, 1, 0}, {1, 0, 0}},
	{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
}

// weldKey packs a lattice corner into the weld map key. Shifted corner
// coordinates are in 0..128 and fit 10 bits.
func weldKey(x, y, z int, shift voxels.Point) uint32 {
	return uint32(x+shift.X)<<20 | uint32(y+shift.Y)<<10 | uint32(z+shift.Z)
}

// faceVisible decides whether a face between a voxel of self and its
// neighbor is created.
func faceVisible(self, neighbor *material.Base, hasNeighbor bool) bool {
	if !hasNeighbor {
		return true
	}
	if neighbor.Opaque() && !self.Wireframe {
		return false
	}
	if !self.Opaque() {
		return true
	}
	return self.Wireframe && neighbor.Wireframe
}

// planarApplies reports whether a planar set covers a face: an axis flag
// covers every face on that axis, a signed flag only faces of voxels on
// that boundary of bounds.
func planarApplies(p material.Planar, dir int, cell voxels.Point, bounds box) bool {
	a := material.Axis(dir / 2)
	if p.Has(material.PlanarX, a) {
		return true
	}
	c := axisOf(cell, dir/2)
	if dir%2 == 0 {
		return p.Has(material.PlanarNegX, a) && c == axisOf(bounds.lo, dir/2)
	}
	return p.Has(material.PlanarPosX, a) && c == axisOf(bounds.hi, dir/2)
}

// resolvePlanar picks the material planar set with its base bounds, or the
// model set with the model bounds.
func (b *Builder) resolvePlanar(own *material.Planar, fallback material.Planar, mat *material.Material) (material.Planar, box) {
	if own != nil {
		return *own, b.bases[mat.BaseHash()]
	}
	return fallback, box{b.lo, b.hi}
}

// createFaces emits the visible faces of every voxel and welds their
// corners.
func (b *Builder) createFaces() error {
	m := b.model
	shift := m.Voxels.Min()
	shift = voxels.Point{X: -shift.X, Y: -shift.Y, Z: -shift.Z}

	var err error
	m.Voxels.ForEach(func(p voxels.Point, c voxels.Color) bool {
		mat := m.Materials.Of(c)
		self := mat.Shared()
		if self.Opacity == 0 {
			return true
		}
		for dir := 0; dir < 6; dir++ {
			n := faceNormals[dir]
			nc, has := m.Voxels.ColorAt(p.X+n[0], p.Y+n[1], p.Z+n[2])
			var nb *material.Base
			if has {
				nb = m.Materials.Of(nc).Shared()
			}
			if !faceVisible(self, nb, has) {
				continue
			}
			if set, bounds := b.resolvePlanar(mat.Skip, m.Skip, mat); planarApplies(set, dir, p, bounds) {
				continue
			}
			set, bounds := b.resolvePlanar(mat.Flatten, m.Flatten, mat)
			flatten := planarApplies(set, dir, p, bounds)
			set, bounds = b.resolvePlanar(mat.Clamp, m.Clamp, mat)
			clamp := planarApplies(set, dir, p, bounds)

			if err = b.createFace(p, dir, c, mat, flatten, clamp, shift); err != nil {
				return false
			}
		}
		return true
	})
	return err
}

func (b *Builder) createFace(p voxels.Point, dir int, c voxels.Color, mat *material.Material, flatten, clamp bool, shift voxels.Point) error {
	buf := b.buf
	f, err := buf.AddFace(mat.Index(), uint8(dir), p.X, p.Y, p.Z)
	if err != nil {
		return fmt.Errorf("face %s of (%d,%d,%d): %w", faceNames[dir], p.X, p.Y, p.Z, err)
	}
	buf.Flattened.Set(f, flatten)
	buf.Clamped.Set(f, clamp)

	r, g, bl := c.RGB()
	ax := dir / 2
	for k, off := range faceCorners[dir] {
		v, err := b.vertex(p.X+off[0], p.Y+off[1], p.Z+off[2], mat, shift)
		if err != nil {
			return err
		}
		buf.FaceVerts[f*4+k] = int32(v)
		buf.VertFlatten.Or(v*3+ax, flatten)
		buf.VertClamp.Or(v*3+ax, clamp)
		o := (f*4 + k) * 3
		buf.FaceColors[o], buf.FaceColors[o+1], buf.FaceColors[o+2] = r, g, bl
		if mat.Fade {
			buf.AddFade(v, r, g, bl)
		}
	}
	return nil
}

// vertex returns the welded vertex at a lattice corner, creating it on
// first use. Deform, warp and scatter keep the strongest material choice.
func (b *Builder) vertex(x, y, z int, mat *material.Material, shift voxels.Point) (int, error) {
	buf := b.buf
	key := weldKey(x, y, z, shift)
	if v, ok := b.weld[key]; ok {
		i := int(v)
		cur := material.Deform{
			Count:    int(buf.VertDeformCount[i]),
			Strength: buf.VertDeformStrength[i],
			Damping:  buf.VertDeformDamping[i],
		}
		if mat.Deform.Integral() > cur.Integral() {
			b.setDeform(i, mat.Deform)
		}
		cw := material.Warp{Amplitude: buf.VertWarpAmplitude[i], Frequency: buf.VertWarpFrequency[i]}
		if mat.Warp.Stronger(cw) {
			buf.VertWarpAmplitude[i], buf.VertWarpFrequency[i] = mat.Warp.Amplitude, mat.Warp.Frequency
		}
		buf.VertScatter[i] = max(buf.VertScatter[i], mat.Scatter)
		return i, nil
	}
	i, err := buf.AddVertex(float32(x), float32(y), float32(z))
	if err != nil {
		return 0, err
	}
	b.weld[key] = int32(i)
	b.setDeform(i, mat.Deform)
	buf.VertWarpAmplitude[i], buf.VertWarpFrequency[i] = mat.Warp.Amplitude, mat.Warp.Frequency
	buf.VertScatter[i] = mat.Scatter
	return i, nil
}

func (b *Builder) setDeform(v int, d material.Deform) {
	b.buf.VertDeformCount[v] = int32(d.Count)
	b.buf.VertDeformStrength[v] = d.Strength
	b.buf.VertDeformDamping[v] = d.Damping
}

func axis(a int) material.Axis { return material.Axis(a) }
