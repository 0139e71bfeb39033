package model

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/chazu/smoothvox/pkg/material"
	"github.com/chazu/smoothvox/pkg/mesh"
)

// emitKey identifies an output vertex by value.
type emitKey struct {
	pos, normal, color mgl32.Vec3
	u, v               float32
}

// emit walks the visible faces grouped by material, welds identical
// output vertices and writes the mesh buffers.
func (b *Builder) emit() *mesh.Mesh {
	buf := b.buf
	mats := b.model.Materials
	out := &mesh.Mesh{
		Name:      b.model.Name,
		Vertices:  make([]float32, 0, buf.NonCulledFaceCount*4*3),
		Normals:   make([]float32, 0, buf.NonCulledFaceCount*4*3),
		Colors:    make([]float32, 0, buf.NonCulledFaceCount*4*3),
		UVs:       make([]float32, 0, buf.NonCulledFaceCount*4*2),
		Indices:   make([]uint32, 0, buf.NonCulledFaceCount*6),
		Groups:    []mesh.Group{},
		Materials: make([]mesh.MaterialDescriptor, 0, mats.Len()),
	}
	if len(b.model.Data) > 0 {
		out.Data = make(map[string][]float32, len(b.model.Data))
	}

	byMaterial := make([][]int, mats.Len())
	for f := 0; f < buf.FaceCount; f++ {
		if !buf.Culled.Get(f) {
			m := buf.FaceMaterial[f]
			byMaterial[m] = append(byMaterial[m], f)
		}
	}

	seen := make(map[emitKey]uint32)
	for i, mat := range mats.All() {
		out.Materials = append(out.Materials, describe(mat))
		faces := byMaterial[i]
		if len(faces) == 0 {
			continue
		}
		clear(seen)
		start := len(out.Indices)
		for _, f := range faces {
			var idx [4]uint32
			for k := 0; k < 4; k++ {
				idx[k] = b.emitVertex(out, seen, mat, f*4+k)
			}
			out.Indices = append(out.Indices, idx[0], idx[1], idx[2], idx[0], idx[2], idx[3])
		}
		out.Groups = append(out.Groups, mesh.Group{
			Start:         start,
			Count:         len(out.Indices) - start,
			MaterialIndex: i,
		})
	}
	return out
}

// emitVertex returns the output index of corner c, appending a new vertex
// unless an identical one was emitted for the same material.
func (b *Builder) emitVertex(out *mesh.Mesh, seen map[emitKey]uint32, mat *material.Material, c int) uint32 {
	buf := b.buf
	key := emitKey{
		pos:    b.position(buf.FaceVerts[c]),
		normal: load3(buf.FaceNormals, c),
		color:  load3(buf.FaceColors, c),
		u:      buf.FaceUVs[c*2],
		v:      buf.FaceUVs[c*2+1],
	}
	if i, ok := seen[key]; ok {
		return i
	}
	i := uint32(out.VertexCount())
	seen[key] = i
	out.Vertices = append(out.Vertices, key.pos[:]...)
	out.Normals = append(out.Normals, key.normal[:]...)
	out.Colors = append(out.Colors, key.color[:]...)
	out.UVs = append(out.UVs, key.u, key.v)
	for _, field := range b.model.Data {
		out.Data[field.Name] = append(out.Data[field.Name], mat.Data[field.Name]...)
	}
	return i
}

// describe converts a material to the renderer-facing descriptor.
func describe(mat *material.Material) mesh.MaterialDescriptor {
	base := mat.Shared()
	d := mesh.MaterialDescriptor{
		Type:              base.Type.String(),
		Roughness:         base.Roughness,
		Metalness:         base.Metalness,
		Opacity:           base.Opacity,
		Transparent:       base.Transparent || base.Opacity < 1,
		Wireframe:         base.Wireframe,
		Side:              base.Side.String(),
		Emissive:          base.Emissive,
		EmissiveIntensity: base.EmissiveIntensity,
		VertexColors:      true,
	}
	for _, m := range []struct {
		slot string
		ref  *material.TextureRef
	}{
		{"map", base.Maps.Map}, {"normalMap", base.Maps.NormalMap},
		{"roughnessMap", base.Maps.RoughnessMap}, {"metalnessMap", base.Maps.MetalnessMap},
		{"emissiveMap", base.Maps.EmissiveMap}, {"matcap", base.Maps.MatcapMap},
		{"envMap", base.Maps.ReflectMap}, {"refractionMap", base.Maps.RefractMap},
	} {
		if m.ref == nil {
			continue
		}
		t := m.ref.Transform
		if t.Repeat == ([2]float32{}) {
			t.Repeat = [2]float32{1, 1}
		}
		d.Maps = append(d.Maps, mesh.MapDescriptor{
			Slot:     m.slot,
			Texture:  m.ref.Name,
			Cube:     m.ref.Cube,
			Offset:   t.Offset,
			Repeat:   t.Repeat,
			Rotation: t.Rotation,
		})
	}
	return d
}
