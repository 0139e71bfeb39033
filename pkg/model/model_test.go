package model_test

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"

	"github.com/chazu/smoothvox/pkg/buffers"
	"github.com/chazu/smoothvox/pkg/material"
	"github.com/chazu/smoothvox/pkg/mesh"
	"github.com/chazu/smoothvox/pkg/model"
	"github.com/chazu/smoothvox/pkg/voxels"
)

// newModel returns a model of the given size with one material owning the
// color "A" (red), and the material for further tweaks. Base settings are
// shared on Add, so they are changed through opts.
func newModel(t *testing.T, x, y, z int, opts ...func(*material.Material)) (*model.Model, *material.Material) {
	t.Helper()
	m, err := model.New("test", voxels.Size{X: x, Y: y, Z: z})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	mat := material.New("red")
	mat.Colors = []material.ColorDef{{ID: "A", RGB: [3]uint8{255, 0, 0}}}
	for _, opt := range opts {
		opt(mat)
	}
	if err := m.Materials.Add(mat); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	return m, mat
}

// fill sets every cell of the store to color id.
func fill(t *testing.T, m *model.Model, id string) {
	t.Helper()
	lo, hi := m.Voxels.Min(), m.Voxels.Max()
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				if err := m.Set(x, y, z, id); err != nil {
					t.Fatalf("Set failed: %v", err)
				}
			}
		}
	}
}

func build(t *testing.T, m *model.Model) (*mesh.Mesh, *model.Builder) {
	t.Helper()
	b := model.NewBuilder(4096)
	out, err := b.Build(m)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return out, b
}

func near(a, b float32) bool { return math32.Abs(a-b) < 1e-4 }

func TestRedCube(t *testing.T) {
	m, _ := newModel(t, 1, 1, 1)
	fill(t, m, "A")

	out, b := build(t, m)
	st := b.Stats()
	if st.Faces != 6 {
		t.Errorf("faces = %d, want 6", st.Faces)
	}
	if st.Verts != 8 {
		t.Errorf("welded verts = %d, want 8", st.Verts)
	}
	if st.Indices != 36 || len(out.Indices) != 36 {
		t.Errorf("indices = %d, want 36", st.Indices)
	}
	if out.VertexCount() != 24 {
		t.Errorf("output verts = %d, want 24 (flat normals split corners)", out.VertexCount())
	}
	for i := 0; i < len(out.Colors); i += 3 {
		if out.Colors[i] != 1 || out.Colors[i+1] != 0 || out.Colors[i+2] != 0 {
			t.Fatalf("color %d = %v, want (1,0,0)", i/3, out.Colors[i:i+3])
		}
	}
	if len(out.Groups) != 1 || out.Groups[0].Count != 36 || out.Groups[0].MaterialIndex != 0 {
		t.Errorf("unexpected groups %+v", out.Groups)
	}
	lo, hi := out.Bounds()
	for a := 0; a < 3; a++ {
		if !near(lo[a], -0.5) || !near(hi[a], 0.5) {
			t.Fatalf("bounds %v %v, want a centered unit cube", lo, hi)
		}
	}
	if !near(out.Area(), 6) {
		t.Errorf("area = %v, want 6", out.Area())
	}
}

func TestNormalsPointOutward(t *testing.T) {
	m, _ := newModel(t, 1, 1, 1)
	fill(t, m, "A")
	out, _ := build(t, m)
	for i := 0; i < out.VertexCount(); i++ {
		p := out.Vertex(uint32(i))
		n := out.Normals[i*3 : i*3+3]
		if d := p[0]*n[0] + p[1]*n[1] + p[2]*n[2]; d <= 0 {
			t.Fatalf("vertex %d normal %v points inward at %v", i, n, p)
		}
	}
}

func TestAdjacentCubesWeld(t *testing.T) {
	m, _ := newModel(t, 2, 1, 1)
	fill(t, m, "A")
	_, b := build(t, m)

	st := b.Stats()
	if st.Faces != 10 {
		t.Errorf("faces = %d, want 10", st.Faces)
	}
	if st.Verts != 12 {
		t.Errorf("verts = %d, want 12", st.Verts)
	}
	buf := b.Buffers()
	seen := make(map[[3]float32]bool)
	for v := 0; v < buf.VertCount; v++ {
		p := [3]float32{buf.VertX[v], buf.VertY[v], buf.VertZ[v]}
		if seen[p] {
			t.Fatalf("duplicate vertex at %v", p)
		}
		seen[p] = true
	}
	if st.NonCulledFaces != 6 {
		t.Errorf("visible faces after simplify = %d, want 6", st.NonCulledFaces)
	}
}

func TestSimplifierSlab(t *testing.T) {
	for _, n := range []int{2, 4, 7} {
		m, _ := newModel(t, n, 1, n)
		fill(t, m, "A")
		out, b := build(t, m)

		if got := b.Stats().NonCulledFaces; got != 6 {
			t.Errorf("n=%d: visible faces = %d, want 6", n, got)
		}
		want := float32(2*n*n + 4*n)
		if !near(out.Area(), want) {
			t.Errorf("n=%d: area = %v, want %v", n, out.Area(), want)
		}
		if out.TriangleCount() != 12 {
			t.Errorf("n=%d: triangles = %d, want 12", n, out.TriangleCount())
		}
	}
}

func TestSimplifierKeepsDistinctColors(t *testing.T) {
	m, _ := newModel(t, 2, 1, 1)
	blue := material.New("blue")
	blue.Colors = []material.ColorDef{{ID: "B", RGB: [3]uint8{0, 0, 255}}}
	if err := m.Materials.Add(blue); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := m.Set(0, 0, 0, "A"); err != nil {
		t.Fatal(err)
	}
	if err := m.Set(1, 0, 0, "B"); err != nil {
		t.Fatal(err)
	}
	out, b := build(t, m)
	if got := b.Stats().NonCulledFaces; got != 10 {
		t.Errorf("visible faces = %d, want 10", got)
	}
	if len(out.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(out.Groups))
	}
	if out.Groups[1].Start != out.Groups[0].Count {
		t.Errorf("groups are not contiguous: %+v", out.Groups)
	}
}

func TestNoSimplify(t *testing.T) {
	m, mat := newModel(t, 3, 1, 1)
	mat.NoSimplify = true
	fill(t, m, "A")
	_, b := build(t, m)
	if got := b.Stats().NonCulledFaces; got != 14 {
		t.Errorf("visible faces = %d, want 14", got)
	}
}

func TestAOIsolatedVoxelIsZero(t *testing.T) {
	for _, ao := range []material.AO{
		{MaxDistance: 1, Strength: 1, Angle: 70, Samples: 20},
		{MaxDistance: 10, Strength: 1, Angle: 70, Samples: 20},
		{MaxDistance: 10, Strength: 4, Angle: 89, Samples: 40},
	} {
		m, _ := newModel(t, 1, 1, 1)
		fill(t, m, "A")
		settings := ao
		m.AO = &settings
		out, b := build(t, m)
		buf := b.Buffers()
		for c := 0; c < buf.FaceCount*4; c++ {
			if buf.FaceAO[c] != 0 {
				t.Fatalf("%+v: corner %d ao = %v, want 0", ao, c, buf.FaceAO[c])
			}
		}
		for i := 0; i < len(out.Colors); i += 3 {
			if out.Colors[i] != 1 {
				t.Fatalf("%+v: color darkened without occluders", ao)
			}
		}
	}
}

func TestAOOccludesInnerCorner(t *testing.T) {
	m, _ := newModel(t, 3, 2, 3)
	for x := -1; x <= 1; x++ {
		for z := -1; z <= 1; z++ {
			if err := m.Set(x, 0, z, "A"); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := m.Set(0, 1, 0, "A"); err != nil {
		t.Fatal(err)
	}
	m.AO = &material.AO{MaxDistance: 2, Strength: 1, Angle: 70, Samples: 32}

	_, b := build(t, m)
	buf := b.Buffers()
	maxAO := float32(0)
	for c := 0; c < buf.FaceCount*4; c++ {
		maxAO = math32.Max(maxAO, buf.FaceAO[c])
		if buf.FaceAO[c] < 0 || buf.FaceAO[c] > 1 {
			t.Fatalf("ao %v out of range", buf.FaceAO[c])
		}
	}
	if maxAO <= 0 {
		t.Error("expected occlusion next to the raised voxel")
	}
	if b.Stats().AOCacheHits == 0 {
		t.Error("shared corners should hit the AO cache")
	}
}

func TestSkipPlanar(t *testing.T) {
	m, _ := newModel(t, 1, 1, 1)
	fill(t, m, "A")
	m.Skip = material.MustPlanar("-y")
	_, b := build(t, m)
	if got := b.Stats().Faces; got != 5 {
		t.Errorf("faces = %d, want 5", got)
	}
}

func TestMaterialSkipUsesMaterialBounds(t *testing.T) {
	m, mat := newModel(t, 2, 1, 1)
	skip := material.MustPlanar("+x")
	mat.Skip = &skip
	fill(t, m, "A")
	_, b := build(t, m)
	if got := b.Stats().Faces; got != 9 {
		t.Errorf("faces = %d, want 9", got)
	}
}

func TestCapacityAbortsBuild(t *testing.T) {
	m, _ := newModel(t, 4, 4, 4)
	fill(t, m, "A")
	_, err := model.NewBuilder(16).Build(m)
	if !errors.Is(err, buffers.ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
}

func TestBuilderIsReusable(t *testing.T) {
	big, _ := newModel(t, 3, 3, 3)
	fill(t, big, "A")
	small, _ := newModel(t, 1, 1, 1)
	fill(t, small, "A")

	b := model.NewBuilder(4096)
	if _, err := b.Build(big); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	out, err := b.Build(small)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if b.Stats().Verts != 8 || out.TriangleCount() != 12 {
		t.Errorf("second build leaked state: %+v", b.Stats())
	}
}

func TestSphereShape(t *testing.T) {
	m, _ := newModel(t, 4, 4, 4)
	fill(t, m, "A")
	m.Shape = model.Sphere
	out, _ := build(t, m)
	for i := 0; i < out.VertexCount(); i++ {
		p := out.Vertex(uint32(i))
		r := math32.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])
		if !near(r, 2) {
			t.Fatalf("vertex %v has radius %v, want 2", p, r)
		}
	}
}

func TestCylinderKeepsAxis(t *testing.T) {
	m, _ := newModel(t, 4, 4, 4)
	fill(t, m, "A")
	m.Shape = model.CylinderY
	out, _ := build(t, m)
	lo, hi := out.Bounds()
	if !near(lo[1], -2) || !near(hi[1], 2) {
		t.Errorf("cylinder-y changed height: %v %v", lo, hi)
	}
	for i := 0; i < out.VertexCount(); i++ {
		p := out.Vertex(uint32(i))
		if r := math32.Sqrt(p[0]*p[0] + p[2]*p[2]); r > 2+1e-4 {
			t.Fatalf("vertex %v outside the cylinder", p)
		}
	}
}

func TestDeformRoundsCorners(t *testing.T) {
	m, mat := newModel(t, 3, 3, 3)
	mat.Deform = material.Deform{Count: 4, Strength: 1, Damping: 1}
	fill(t, m, "A")
	out, _ := build(t, m)
	lo, hi := out.Bounds()
	for a := 0; a < 3; a++ {
		if hi[a] >= 1.5 || lo[a] <= -1.5 {
			t.Errorf("axis %d: bounds %v..%v not pulled in", a, lo[a], hi[a])
		}
	}
}

func TestFlattenLocksAxis(t *testing.T) {
	m, mat := newModel(t, 3, 3, 3)
	mat.Deform = material.Deform{Count: 4, Strength: 1, Damping: 1}
	m.Flatten = material.MustPlanar("y")
	fill(t, m, "A")
	out, _ := build(t, m)
	lo, hi := out.Bounds()
	if !near(lo[1], -1.5) || !near(hi[1], 1.5) {
		t.Errorf("flattened y extent changed: %v..%v", lo[1], hi[1])
	}
	if hi[0] >= 1.5 {
		t.Errorf("x extent should still deform, got %v", hi[0])
	}
}

func TestResizeFillRestoresExtent(t *testing.T) {
	m, mat := newModel(t, 3, 3, 3)
	mat.Deform = material.Deform{Count: 4, Strength: 1, Damping: 1}
	m.Resize = model.ResizeFill
	fill(t, m, "A")
	out, _ := build(t, m)
	lo, hi := out.Bounds()
	for a := 0; a < 3; a++ {
		if !near(lo[a], -1.5) || !near(hi[a], 1.5) {
			t.Errorf("axis %d: %v..%v, want -1.5..1.5", a, lo[a], hi[a])
		}
	}
}

func TestTransformAndOrigin(t *testing.T) {
	m, _ := newModel(t, 2, 2, 2)
	fill(t, m, "A")
	m.Origin = material.MustPlanar("-y")
	m.Transform = model.Transform{Position: [3]float32{10, 0, 0}, Scale: [3]float32{2, 2, 2}}
	out, _ := build(t, m)
	lo, hi := out.Bounds()
	want := [2][3]float32{{8, 0, -2}, {12, 4, 2}}
	for a := 0; a < 3; a++ {
		if !near(lo[a], want[0][a]) || !near(hi[a], want[1][a]) {
			t.Fatalf("bounds %v %v, want %v", lo, hi, want)
		}
	}
}

func TestRotationTurnsNormals(t *testing.T) {
	m, _ := newModel(t, 1, 1, 1)
	fill(t, m, "A")
	m.Transform = model.Transform{Rotation: [3]float32{0, 0, 90}, Scale: [3]float32{1, 1, 1}}
	out, _ := build(t, m)
	for i := 0; i < out.VertexCount(); i++ {
		n := out.Normals[i*3 : i*3+3]
		l := math32.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
		if !near(l, 1) {
			t.Fatalf("normal %v is not unit length", n)
		}
	}
}

func TestDirectionalLight(t *testing.T) {
	m, _ := newModel(t, 1, 1, 1)
	fill(t, m, "A")
	m.Lights = []model.Light{{Kind: model.Directional, Color: [3]float32{1, 1, 1}, Strength: 1, Direction: [3]float32{0, -1, 0}}}
	out, _ := build(t, m)
	for i := 0; i < out.VertexCount(); i++ {
		ny := out.Normals[i*3+1]
		r := out.Colors[i*3]
		switch {
		case ny > 0.5 && !near(r, 1):
			t.Errorf("lit top vertex has red %v", r)
		case ny < 0.5 && r != 0:
			t.Errorf("unlit vertex with normal y=%v has red %v", ny, r)
		}
	}
}

func TestTransparentSelfKeepsInnerFaces(t *testing.T) {
	m, _ := newModel(t, 2, 1, 1, func(mat *material.Material) { mat.Base.Opacity = 0.5 })
	fill(t, m, "A")
	_, b := build(t, m)
	if got := b.Stats().Faces; got != 12 {
		t.Errorf("faces = %d, want 12", got)
	}
}

func TestMapTransformStaysInDescriptor(t *testing.T) {
	tr := material.UVTransform{Repeat: [2]float32{4, 4}, Offset: [2]float32{0.5, 0}, Rotation: 30}
	m, _ := newModel(t, 2, 2, 2, func(mat *material.Material) {
		mat.Base.Maps.Map = &material.TextureRef{Name: "bricks", Transform: tr}
	})
	fill(t, m, "A")
	out, _ := build(t, m)

	for i, uv := range out.UVs {
		if uv < -1e-5 || uv > 1+1e-5 {
			t.Fatalf("uv component %d = %v, want the untransformed 0..1 projection", i, uv)
		}
	}
	g := out.Groups[0].MaterialIndex
	if len(out.Materials[g].Maps) != 1 {
		t.Fatalf("unexpected maps %+v", out.Materials[g].Maps)
	}
	d := out.Materials[g].Maps[0]
	if d.Slot != "map" || d.Texture != "bricks" {
		t.Errorf("descriptor = %+v, want the bricks map", d)
	}
	if d.Repeat != tr.Repeat || d.Offset != tr.Offset || d.Rotation != tr.Rotation {
		t.Errorf("descriptor transform = %+v, want %+v", d, tr)
	}
}

func TestFadeAveragesNeighborColors(t *testing.T) {
	m, _ := newModel(t, 2, 1, 1, func(mat *material.Material) {
		mat.Fade = true
		mat.Colors = append(mat.Colors, material.ColorDef{ID: "Ab", RGB: [3]uint8{0, 0, 255}})
	})
	if err := m.Set(0, 0, 0, "A"); err != nil {
		t.Fatal(err)
	}
	if err := m.Set(1, 0, 0, "Ab"); err != nil {
		t.Fatal(err)
	}
	out, _ := build(t, m)
	mixed := false
	for i := 0; i < len(out.Colors); i += 3 {
		if out.Colors[i] > 0 && out.Colors[i+2] > 0 {
			mixed = true
		}
	}
	if !mixed {
		t.Error("shared corners should blend red and blue")
	}
}

func TestCustomVertexData(t *testing.T) {
	m, mat := newModel(t, 1, 1, 1)
	fill(t, m, "A")
	m.Data = []model.DataField{{Name: "wind", Size: 2}}

	if _, err := model.NewBuilder(256).Build(m); !errors.Is(err, model.ErrDataSchema) {
		t.Fatalf("expected ErrDataSchema, got %v", err)
	}

	mat.Data = map[string][]float32{"wind": {0.5, 1}}
	out, _ := build(t, m)
	if got := len(out.Data["wind"]); got != out.VertexCount()*2 {
		t.Errorf("wind has %d floats for %d vertices", got, out.VertexCount())
	}
}

func TestUnknownColorUsesErrorMaterial(t *testing.T) {
	m, _ := newModel(t, 1, 1, 1)
	if err := m.Set(0, 0, 0, "Zz"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	out, _ := build(t, m)
	if len(out.Materials) != 2 || len(out.Groups) != 1 || out.Groups[0].MaterialIndex != 1 {
		t.Fatalf("expected the error material group, got %+v", out.Groups)
	}
	if out.Colors[0] != 1 || out.Colors[1] != 0 || out.Colors[2] != 1 {
		t.Errorf("error color = %v, want magenta", out.Colors[:3])
	}
}

func TestHashTracksContent(t *testing.T) {
	a, _ := newModel(t, 2, 2, 2)
	fill(t, a, "A")
	b, _ := newModel(t, 2, 2, 2)
	fill(t, b, "A")

	ha, err := a.Hash()
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	hb, _ := b.Hash()
	if ha != hb {
		t.Error("equal models should hash equal")
	}
	if err := b.Voxels.ClearAt(0, 0, 0); err != nil {
		t.Fatal(err)
	}
	hc, _ := b.Hash()
	if hc == ha {
		t.Error("changing a voxel should change the hash")
	}
	a.Shape = model.Sphere
	hd, _ := a.Hash()
	if hd == ha {
		t.Error("changing the shape should change the hash")
	}
}

func TestParseNames(t *testing.T) {
	if s, err := model.ParseShape("cylinder-z"); err != nil || s != model.CylinderZ {
		t.Errorf("ParseShape = %v, %v", s, err)
	}
	if _, err := model.ParseShape("cone"); !errors.Is(err, model.ErrInvalidShape) {
		t.Errorf("expected ErrInvalidShape, got %v", err)
	}
	if r, err := model.ParseResize("fit"); err != nil || r != model.ResizeFit {
		t.Errorf("ParseResize = %v, %v", r, err)
	}
	if _, err := model.ParseResize("stretch"); !errors.Is(err, model.ErrInvalidResize) {
		t.Errorf("expected ErrInvalidResize, got %v", err)
	}
}
