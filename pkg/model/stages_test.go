package model

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/chazu/smoothvox/pkg/material"
	"github.com/chazu/smoothvox/pkg/voxels"
)

func TestFaceVisible(t *testing.T) {
	opaque := material.DefaultBase()
	glass := material.DefaultBase()
	glass.Opacity = 0.4
	wire := material.DefaultBase()
	wire.Wireframe = true
	glassWire := glass
	glassWire.Wireframe = true

	tests := []struct {
		name        string
		self, other material.Base
		hasNeighbor bool
		want        bool
	}{
		{"no neighbor", opaque, opaque, false, true},
		{"opaque against opaque", opaque, opaque, true, false},
		{"opaque against glass", opaque, glass, true, false},
		{"glass against opaque", glass, opaque, true, false},
		{"glass against glass", glass, glass, true, true},
		{"wire against opaque", wire, opaque, true, false},
		{"wire against wire", wire, wire, true, true},
		{"glass wire against opaque", glassWire, opaque, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := faceVisible(&tt.self, &tt.other, tt.hasNeighbor); got != tt.want {
				t.Errorf("faceVisible = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlanarApplies(t *testing.T) {
	bounds := box{lo: voxels.Point{X: -1, Y: -1, Z: -1}, hi: voxels.Point{X: 1, Y: 1, Z: 1}}
	top := voxels.Point{X: 0, Y: 1, Z: 0}
	mid := voxels.Point{}

	if !planarApplies(material.MustPlanar("y"), facePY, mid, bounds) {
		t.Error("axis flag should cover every face on the axis")
	}
	if planarApplies(material.MustPlanar("y"), facePX, mid, bounds) {
		t.Error("axis flag should not cover other axes")
	}
	if !planarApplies(material.MustPlanar("+y"), facePY, top, bounds) {
		t.Error("+y should cover the top boundary")
	}
	if planarApplies(material.MustPlanar("+y"), facePY, mid, bounds) {
		t.Error("+y should not cover interior voxels")
	}
	if planarApplies(material.MustPlanar("+y"), faceNY, top, bounds) {
		t.Error("+y should not cover -y faces")
	}
}

func TestFaceCornersWindOutward(t *testing.T) {
	for dir, corners := range faceCorners {
		var p [4]mgl32.Vec3
		for k, c := range corners {
			p[k] = mgl32.Vec3{float32(c[0]), float32(c[1]), float32(c[2])}
		}
		centroid := p[0].Add(p[1]).Add(p[2]).Add(p[3]).Mul(0.25)
		n := normalize(centroid.Sub(p[0]).Cross(p[3].Sub(p[0])))
		want := faceNormals[dir]
		for a := 0; a < 3; a++ {
			if n[a] != float32(want[a]) {
				t.Fatalf("%s: normal %v, want %v", faceNames[dir], n, want)
			}
		}
	}
}

func TestMergePairsShareCoordinates(t *testing.T) {
	for dir := 0; dir < 6; dir++ {
		for along := 0; along < 3; along++ {
			if dir/2 == along {
				continue
			}
			for _, p := range mergePairs(dir, along) {
				near, far := faceCorners[dir][p.near], faceCorners[dir][p.far]
				if near[along] != 0 || far[along] != 1 {
					t.Fatalf("%s along %d: pair %+v crosses the wrong side", faceNames[dir], along, p)
				}
				for a := 0; a < 3; a++ {
					if a != along && near[a] != far[a] {
						t.Fatalf("%s along %d: pair %+v not aligned", faceNames[dir], along, p)
					}
				}
			}
		}
	}
}

func TestNormalizeZero(t *testing.T) {
	if n := normalize(mgl32.Vec3{}); n != (mgl32.Vec3{}) {
		t.Errorf("normalize(0) = %v, want zero", n)
	}
	if n := normalize(mgl32.Vec3{0, 3, 4}); math32.Abs(n.Len()-1) > 1e-6 || math32.Abs(n[2]-0.8) > 1e-6 {
		t.Errorf("normalize = %v, want (0, 0.6, 0.8)", n)
	}
}

func TestOnSegment(t *testing.T) {
	start, end := mgl32.Vec3{0, 0, 0}, mgl32.Vec3{2, 0, 0}
	if !onSegment(start, mgl32.Vec3{1, 0, 0}, end) {
		t.Error("midpoint should be on the segment")
	}
	if onSegment(start, mgl32.Vec3{1, 0.01, 0}, end) {
		t.Error("offset point should not be on the segment")
	}
	if onSegment(start, mgl32.Vec3{3, 0, 0}, end) {
		t.Error("point past the end should not be on the segment")
	}
	if onSegment(start, start, start) {
		t.Error("degenerate segment should not match")
	}
}

func TestTriangleIntersect(t *testing.T) {
	tri := newTriangle(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0})
	d, ok := tri.intersect(v3.Vec{X: 0.2, Y: 0.2, Z: 1}, v3.Vec{Z: -1})
	if !ok || math32.Abs(float32(d)-1) > 1e-6 {
		t.Errorf("intersect = %v, %v, want 1, true", d, ok)
	}
	if _, ok := tri.intersect(v3.Vec{X: 2, Y: 2, Z: 1}, v3.Vec{Z: -1}); ok {
		t.Error("ray outside the triangle should miss")
	}
	if _, ok := tri.intersect(v3.Vec{X: 0.2, Y: 0.2, Z: 1}, v3.Vec{X: 1}); ok {
		t.Error("parallel ray should miss")
	}
}

func TestLightFactor(t *testing.T) {
	up := mgl32.Vec3{0, 1, 0}
	sun := Light{Kind: Directional, Direction: [3]float32{0, -2, 0}}
	if f := lightFactor(sun, mgl32.Vec3{}, up); f != 1 {
		t.Errorf("directional facing = %v, want 1", f)
	}
	if f := lightFactor(sun, mgl32.Vec3{}, mgl32.Vec3{0, -1, 0}); f != 0 {
		t.Errorf("directional away = %v, want 0", f)
	}
	bulb := Light{Kind: Point, Position: [3]float32{0, 2, 0}, Distance: 4}
	if f := lightFactor(bulb, mgl32.Vec3{}, up); math32.Abs(f-0.5) > 1e-6 {
		t.Errorf("point falloff = %v, want 0.5", f)
	}
	if f := lightFactor(Light{Kind: Ambient}, mgl32.Vec3{}, up); f != 1 {
		t.Errorf("ambient = %v, want 1", f)
	}
}

func TestNoiseIsZeroOnLattice(t *testing.T) {
	for _, p := range [][3]float32{{0, 0, 0}, {1, 2, 3}, {-4, 7, 2}} {
		if n := defaultNoise.At(p[0], p[1], p[2]); n != 0 {
			t.Errorf("noise at %v = %v, want 0", p, n)
		}
	}
	for x := float32(0.1); x < 5; x += 0.37 {
		if n := defaultNoise.At(x, x*0.5, x*0.25); n < -1.01 || n > 1.01 {
			t.Fatalf("noise %v out of range", n)
		}
	}
}

func TestDirectionsFillCone(t *testing.T) {
	b := NewBuilder(64)
	dirs := b.directions(20, 70)
	cosA := math32.Cos(70 * math32.Pi / 180)
	inCone := 0
	for _, d := range dirs {
		if float32(d.Y) > cosA {
			inCone++
		}
	}
	if inCone < 16 || inCone > 24 {
		t.Errorf("%d of %d directions inside the cone, want about 20", inCone, len(dirs))
	}
	if again := b.directions(20, 70); &again[0] != &dirs[0] {
		t.Error("directions should be cached per sample count and angle")
	}
}

func TestWeldKeepsStrongestChoice(t *testing.T) {
	flatY, clampZ := material.MustPlanar("y"), material.MustPlanar("z")
	gentle := func() *material.Material {
		mat := material.New("gentle")
		mat.Colors = []material.ColorDef{{ID: "G", RGB: [3]uint8{0, 200, 0}}}
		mat.Deform = material.Deform{Count: 1, Strength: 0.5, Damping: 1}
		mat.Scatter = 0.3
		mat.Flatten = &flatY
		return mat
	}
	strong := func() *material.Material {
		mat := material.New("strong")
		mat.Colors = []material.ColorDef{{ID: "S", RGB: [3]uint8{200, 0, 0}}}
		mat.Deform = material.Deform{Count: 3, Strength: 0.5, Damping: 1}
		mat.Scatter = 0.1
		mat.Clamp = &clampZ
		return mat
	}

	tests := []struct {
		name           string
		gentle, strong material.Warp
		want           material.Warp
	}{
		{"higher amplitude wins", material.Warp{Amplitude: 0.3, Frequency: 1}, material.Warp{Amplitude: 0.2, Frequency: 2}, material.Warp{Amplitude: 0.3, Frequency: 1}},
		{"tie goes to frequency", material.Warp{Amplitude: 0.2, Frequency: 1}, material.Warp{Amplitude: 0.2, Frequency: 2}, material.Warp{Amplitude: 0.2, Frequency: 2}},
	}
	for _, tt := range tests {
		for _, gentleX := range []int{0, 1} {
			t.Run(tt.name, func(t *testing.T) {
				m, err := New("weld", voxels.Size{X: 2, Y: 1, Z: 1})
				if err != nil {
					t.Fatalf("New failed: %v", err)
				}
				g, s := gentle(), strong()
				g.Warp, s.Warp = tt.gentle, tt.strong
				if err := m.Materials.Add(g); err != nil {
					t.Fatalf("Add failed: %v", err)
				}
				if err := m.Materials.Add(s); err != nil {
					t.Fatalf("Add failed: %v", err)
				}
				if err := m.Set(gentleX, 0, 0, "G"); err != nil {
					t.Fatalf("Set failed: %v", err)
				}
				if err := m.Set(1-gentleX, 0, 0, "S"); err != nil {
					t.Fatalf("Set failed: %v", err)
				}

				b := NewBuilder(256)
				b.reset(m)
				if err := b.createFaces(); err != nil {
					t.Fatalf("createFaces failed: %v", err)
				}
				buf := b.buf
				shared := 0
				for v := 0; v < buf.VertCount; v++ {
					x := buf.VertX[v]
					if x == float32(gentleX*2) {
						// Outer corners of the gentle voxel keep its own settings.
						if buf.VertDeformCount[v] != 1 || buf.VertScatter[v] != 0.3 || buf.VertClamp.Get(v*3+2) {
							t.Errorf("outer vertex %d took the neighbor's settings", v)
						}
					}
					if x != 1 {
						continue
					}
					shared++
					if buf.VertDeformCount[v] != 3 || buf.VertDeformStrength[v] != 0.5 || buf.VertDeformDamping[v] != 1 {
						t.Errorf("vertex %d deform = %d/%v/%v, want the larger integral",
							v, buf.VertDeformCount[v], buf.VertDeformStrength[v], buf.VertDeformDamping[v])
					}
					got := material.Warp{Amplitude: buf.VertWarpAmplitude[v], Frequency: buf.VertWarpFrequency[v]}
					if got != tt.want {
						t.Errorf("vertex %d warp = %+v, want %+v", v, got, tt.want)
					}
					if buf.VertScatter[v] != 0.3 {
						t.Errorf("vertex %d scatter = %v, want 0.3", v, buf.VertScatter[v])
					}
					if !buf.VertFlatten.Get(v*3+1) || !buf.VertClamp.Get(v*3+2) {
						t.Errorf("vertex %d should carry both flatten y and clamp z", v)
					}
				}
				if shared != 4 {
					t.Fatalf("shared vertices = %d, want 4", shared)
				}
			})
		}
	}
}
