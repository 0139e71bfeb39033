package tessellate_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/chazu/smoothvox/pkg/buffers"
	"github.com/chazu/smoothvox/pkg/material"
	"github.com/chazu/smoothvox/pkg/mesh"
	"github.com/chazu/smoothvox/pkg/model"
	"github.com/chazu/smoothvox/pkg/tessellate"
	"github.com/chazu/smoothvox/pkg/voxels"
)

// makeCube creates an n*n*n model filled with one color, smoothed a little
// so the build exercises every stage.
func makeCube(t *testing.T, name string, n int) *model.Model {
	t.Helper()
	m, err := model.New(name, voxels.Size{X: n, Y: n, Z: n})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	mat := material.New("m")
	mat.Colors = []material.ColorDef{{ID: "A", RGB: [3]uint8{200, 100, 50}}}
	mat.Deform = material.Deform{Count: 2, Strength: 0.5, Damping: 1}
	if err := m.Materials.Add(mat); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	m.AO = &material.AO{MaxDistance: 1, Strength: 1, Angle: 70, Samples: 8}
	lo, hi := m.Voxels.Min(), m.Voxels.Max()
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				if err := m.Set(x, y, z, "A"); err != nil {
					t.Fatalf("Set failed: %v", err)
				}
			}
		}
	}
	return m
}

// memCache is a map-backed cache for tests.
type memCache struct {
	mu     sync.Mutex
	meshes map[string]*mesh.Mesh
	puts   int
}

func newMemCache() *memCache { return &memCache{meshes: make(map[string]*mesh.Mesh)} }

func (c *memCache) Get(_ context.Context, hash string) (*mesh.Mesh, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.meshes[hash]
	return m, ok, nil
}

func (c *memCache) Put(_ context.Context, hash, _ string, m *mesh.Mesh) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meshes[hash] = m
	c.puts++
	return nil
}

func TestBatchMatchesSequentialBuilds(t *testing.T) {
	var models []*model.Model
	for i := 1; i <= 6; i++ {
		models = append(models, makeCube(t, fmt.Sprintf("cube-%d", i), i))
	}

	tess := tessellate.New(tessellate.Options{Workers: 4})
	defer tess.Close()
	results := tess.Tessellate(context.Background(), models)

	if len(results) != len(models) {
		t.Fatalf("expected %d results, got %d", len(models), len(results))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("%s: %v", r.Name, r.Err)
		}
		if r.Name != models[i].Name {
			t.Errorf("result %d is %q, want %q", i, r.Name, models[i].Name)
		}
		want, err := model.Build(models[i])
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if !reflect.DeepEqual(r.Mesh, want) {
			t.Errorf("%s: concurrent build differs from sequential build", r.Name)
		}
		if r.Stats.Faces == 0 {
			t.Errorf("%s: stats not recorded", r.Name)
		}
	}
}

func TestSharedBuilderCap(t *testing.T) {
	models := []*model.Model{makeCube(t, "a", 2), makeCube(t, "b", 3), makeCube(t, "c", 2)}
	tess := tessellate.New(tessellate.Options{Workers: 2, MaxVerts: 1024})
	defer tess.Close()

	for round := 0; round < 3; round++ {
		for _, r := range tess.Tessellate(context.Background(), models) {
			if r.Err != nil {
				t.Fatalf("round %d: %s: %v", round, r.Name, r.Err)
			}
		}
	}
}

func TestFailuresAreIsolated(t *testing.T) {
	models := []*model.Model{makeCube(t, "small", 1), makeCube(t, "big", 5)}
	tess := tessellate.New(tessellate.Options{Workers: 2, MaxVerts: 64})
	defer tess.Close()

	results := tess.Tessellate(context.Background(), models)
	if results[0].Err != nil || results[0].Mesh.IsEmpty() {
		t.Errorf("small model should build: %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, buffers.ErrCapacity) {
		t.Errorf("big model should hit capacity, got %v", results[1].Err)
	}
}

func TestCacheHits(t *testing.T) {
	cache := newMemCache()
	models := []*model.Model{makeCube(t, "a", 2), makeCube(t, "b", 3)}
	tess := tessellate.New(tessellate.Options{Workers: 2, Cache: cache})
	defer tess.Close()

	first := tess.Tessellate(context.Background(), models)
	for _, r := range first {
		if r.Err != nil || r.Cached || r.Hash == "" {
			t.Fatalf("first pass %s: cached=%v hash=%q err=%v", r.Name, r.Cached, r.Hash, r.Err)
		}
	}
	second := tess.Tessellate(context.Background(), models)
	for i, r := range second {
		if !r.Cached {
			t.Errorf("second pass %s should come from the cache", r.Name)
		}
		if r.Mesh != first[i].Mesh {
			t.Errorf("%s: cached mesh differs", r.Name)
		}
	}
	if cache.puts != 2 {
		t.Errorf("puts = %d, want 2", cache.puts)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tess := tessellate.New(tessellate.Options{Workers: 1})
	defer tess.Close()

	for _, r := range tess.Tessellate(ctx, []*model.Model{makeCube(t, "a", 2)}) {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", r.Err)
		}
	}
}
