// Package tessellate builds batches of voxel models into meshes on a worker
// pool. Every task runs on its own model.Builder, so builds never share
// scratch state.
package tessellate

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/chazu/smoothvox/pkg/buffers"
	"github.com/chazu/smoothvox/pkg/mesh"
	"github.com/chazu/smoothvox/pkg/model"
)

// Cache stores built meshes by model content hash.
type Cache interface {
	Get(ctx context.Context, hash string) (*mesh.Mesh, bool, error)
	Put(ctx context.Context, hash, name string, m *mesh.Mesh) error
}

// Options configures a Tessellator.
type Options struct {
	// Workers is the pool size; zero means one per CPU.
	Workers int
	// MaxVerts caps every builder; zero sizes each builder for its model.
	MaxVerts int
	// Cache is consulted before building and filled afterwards. Optional.
	Cache Cache
}

// Result is the outcome for one model of a batch.
type Result struct {
	Name   string
	Hash   string
	Mesh   *mesh.Mesh
	Stats  model.Stats
	Cached bool
	Err    error
}

// Tessellator owns the worker pool.
type Tessellator struct {
	pool  pond.Pool
	opts  Options
	bufMu sync.Mutex
	idle  []*model.Builder
}

// New starts a pool.
func New(opts Options) *Tessellator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Tessellator{pool: pond.NewPool(opts.Workers), opts: opts}
}

// Close waits for running tasks and stops the pool.
func (t *Tessellator) Close() {
	t.pool.StopAndWait()
}

// Tessellate builds every model and returns one result per model in input
// order. A failing model does not stop the others.
func (t *Tessellator) Tessellate(ctx context.Context, models []*model.Model) []Result {
	start := time.Now()
	results := make([]Result, len(models))
	var wg sync.WaitGroup
	for i, m := range models {
		wg.Add(1)
		t.pool.Submit(func() {
			defer wg.Done()
			results[i] = t.buildOne(ctx, m)
		})
	}
	wg.Wait()

	var cached, failed int
	for _, r := range results {
		if r.Cached {
			cached++
		}
		if r.Err != nil {
			failed++
		}
	}
	slog.Debug("batch built",
		"models", len(models),
		"cached", cached,
		"failed", failed,
		"elapsed", time.Since(start))
	return results
}

func (t *Tessellator) buildOne(ctx context.Context, m *model.Model) Result {
	res := Result{Name: m.Name}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	if t.opts.Cache != nil {
		hash, err := m.Hash()
		if err != nil {
			slog.Warn("model hash failed", "model", m.Name, "error", err)
		} else {
			res.Hash = hash
			out, ok, err := t.opts.Cache.Get(ctx, hash)
			if err != nil {
				slog.Warn("cache lookup failed", "model", m.Name, "error", err)
			} else if ok {
				res.Mesh, res.Cached = out, true
				return res
			}
		}
	}

	b := t.builder(m)
	out, err := b.Build(m)
	res.Stats = b.Stats()
	t.release(b)
	if err != nil {
		res.Err = fmt.Errorf("tessellate: %w", err)
		return res
	}
	res.Mesh = out

	if t.opts.Cache != nil && res.Hash != "" {
		if err := t.opts.Cache.Put(ctx, res.Hash, m.Name, out); err != nil {
			slog.Warn("cache store failed", "model", m.Name, "error", err)
		}
	}
	return res
}

// builder returns an idle builder when every build shares one cap, or a
// builder sized for m.
func (t *Tessellator) builder(m *model.Model) *model.Builder {
	if t.opts.MaxVerts <= 0 {
		verts := min(max(m.Voxels.Count()*24, 64), buffers.DefaultMaxVerts)
		return model.NewBuilder(verts)
	}
	t.bufMu.Lock()
	defer t.bufMu.Unlock()
	if n := len(t.idle); n > 0 {
		b := t.idle[n-1]
		t.idle = t.idle[:n-1]
		return b
	}
	return model.NewBuilder(t.opts.MaxVerts)
}

func (t *Tessellator) release(b *model.Builder) {
	if t.opts.MaxVerts <= 0 {
		return
	}
	t.bufMu.Lock()
	t.idle = append(t.idle, b)
	t.bufMu.Unlock()
}
