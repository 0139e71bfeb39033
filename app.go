package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/chazu/smoothvox/pkg/cache"
	"github.com/chazu/smoothvox/pkg/config"
	"github.com/chazu/smoothvox/pkg/engine"
	"github.com/chazu/smoothvox/pkg/export"
	"github.com/chazu/smoothvox/pkg/mesh"
	"github.com/chazu/smoothvox/pkg/tessellate"
)

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx    context.Context
	engine *engine.Engine
	tess   *tessellate.Tessellator
	cache  *cache.Cache

	mu   sync.Mutex
	last []*mesh.Mesh
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	*mesh.Mesh
	Cached    bool `json:"cached"`
	Faces     int  `json:"faces"`
	Triangles int  `json:"triangles"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp creates an App with the default configuration and no mesh cache.
func NewApp() *App {
	app, err := NewAppWithConfig(config.Default())
	if err != nil {
		// The default config is valid and opens no cache.
		panic(err)
	}
	return app
}

// NewAppWithConfig creates an App from cfg, opening the mesh cache when
// cfg names one.
func NewAppWithConfig(cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	eng := engine.NewEngine()
	eng.SetDefaultAO(cfg.DefaultAO())

	opts := tessellate.Options{Workers: cfg.Workers, MaxVerts: cfg.MaxVerts}
	var c *cache.Cache
	if cfg.CachePath != "" {
		var err error
		c, err = cache.Open(cfg.CachePath)
		if err != nil {
			return nil, err
		}
		if age := cfg.CacheMaxAge.Duration; age > 0 {
			n, err := c.Prune(context.Background(), time.Now().Add(-age))
			if err != nil {
				log.Printf("cache prune error: %v", err)
			} else if n > 0 {
				log.Printf("pruned %d cached meshes older than %s", n, age)
			}
		}
		opts.Cache = c
	}
	return &App{
		engine: eng,
		tess:   tessellate.New(opts),
		cache:  c,
	}, nil
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later if needed.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// shutdown stops the worker pool and closes the cache.
func (a *App) shutdown(ctx context.Context) {
	a.tess.Close()
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Printf("cache close error: %v", err)
		}
	}
}

func (a *App) context() context.Context {
	if a.ctx != nil {
		return a.ctx
	}
	return context.Background()
}

// Evaluate takes Lisp source and returns mesh data + errors.
// This is the primary binding called by the frontend editor.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	// Step 1: Evaluate the Lisp source into a scene of models.
	sc, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	// Step 2: Convert eval errors to the frontend format.
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}
	for _, w := range sc.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{
			Line:    w.Line,
			Col:     w.Col,
			Message: w.Message,
			Model:   w.Model,
		})
	}

	// Step 3: Build every model. A model that fails to build is reported
	// and the rest still render.
	var meshes []*mesh.Mesh
	for _, r := range a.tess.Tessellate(a.context(), sc.Models) {
		if r.Err != nil {
			log.Printf("Tessellate error: %v", r.Err)
			result.Errors = append(result.Errors, EvalErrorData{
				Message: "build failed: " + r.Err.Error(),
				Model:   r.Name,
			})
			continue
		}
		meshes = append(meshes, r.Mesh)
		result.Meshes = append(result.Meshes, MeshData{
			Mesh:      r.Mesh,
			Cached:    r.Cached,
			Faces:     r.Stats.NonCulledFaces,
			Triangles: r.Mesh.TriangleCount(),
		})
	}

	a.mu.Lock()
	a.last = meshes
	a.mu.Unlock()
	return result
}

// ExportSTL writes the meshes of the last successful evaluation to path.
func (a *App) ExportSTL(path string) error {
	a.mu.Lock()
	meshes := a.last
	a.mu.Unlock()
	if len(meshes) == 0 {
		return errors.New("nothing to export: evaluate a script first")
	}
	if err := export.SaveSTL(path, meshes...); err != nil {
		log.Printf("ExportSTL error: %v", err)
		return err
	}
	log.Printf("exported %d meshes to %s", len(meshes), path)
	return nil
}

// ExportSTLDialog asks for a destination and exports there. An empty
// path means the user cancelled.
func (a *App) ExportSTLDialog() (string, error) {
	path, err := runtime.SaveFileDialog(a.context(), runtime.SaveDialogOptions{
		Title:           "Export STL",
		DefaultFilename: "scene.stl",
		Filters:         []runtime.FileFilter{{DisplayName: "STL files", Pattern: "*.stl"}},
	})
	if err != nil || path == "" {
		return "", err
	}
	return path, a.ExportSTL(path)
}
