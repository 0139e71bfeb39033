// Package cache persists built meshes in a sqlite database, keyed by the
// content hash of the model that produced them.
package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chazu/smoothvox/pkg/mesh"
)

// FormatVersion is bumped whenever the encoded mesh layout changes. Rows
// written with another version are treated as misses.
const FormatVersion = 1

// MeshRow is one cached mesh.
type MeshRow struct {
	Hash      string `gorm:"primaryKey"`
	Name      string `gorm:"index"`
	Version   int
	Data      []byte // gob, then zstd
	Vertices  int
	Triangles int
	CreatedAt time.Time
	UsedAt    time.Time `gorm:"index"`
}

// Cache is a sqlite-backed mesh store. It is safe for concurrent use.
type Cache struct {
	db *gorm.DB
}

// Open opens (or creates) the cache database at path and migrates it.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	// sqlite allows one writer; batch workers share this handle.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&MeshRow{}); err != nil {
		return nil, fmt.Errorf("cache: migrate: %w", err)
	}
	slog.Debug("cache opened", "path", path)
	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return sqlDB.Close()
}

// Get returns the mesh stored under hash. A missing or stale row is a miss,
// not an error.
func (c *Cache) Get(ctx context.Context, hash string) (*mesh.Mesh, bool, error) {
	var row MeshRow
	err := c.db.WithContext(ctx).First(&row, "hash = ?", hash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get %s: %w", hash, err)
	}
	if row.Version != FormatVersion {
		return nil, false, nil
	}
	m, err := decodeMesh(row.Data)
	if err != nil {
		return nil, false, fmt.Errorf("cache: decode %s: %w", hash, err)
	}
	if err := c.db.WithContext(ctx).Model(&MeshRow{}).Where("hash = ?", hash).Update("used_at", time.Now()).Error; err != nil {
		slog.Warn("cache touch failed", "hash", hash, "error", err)
	}
	return m, true, nil
}

// Put stores m under hash, replacing any previous row.
func (c *Cache) Put(ctx context.Context, hash, name string, m *mesh.Mesh) error {
	data, err := encodeMesh(m)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", name, err)
	}
	now := time.Now()
	row := MeshRow{
		Hash:      hash,
		Name:      name,
		Version:   FormatVersion,
		Data:      data,
		Vertices:  m.VertexCount(),
		Triangles: m.TriangleCount(),
		CreatedAt: now,
		UsedAt:    now,
	}
	if err := c.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("cache: put %s: %w", name, err)
	}
	slog.Debug("mesh cached", "name", name, "hash", hash, "bytes", len(data))
	return nil
}

// Len returns the number of cached meshes.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int64
	if err := c.db.WithContext(ctx).Model(&MeshRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("cache: count: %w", err)
	}
	return int(n), nil
}

// Prune deletes rows not used since before and returns how many went.
func (c *Cache) Prune(ctx context.Context, before time.Time) (int, error) {
	res := c.db.WithContext(ctx).Where("used_at < ?", before).Delete(&MeshRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("cache: prune: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		slog.Debug("cache pruned", "rows", res.RowsAffected)
	}
	return int(res.RowsAffected), nil
}

var encoders = sync.Pool{
	New: func() any {
		enc, _ := zstd.NewWriter(nil)
		return enc
	},
}

var decoders = sync.Pool{
	New: func() any {
		dec, _ := zstd.NewReader(nil)
		return dec
	},
}

func encodeMesh(m *mesh.Mesh) ([]byte, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(m); err != nil {
		return nil, err
	}
	enc := encoders.Get().(*zstd.Encoder)
	defer encoders.Put(enc)
	return enc.EncodeAll(raw.Bytes(), nil), nil
}

func decodeMesh(data []byte) (*mesh.Mesh, error) {
	dec := decoders.Get().(*zstd.Decoder)
	defer decoders.Put(dec)
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	var m mesh.Mesh
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}
