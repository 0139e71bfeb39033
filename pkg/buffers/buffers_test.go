package buffers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSizesFacesFromVerts(t *testing.T) {
	b := New(64)
	assert.Equal(t, 64, b.MaxVerts)
	assert.Equal(t, 16, b.MaxFaces)
	assert.Len(t, b.FaceVerts, 64)
	assert.Len(t, b.FaceNormals, 64*3)
	assert.Len(t, b.FaceUVs, 64*2)

	d := New(0)
	assert.Equal(t, DefaultMaxVerts, d.MaxVerts)
}

func TestCapacityIsAnError(t *testing.T) {
	b := New(8)
	for i := 0; i < 8; i++ {
		_, err := b.AddVertex(float32(i), 0, 0)
		require.NoError(t, err)
	}
	_, err := b.AddVertex(0, 0, 0)
	assert.ErrorIs(t, err, ErrCapacity)

	for i := 0; i < 2; i++ {
		_, err := b.AddFace(0, 0, 0, 0, 0)
		require.NoError(t, err)
	}
	_, err = b.AddFace(0, 0, 0, 0, 0)
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestResetZeroesInPlace(t *testing.T) {
	b := New(16)
	vx := &b.VertX[0]

	v, err := b.AddVertex(1, 2, 3)
	require.NoError(t, err)
	f, err := b.AddFace(3, 5, 1, 2, 3)
	require.NoError(t, err)
	b.FaceNormals[f*12] = 1
	b.Culled.Set(f, true)
	b.VertFlatten.Set(v*3+1, true)
	b.Link(v, 7)
	b.AddFade(v, 1, 1, 1)

	b.Reset()
	assert.Same(t, vx, &b.VertX[0], "Reset must not reallocate")
	assert.Zero(t, b.VertCount)
	assert.Zero(t, b.FaceCount)
	assert.Zero(t, b.NonCulledFaceCount)
	assert.Zero(t, b.VertX[0])
	assert.Zero(t, b.FaceNormals[0])
	assert.Zero(t, b.FaceMaterial[0])
	assert.False(t, b.Culled.Get(0))
	assert.False(t, b.VertFlatten.Get(1))
	assert.Empty(t, b.Links(0))
	_, _, _, ok := b.Fade(0)
	assert.False(t, ok)
}

func TestLinksDeduplicateAndCap(t *testing.T) {
	b := New(16)
	for i := 0; i < 10; i++ {
		b.Link(0, i%8)
		b.Link(0, i%8)
	}
	assert.Len(t, b.Links(0), MaxLinks)
	assert.Equal(t, []int32{0, 1, 2, 3, 4, 5}, b.Links(0))
}

func TestFadeAverages(t *testing.T) {
	b := New(4)
	b.AddFade(1, 1, 0, 0)
	b.AddFade(1, 0, 1, 0)
	r, g, bl, ok := b.Fade(1)
	require.True(t, ok)
	assert.InDelta(t, 0.5, r, 1e-6)
	assert.InDelta(t, 0.5, g, 1e-6)
	assert.InDelta(t, 0, bl, 1e-6)
}

func TestCullCountsOnce(t *testing.T) {
	b := New(16)
	for i := 0; i < 3; i++ {
		_, err := b.AddFace(0, uint8(i), 0, 0, 0)
		require.NoError(t, err)
	}
	b.Cull(1)
	b.Cull(1)
	assert.Equal(t, 2, b.NonCulledFaceCount)
	assert.True(t, b.Culled.Get(1))
}
