package model

import (
	"math/rand"

	"github.com/chewxy/math32"
)

// noise is classic 3-D gradient noise over a fixed permutation table.
type noise struct {
	perm [512]uint8
}

var gradients = [12][3]float32{
	{1, 1, 0}, {-1, 1, 0}, {1, -1, 0}, {-1, -1, 0},
	{1, 0, 1}, {-1, 0, 1}, {1, 0, -1}, {-1, 0, -1},
	{0, 1, 1}, {0, -1, 1}, {0, 1, -1}, {0, -1, -1},
}

func newNoise(seed int64) *noise {
	n := &noise{}
	p := rand.New(rand.NewSource(seed)).Perm(256)
	for i := 0; i < 512; i++ {
		n.perm[i] = uint8(p[i&255])
	}
	return n
}

// defaultNoise is shared by all builds so warps do not depend on the model
// seed.
var defaultNoise = newNoise(0)

func fade(t float32) float32 { return t * t * t * (t*(t*6-15) + 10) }

func lerp(t, a, b float32) float32 { return a + t*(b-a) }

func (n *noise) grad(h uint8, x, y, z float32) float32 {
	g := gradients[h%12]
	return g[0]*x + g[1]*y + g[2]*z
}

// At returns the noise value at (x, y, z), roughly in -1..1.
func (n *noise) At(x, y, z float32) float32 {
	fx, fy, fz := math32.Floor(x), math32.Floor(y), math32.Floor(z)
	xi, yi, zi := int(fx)&255, int(fy)&255, int(fz)&255
	x, y, z = x-fx, y-fy, z-fz
	u, v, w := fade(x), fade(y), fade(z)

	p := &n.perm
	a := int(p[xi]) + yi
	aa, ab := int(p[a])+zi, int(p[a+1])+zi
	bb := int(p[xi+1]) + yi
	ba, bb2 := int(p[bb])+zi, int(p[bb+1])+zi

	return lerp(w,
		lerp(v,
			lerp(u, n.grad(p[aa], x, y, z), n.grad(p[ba], x-1, y, z)),
			lerp(u, n.grad(p[ab], x, y-1, z), n.grad(p[bb2], x-1, y-1, z))),
		lerp(v,
			lerp(u, n.grad(p[aa+1], x, y, z-1), n.grad(p[ba+1], x-1, y, z-1)),
			lerp(u, n.grad(p[ab+1], x, y-1, z-1), n.grad(p[bb2+1], x-1, y-1, z-1))))
}
