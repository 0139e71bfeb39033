package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"

	"github.com/chazu/smoothvox/pkg/material"
)

// Hash returns a content hash of everything that affects the built mesh.
// Equal hashes build equal meshes.
func (m *Model) Hash() (string, error) {
	h := sha256.New()
	raw, err := m.Voxels.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("model %q: %w", m.Name, err)
	}
	h.Write(raw)
	fmt.Fprintf(h, "|%s|%d|%d|%v|%d|%d|%d|%d|%d|%d|%d",
		m.Name, m.Shape, m.Resize, m.Transform, m.Origin, m.Flatten, m.Clamp, m.Skip, m.Tile, m.AOSides, m.Seed)
	writeAO(h, m.AO)
	fmt.Fprintf(h, "|%v|%v", m.Lights, m.Data)
	for _, mat := range m.Materials.All() {
		fmt.Fprintf(h, "|%s|%s|%d|%v|%v|%g|%t|%t|%t",
			mat.Name, material.HashBase(mat.Shared()), mat.Lighting, mat.Deform, mat.Warp, mat.Scatter,
			mat.Lights, mat.Fade, mat.NoSimplify)
		for _, p := range []*material.Planar{mat.Flatten, mat.Clamp, mat.Skip} {
			if p == nil {
				h.Write([]byte("|-"))
			} else {
				fmt.Fprintf(h, "|%d", *p)
			}
		}
		writeAO(h, mat.AO)
		names := make([]string, 0, len(mat.Data))
		for name := range mat.Data {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(h, "|%s=%v", name, mat.Data[name])
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeAO(h hash.Hash, ao *material.AO) {
	if ao == nil {
		h.Write([]byte("|noao"))
		return
	}
	fmt.Fprintf(h, "|%v", *ao)
}
