package voxels

// Chunk algebra: a store used as an edit (a "chunk") is composited onto a
// target store at an integer offset. RemoveColor cells in a chunk clear the
// target cell instead of painting it.

// ApplyToChunk paints every filled cell of s onto target, translated by
// offset. The target grows as needed up to MaxSize per axis; cells that
// still fall outside are dropped.
func (s *Store) ApplyToChunk(target *Store, offset Point) error {
	if err := target.growToInclude(s, offset); err != nil {
		return err
	}
	var err error
	s.ForEach(func(p Point, c Color) bool {
		q := p.Add(offset)
		if !target.InBounds(q.X, q.Y, q.Z) {
			return true
		}
		if c == RemoveColor {
			err = target.ClearAt(q.X, q.Y, q.Z)
		} else {
			_, err = target.SetColorAt(q.X, q.Y, q.Z, c)
		}
		return err == nil
	})
	return err
}

// CreateInverse returns a chunk that undoes ApplyToChunk(target, offset)
// when applied at the same offset afterwards. It must be called before the
// chunk is applied.
func (s *Store) CreateInverse(target *Store, offset Point) (*Store, error) {
	inv, err := NewStore(s.size)
	if err != nil {
		return nil, err
	}
	s.ForEach(func(p Point, _ Color) bool {
		q := p.Add(offset)
		prev, ok := target.ColorAt(q.X, q.Y, q.Z)
		if !ok {
			prev = RemoveColor
		}
		_, err = inv.SetColorAt(p.X, p.Y, p.Z, prev)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// MergeWith composites other onto s at offset. Where both stores hold a
// voxel, s keeps its own when targetAlwaysWins is set; otherwise the color
// with the larger packed value wins. The tie-break only depends on the
// colors, so repeated merges of the same inputs agree. RemoveColor cells of
// other clear s unless s keeps its own voxel, and never take part in the
// tie-break.
func (s *Store) MergeWith(other *Store, offset Point, targetAlwaysWins bool) error {
	if err := s.growToInclude(other, offset); err != nil {
		return err
	}
	var err error
	other.ForEach(func(p Point, c Color) bool {
		q := p.Add(offset)
		if !s.InBounds(q.X, q.Y, q.Z) {
			return true
		}
		cur, ok := s.ColorAt(q.X, q.Y, q.Z)
		if c == RemoveColor {
			if !ok || targetAlwaysWins {
				return true
			}
			err = s.ClearAt(q.X, q.Y, q.Z)
			return err == nil
		}
		if ok && (targetAlwaysWins || (cur != RemoveColor && cur >= c)) {
			return true
		}
		_, err = s.SetColorAt(q.X, q.Y, q.Z, c)
		return err == nil
	})
	return err
}

// FilterByChunk returns a copy of s holding only the cells covered by a
// filled cell of mask, where mask cell p lines up with s cell p+offset.
func (s *Store) FilterByChunk(mask *Store, offset Point) (*Store, error) {
	out, err := NewStore(s.size)
	if err != nil {
		return nil, err
	}
	mask.ForEach(func(p Point, _ Color) bool {
		q := p.Add(offset)
		if c, ok := s.ColorAt(q.X, q.Y, q.Z); ok {
			_, err = out.SetColorAt(q.X, q.Y, q.Z, c)
		}
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// growToInclude resizes s so the painting cells of chunk, translated by
// offset, fit, capped at MaxSize. RemoveColor cells never grow s.
func (s *Store) growToInclude(chunk *Store, offset Point) error {
	lo, hi, ok := chunk.paintBounds()
	if !ok {
		return nil
	}
	lo, hi = lo.Add(offset), hi.Add(offset)
	next := Size{
		X: sizeToInclude(s.size.X, lo.X, hi.X),
		Y: sizeToInclude(s.size.Y, lo.Y, hi.Y),
		Z: sizeToInclude(s.size.Z, lo.Z, hi.Z),
	}
	return s.ResizeTo(next)
}

// sizeToInclude returns the smallest extent >= n whose centered range
// covers [lo, hi], or MaxSize when none does.
func sizeToInclude(n, lo, hi int) int {
	for ; n < MaxSize; n++ {
		sh := Shift(n)
		if -sh <= lo && n-sh-1 >= hi {
			return n
		}
	}
	return MaxSize
}

// paintBounds is Bounds over the cells that hold a color other than
// RemoveColor.
func (s *Store) paintBounds() (lo, hi Point, ok bool) {
	s.ForEach(func(p Point, c Color) bool {
		if c == RemoveColor {
			return true
		}
		if !ok {
			lo, hi, ok = p, p, true
			return true
		}
		lo = Point{X: min(lo.X, p.X), Y: min(lo.Y, p.Y), Z: min(lo.Z, p.Z)}
		hi = Point{X: max(hi.X, p.X), Y: max(hi.Y, p.Y), Z: max(hi.Z, p.Z)}
		return true
	})
	return lo, hi, ok
}
