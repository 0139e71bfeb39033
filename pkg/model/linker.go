package model

// linkVertices connects every face corner to its two neighbors along the
// face edges. A vertex clamped on an axis only links to neighbors clamped
// on the same axis, so clamped outlines stay in their plane.
func (b *Builder) linkVertices() {
	buf := b.buf
	for f := 0; f < buf.FaceCount; f++ {
		for k := 0; k < 4; k++ {
			v := int(buf.FaceVerts[f*4+k])
			prev := int(buf.FaceVerts[f*4+(k+3)%4])
			next := int(buf.FaceVerts[f*4+(k+1)%4])
			if b.mayLink(v, prev) {
				buf.Link(v, prev)
			}
			if b.mayLink(v, next) {
				buf.Link(v, next)
			}
		}
	}
}

func (b *Builder) mayLink(v, to int) bool {
	clamp := b.buf.VertClamp
	for a := 0; a < 3; a++ {
		if clamp.Get(v*3+a) && !clamp.Get(to*3+a) {
			return false
		}
	}
	return true
}
