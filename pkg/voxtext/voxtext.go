// Package voxtext reads and writes the run-length voxel matrix used by
// model descriptions and scripts.
//
// A matrix is a sequence of items. An item is an optional repeat count
// followed by a color id (an uppercase letter and any lowercase letters),
// '-' for an empty cell, or a parenthesized group. Whitespace is ignored.
// Cells run x fastest, then y, then z.
package voxtext

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/chazu/smoothvox/pkg/voxels"
)

var (
	ErrSyntax     = errors.New("voxtext: syntax error")
	ErrVoxelCount = errors.New("voxtext: voxel count does not match size")
	ErrColorID    = errors.New("voxtext: malformed color id")
)

// Empty is the id of an empty cell.
const Empty = ""

type parser struct {
	src   string
	pos   int
	out   []string
	limit int
}

// Decode expands src into one color id per cell of size. Empty cells are
// Empty. The expansion must produce exactly size.Volume() cells.
func Decode(src string, size voxels.Size) ([]string, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("voxtext: %w: %s", voxels.ErrSize, size)
	}
	n := size.Volume()
	p := &parser{src: src, limit: n, out: make([]string, 0, n)}
	if err := p.sequence(0); err != nil {
		return nil, err
	}
	if len(p.out) != n {
		return nil, fmt.Errorf("%w: got %d cells, want %d for %s", ErrVoxelCount, len(p.out), n, size)
	}
	return p.out, nil
}

func (p *parser) errorf(err error, format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", err, p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && strings.IndexByte(" \t\r\n", p.src[p.pos]) >= 0 {
		p.pos++
	}
}

// sequence parses items up to the end of input or, inside a group, up to
// the closing parenthesis, which is left unconsumed.
func (p *parser) sequence(depth int) error {
	for {
		p.skipSpace()
		switch p.peek() {
		case 0:
			if depth > 0 {
				return p.errorf(ErrSyntax, "unclosed group")
			}
			return nil
		case ')':
			if depth == 0 {
				return p.errorf(ErrSyntax, "unexpected ')'")
			}
			return nil
		}
		if err := p.item(depth); err != nil {
			return err
		}
	}
}

func (p *parser) item(depth int) error {
	count := 1
	if isDigit(p.peek()) {
		var err error
		if count, err = p.number(); err != nil {
			return err
		}
	}
	c := p.peek()
	switch {
	case c == '(':
		p.pos++
		start := len(p.out)
		if err := p.sequence(depth + 1); err != nil {
			return err
		}
		p.pos++
		group := slices.Clone(p.out[start:])
		for i := 1; i < count; i++ {
			if err := p.emit(group...); err != nil {
				return err
			}
		}
		return nil
	case c == '-':
		p.pos++
		return p.repeat(Empty, count)
	case isUpper(c):
		start := p.pos
		p.pos++
		for isLower(p.peek()) {
			p.pos++
		}
		return p.repeat(p.src[start:p.pos], count)
	case isLower(c):
		return p.errorf(ErrColorID, "color id starts with %q", c)
	case c == 0:
		return p.errorf(ErrSyntax, "repeat count without a value")
	}
	return p.errorf(ErrSyntax, "unexpected %q", c)
}

// number reads a repeat count. Counts past the cell limit fail early.
func (p *parser) number() (int, error) {
	start := p.pos
	n := 0
	for isDigit(p.peek()) {
		n = n*10 + int(p.peek()-'0')
		if n > p.limit {
			return 0, p.errorf(ErrVoxelCount, "repeat count exceeds %d cells", p.limit)
		}
		p.pos++
	}
	if n == 0 {
		p.pos = start
		return 0, p.errorf(ErrSyntax, "zero repeat count")
	}
	return n, nil
}

func (p *parser) repeat(id string, n int) error {
	if len(p.out)+n > p.limit {
		return p.errorf(ErrVoxelCount, "more than %d cells", p.limit)
	}
	for i := 0; i < n; i++ {
		p.out = append(p.out, id)
	}
	return nil
}

func (p *parser) emit(ids ...string) error {
	if len(p.out)+len(ids) > p.limit {
		return p.errorf(ErrVoxelCount, "more than %d cells", p.limit)
	}
	p.out = append(p.out, ids...)
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }

// ValidID reports whether id is a well formed color id.
func ValidID(id string) bool {
	if id == "" || !isUpper(id[0]) {
		return false
	}
	for i := 1; i < len(id); i++ {
		if !isLower(id[i]) {
			return false
		}
	}
	return true
}

// Encode writes cells as a matrix. Runs of a cell become counted items,
// repeated rows and layers become groups. Rows are separated by a space and
// layers by a newline.
func Encode(cells []string, size voxels.Size) (string, error) {
	if !size.Valid() {
		return "", fmt.Errorf("voxtext: %w: %s", voxels.ErrSize, size)
	}
	if len(cells) != size.Volume() {
		return "", fmt.Errorf("%w: got %d cells, want %d for %s", ErrVoxelCount, len(cells), size.Volume(), size)
	}
	for i, id := range cells {
		if id != Empty && !ValidID(id) {
			return "", fmt.Errorf("%w: %q at cell %d", ErrColorID, id, i)
		}
	}
	layers := make([]string, 0, size.Z)
	for z := 0; z < size.Z; z++ {
		rows := make([]string, 0, size.Y)
		for y := 0; y < size.Y; y++ {
			start := (z*size.Y + y) * size.X
			rows = append(rows, encodeRow(cells[start:start+size.X]))
		}
		layers = append(layers, strings.Join(collapse(rows), " "))
	}
	return strings.Join(collapse(layers), "\n"), nil
}

func encodeRow(row []string) string {
	var sb strings.Builder
	for i := 0; i < len(row); {
		j := i + 1
		for j < len(row) && row[j] == row[i] {
			j++
		}
		token := row[i]
		if token == Empty {
			token = "-"
		}
		n := j - i
		count := strconv.Itoa(n)
		if n == 1 || n*len(token) <= len(count)+len(token) {
			sb.WriteString(strings.Repeat(token, n))
		} else {
			sb.WriteString(count)
			sb.WriteString(token)
		}
		i = j
	}
	return sb.String()
}

// collapse folds consecutive identical parts into counted groups.
func collapse(parts []string) []string {
	out := make([]string, 0, len(parts))
	for i := 0; i < len(parts); {
		j := i + 1
		for j < len(parts) && parts[j] == parts[i] {
			j++
		}
		if n := j - i; n > 1 {
			out = append(out, strconv.Itoa(n)+"("+parts[i]+")")
		} else {
			out = append(out, parts[i])
		}
		i = j
	}
	return out
}
