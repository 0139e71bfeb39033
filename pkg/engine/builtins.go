package engine

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/smoothvox/pkg/material"
	"github.com/chazu/smoothvox/pkg/model"
	"github.com/chazu/smoothvox/pkg/voxels"
	"github.com/chazu/smoothvox/pkg/voxtext"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms script source before passing it to zygomys.
// It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: set-voxel -> set_voxel
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Only a hyphen between identifier characters is part of a name.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpMaterial wraps a material before it is attached to a model.
type sexpMaterial struct {
	mat *material.Material
}

func (m *sexpMaterial) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(material %q)", m.mat.Name)
}
func (m *sexpMaterial) Type() *zygo.RegisteredType { return nil }

// sexpColor wraps a color definition produced by `color`.
type sexpColor struct {
	def material.ColorDef
}

func (c *sexpColor) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(color %q \"#%02X%02X%02X\")", c.def.ID, c.def.RGB[0], c.def.RGB[1], c.def.RGB[2])
}
func (c *sexpColor) Type() *zygo.RegisteredType { return nil }

// sexpModel refers to a model already registered in the scene.
type sexpModel struct {
	m *model.Model
}

func (m *sexpModel) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(model %q %s)", m.m.Name, m.m.Voxels.Size())
}
func (m *sexpModel) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a vector.
type sexpVec3 struct {
	vec [3]float32
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

type sexpAO struct {
	ao material.AO
}

func (a *sexpAO) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(ao :max-distance %g :strength %g :angle %g :samples %d)",
		a.ao.MaxDistance, a.ao.Strength, a.ao.Angle, a.ao.Samples)
}
func (a *sexpAO) Type() *zygo.RegisteredType { return nil }

type sexpLight struct {
	light model.Light
}

func (l *sexpLight) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(light %d %g)", l.light.Kind, l.light.Strength)
}
func (l *sexpLight) Type() *zygo.RegisteredType { return nil }

type sexpTexture struct {
	ref material.TextureRef
}

func (t *sexpTexture) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(texture %q)", t.ref.Name)
}
func (t *sexpTexture) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toFloat32(s zygo.Sexp) (float32, error) {
	f, err := toFloat64(s)
	return float32(f), err
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toBool(s zygo.Sexp) (bool, error) {
	if v, ok := s.(*zygo.SexpBool); ok {
		return v.Val, nil
	}
	if s == zygo.SexpNull {
		return true, nil
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toVec3 accepts a vec3 or a single number applied to every axis.
func toVec3(s zygo.Sexp) ([3]float32, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	if f, err := toFloat32(s); err == nil {
		return [3]float32{f, f, f}, nil
	}
	return [3]float32{}, fmt.Errorf("expected vec3 or number, got %T (%s)", s, s.SexpString(nil))
}

func toPair(s zygo.Sexp) ([2]float32, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return [2]float32{}, err
	}
	if len(items) != 2 {
		return [2]float32{}, fmt.Errorf("expected 2 numbers, got %d", len(items))
	}
	var out [2]float32
	for i, it := range items {
		if out[i], err = toFloat32(it); err != nil {
			return out, err
		}
	}
	return out, nil
}

func toPlanar(s zygo.Sexp) (material.Planar, error) {
	str, err := toKeywordString(s)
	if err != nil {
		return 0, err
	}
	return material.ParsePlanar(str)
}

// toRGB parses a hex color string into 0..1 channels.
func toRGB(s zygo.Sexp) ([3]float32, error) {
	str, err := toString(s)
	if err != nil {
		return [3]float32{}, err
	}
	c, err := voxels.ParseHex(str)
	if err != nil {
		return [3]float32{}, err
	}
	r, g, b := c.RGB()
	return [3]float32{r, g, b}, nil
}

func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// kwError prefixes a keyword failure with the builtin and keyword names.
func kwError(fn, kw string, err error) error {
	return fmt.Errorf("%s: %s: %w", fn, kw, err)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the modelling builtins into a zygomys
// environment. Models declared during evaluation are added to sc.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, sc *Scene, defaultAO material.AO) {

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v [3]float32
		for i, a := range args {
			f, err := toFloat32(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// (color "A" "#FF0000")
	env.AddFunction("color", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("color requires an id and a hex value")
		}
		id, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("color: id: %w", err)
		}
		if !material.ValidColorID(id) {
			return zygo.SexpNull, fmt.Errorf("color: id %q: %w", id, material.ErrInvalidColorID)
		}
		hex, err := toString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("color: value: %w", err)
		}
		c, err := voxels.ParseHex(hex)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("color: %w", err)
		}
		return &sexpColor{def: material.ColorDef{ID: id, RGB: [3]uint8{c.R(), c.G(), c.B()}}}, nil
	})

	// (ao :color "#000" :max-distance 2 :strength 1 :angle 70 :samples 20)
	env.AddFunction("ao", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		ao := defaultAO
		var err error
		if v, ok := pa.kw["color"]; ok {
			if ao.Color, err = toRGB(v); err != nil {
				return zygo.SexpNull, kwError("ao", "color", err)
			}
		}
		if v, ok := pa.kw["max-distance"]; ok {
			if ao.MaxDistance, err = toFloat32(v); err != nil {
				return zygo.SexpNull, kwError("ao", "max-distance", err)
			}
		}
		if v, ok := pa.kw["strength"]; ok {
			if ao.Strength, err = toFloat32(v); err != nil {
				return zygo.SexpNull, kwError("ao", "strength", err)
			}
		}
		if v, ok := pa.kw["angle"]; ok {
			if ao.Angle, err = toFloat32(v); err != nil {
				return zygo.SexpNull, kwError("ao", "angle", err)
			}
		}
		if v, ok := pa.kw["samples"]; ok {
			if ao.Samples, err = toInt(v); err != nil {
				return zygo.SexpNull, kwError("ao", "samples", err)
			}
		}
		return &sexpAO{ao: ao}, nil
	})

	// (texture "grain" :cube false :offset (list 0 0) :repeat (list 2 2) :rotation 90)
	env.AddFunction("texture", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("texture requires a name argument")
		}
		texName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("texture: name: %w", err)
		}
		ref := material.TextureRef{Name: texName, Transform: material.IdentityUV}
		if v, ok := pa.kw["cube"]; ok {
			if ref.Cube, err = toBool(v); err != nil {
				return zygo.SexpNull, kwError("texture", "cube", err)
			}
		}
		if v, ok := pa.kw["offset"]; ok {
			if ref.Transform.Offset, err = toPair(v); err != nil {
				return zygo.SexpNull, kwError("texture", "offset", err)
			}
		}
		if v, ok := pa.kw["repeat"]; ok {
			if ref.Transform.Repeat, err = toPair(v); err != nil {
				return zygo.SexpNull, kwError("texture", "repeat", err)
			}
		}
		if v, ok := pa.kw["rotation"]; ok {
			if ref.Transform.Rotation, err = toFloat32(v); err != nil {
				return zygo.SexpNull, kwError("texture", "rotation", err)
			}
		}
		return &sexpTexture{ref: ref}, nil
	})

	// (light :kind :directional :color "#FFF" :strength 1 :direction (vec3 0 -1 0))
	env.AddFunction("light", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		l := model.Light{Kind: model.Ambient, Color: [3]float32{1, 1, 1}, Strength: 1}
		var err error
		if v, ok := pa.kw["kind"]; ok {
			kind, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, kwError("light", "kind", err)
			}
			switch kind {
			case "ambient":
				l.Kind = model.Ambient
			case "directional":
				l.Kind = model.Directional
			case "point":
				l.Kind = model.Point
			default:
				return zygo.SexpNull, fmt.Errorf("light: kind %q, expected ambient, directional or point", kind)
			}
		}
		if v, ok := pa.kw["color"]; ok {
			if l.Color, err = toRGB(v); err != nil {
				return zygo.SexpNull, kwError("light", "color", err)
			}
		}
		if v, ok := pa.kw["strength"]; ok {
			if l.Strength, err = toFloat32(v); err != nil {
				return zygo.SexpNull, kwError("light", "strength", err)
			}
		}
		if v, ok := pa.kw["direction"]; ok {
			if l.Direction, err = toVec3(v); err != nil {
				return zygo.SexpNull, kwError("light", "direction", err)
			}
		}
		if v, ok := pa.kw["position"]; ok {
			if l.Position, err = toVec3(v); err != nil {
				return zygo.SexpNull, kwError("light", "position", err)
			}
		}
		if v, ok := pa.kw["distance"]; ok {
			if l.Distance, err = toFloat32(v); err != nil {
				return zygo.SexpNull, kwError("light", "distance", err)
			}
		}
		if l.Kind == model.Directional && l.Direction == ([3]float32{}) {
			return zygo.SexpNull, fmt.Errorf("light: directional light requires :direction")
		}
		return &sexpLight{light: l}, nil
	})

	// (material "stone" :type :standard :lighting :smooth :colors (list (color "A" "#888")))
	env.AddFunction("material", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("material requires a name argument")
		}
		matName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("material: name: %w", err)
		}
		mat := material.New(matName)
		if err := applyMaterialArgs(mat, pa.kw); err != nil {
			return zygo.SexpNull, err
		}
		if err := mat.Validate(); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpMaterial{mat: mat}, nil
	})

	// (model "rock" :size (vec3 4 4 4) :materials (list stone) :voxels "64A" ...)
	env.AddFunction("model", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("model requires a name argument")
		}
		modelName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("model: name: %w", err)
		}
		if sc.Lookup(modelName) != nil {
			return zygo.SexpNull, fmt.Errorf("model: duplicate model %q", modelName)
		}
		v, ok := pa.kw["size"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("model %q: :size is required", modelName)
		}
		sz, err := toVec3(v)
		if err != nil {
			return zygo.SexpNull, kwError("model", "size", err)
		}
		m, err := model.New(modelName, voxels.Size{X: int(sz[0]), Y: int(sz[1]), Z: int(sz[2])})
		if err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["materials"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, kwError("model", "materials", err)
			}
			for i, it := range items {
				sm, ok := it.(*sexpMaterial)
				if !ok {
					return zygo.SexpNull, fmt.Errorf("model: materials: entry %d: expected material, got %T", i, it)
				}
				if err := m.Materials.Add(sm.mat); err != nil {
					return zygo.SexpNull, fmt.Errorf("model %q: %w", modelName, err)
				}
			}
		}
		if err := applyModelArgs(m, pa.kw); err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["voxels"]; ok {
			src, err := toString(v)
			if err != nil {
				return zygo.SexpNull, kwError("model", "voxels", err)
			}
			if err := voxtext.Apply(m, src); err != nil {
				return zygo.SexpNull, err
			}
		}
		sc.Models = append(sc.Models, m)
		return &sexpModel{m: m}, nil
	})

	// (voxels rock "3(AB-)...")
	env.AddFunction("voxels", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("voxels requires a model and a matrix string")
		}
		m, err := toModel(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("voxels: %w", err)
		}
		src, err := toString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("voxels: matrix: %w", err)
		}
		if err := voxtext.Apply(m, src); err != nil {
			return zygo.SexpNull, err
		}
		return args[0], nil
	})

	// (set-voxel rock 0 1 0 "A")
	env.AddFunction("set_voxel", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 5 {
			return zygo.SexpNull, fmt.Errorf("set-voxel requires a model, x, y, z and a color id")
		}
		m, p, err := modelPoint(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-voxel: %w", err)
		}
		id, err := toString(args[4])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-voxel: color: %w", err)
		}
		if err := m.Set(p.X, p.Y, p.Z, id); err != nil {
			return zygo.SexpNull, fmt.Errorf("set-voxel: %w", err)
		}
		return args[0], nil
	})

	// (clear-voxel rock 0 1 0)
	env.AddFunction("clear_voxel", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("clear-voxel requires a model, x, y and z")
		}
		m, p, err := modelPoint(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("clear-voxel: %w", err)
		}
		if err := m.Voxels.ClearAt(p.X, p.Y, p.Z); err != nil {
			return zygo.SexpNull, fmt.Errorf("clear-voxel: %w", err)
		}
		return args[0], nil
	})

	// (fill rock (vec3 -1 0 -1) (vec3 1 0 1) "A")
	env.AddFunction("fill", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("fill requires a model, two corners and a color id")
		}
		m, err := toModel(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("fill: %w", err)
		}
		from, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("fill: from: %w", err)
		}
		to, err := toVec3(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("fill: to: %w", err)
		}
		id, err := toString(args[3])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("fill: color: %w", err)
		}
		lo := [3]int{int(min(from[0], to[0])), int(min(from[1], to[1])), int(min(from[2], to[2]))}
		hi := [3]int{int(max(from[0], to[0])), int(max(from[1], to[1])), int(max(from[2], to[2]))}
		for z := lo[2]; z <= hi[2]; z++ {
			for y := lo[1]; y <= hi[1]; y++ {
				for x := lo[0]; x <= hi[0]; x++ {
					if err := m.Set(x, y, z, id); err != nil {
						return zygo.SexpNull, fmt.Errorf("fill: %w", err)
					}
				}
			}
		}
		return args[0], nil
	})

	// (voxel-text rock) returns the run-length matrix of a model.
	env.AddFunction("voxel_text", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("voxel-text requires a model")
		}
		m, err := toModel(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("voxel-text: %w", err)
		}
		src, err := voxtext.FromModel(m)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &zygo.SexpStr{S: src}, nil
	})
}

func toModel(s zygo.Sexp) (*model.Model, error) {
	if m, ok := s.(*sexpModel); ok {
		return m.m, nil
	}
	return nil, fmt.Errorf("expected model, got %T (%s)", s, s.SexpString(nil))
}

// modelPoint reads a model followed by integer x, y and z arguments.
func modelPoint(args []zygo.Sexp) (*model.Model, voxels.Point, error) {
	m, err := toModel(args[0])
	if err != nil {
		return nil, voxels.Point{}, err
	}
	var c [3]int
	for i := range c {
		if c[i], err = toInt(args[i+1]); err != nil {
			return nil, voxels.Point{}, fmt.Errorf("%c: %w", "xyz"[i], err)
		}
	}
	return m, voxels.Point{X: c[0], Y: c[1], Z: c[2]}, nil
}

// textureSlots maps material keywords to texture slots.
var textureSlots = map[string]func(*material.Maps) **material.TextureRef{
	"map":            func(m *material.Maps) **material.TextureRef { return &m.Map },
	"normal-map":     func(m *material.Maps) **material.TextureRef { return &m.NormalMap },
	"roughness-map":  func(m *material.Maps) **material.TextureRef { return &m.RoughnessMap },
	"metalness-map":  func(m *material.Maps) **material.TextureRef { return &m.MetalnessMap },
	"emissive-map":   func(m *material.Maps) **material.TextureRef { return &m.EmissiveMap },
	"matcap":         func(m *material.Maps) **material.TextureRef { return &m.MatcapMap },
	"reflection-map": func(m *material.Maps) **material.TextureRef { return &m.ReflectMap },
	"refraction-map": func(m *material.Maps) **material.TextureRef { return &m.RefractMap },
}

func applyMaterialArgs(mat *material.Material, kw map[string]zygo.Sexp) error {
	const fn = "material"
	var err error
	for _, key := range slices.Sorted(maps.Keys(kw)) {
		v := kw[key]
		switch key {
		case "type":
			var s string
			if s, err = toKeywordString(v); err == nil {
				mat.Base.Type, err = material.ParseType(s)
			}
		case "side":
			var s string
			if s, err = toKeywordString(v); err == nil {
				mat.Base.Side, err = material.ParseSide(s)
			}
		case "lighting":
			var s string
			if s, err = toKeywordString(v); err == nil {
				mat.Lighting, err = material.ParseLighting(s)
			}
		case "roughness":
			mat.Base.Roughness, err = toFloat32(v)
		case "metalness":
			mat.Base.Metalness, err = toFloat32(v)
		case "opacity":
			mat.Base.Opacity, err = toFloat32(v)
		case "transparent":
			mat.Base.Transparent, err = toBool(v)
		case "wireframe":
			mat.Base.Wireframe, err = toBool(v)
		case "emissive":
			mat.Base.Emissive, err = toRGB(v)
			if err == nil && mat.Base.EmissiveIntensity == 0 {
				mat.Base.EmissiveIntensity = 1
			}
		case "emissive-intensity":
			mat.Base.EmissiveIntensity, err = toFloat32(v)
		case "deform":
			err = applyDeform(&mat.Deform, v)
		case "warp":
			var p [2]float32
			if p, err = toPair(v); err == nil {
				mat.Warp = material.Warp{Amplitude: p[0], Frequency: p[1]}
			}
		case "scatter":
			mat.Scatter, err = toFloat32(v)
		case "flatten", "clamp", "skip":
			var p material.Planar
			if p, err = toPlanar(v); err == nil {
				switch key {
				case "flatten":
					mat.Flatten = &p
				case "clamp":
					mat.Clamp = &p
				default:
					mat.Skip = &p
				}
			}
		case "ao":
			a, ok := v.(*sexpAO)
			if !ok {
				err = fmt.Errorf("expected (ao ...), got %T", v)
				break
			}
			ao := a.ao
			mat.AO = &ao
		case "lights":
			mat.Lights, err = toBool(v)
		case "fade":
			mat.Fade, err = toBool(v)
		case "simplify":
			var on bool
			on, err = toBool(v)
			mat.NoSimplify = !on
		case "colors":
			err = applyColors(mat, v)
		case "data":
			err = applyData(mat, v)
		default:
			slot, ok := textureSlots[key]
			if !ok {
				return fmt.Errorf("material %q: unknown property %q", mat.Name, key)
			}
			t, ok := v.(*sexpTexture)
			if !ok {
				err = fmt.Errorf("expected (texture ...), got %T", v)
				break
			}
			ref := t.ref
			*slot(&mat.Base.Maps) = &ref
		}
		if err != nil {
			return kwError(fn, key, err)
		}
	}
	return nil
}

// applyDeform accepts a count or a (count strength damping) list.
func applyDeform(d *material.Deform, v zygo.Sexp) error {
	if n, err := toInt(v); err == nil {
		*d = material.Deform{Count: n, Strength: 1, Damping: 1}
		return nil
	}
	items, err := sexpListToSlice(v)
	if err != nil {
		return err
	}
	if len(items) < 1 || len(items) > 3 {
		return fmt.Errorf("expected 1 to 3 values, got %d", len(items))
	}
	out := material.Deform{Strength: 1, Damping: 1}
	if out.Count, err = toInt(items[0]); err != nil {
		return err
	}
	if len(items) > 1 {
		if out.Strength, err = toFloat32(items[1]); err != nil {
			return err
		}
	}
	if len(items) > 2 {
		if out.Damping, err = toFloat32(items[2]); err != nil {
			return err
		}
	}
	*d = out
	return nil
}

func applyColors(mat *material.Material, v zygo.Sexp) error {
	items, err := sexpListToSlice(v)
	if err != nil {
		return err
	}
	for i, it := range items {
		c, ok := it.(*sexpColor)
		if !ok {
			return fmt.Errorf("entry %d: expected (color ...), got %T", i, it)
		}
		mat.Colors = append(mat.Colors, c.def)
	}
	return nil
}

// applyData reads an alternating name/values list: (list "wind" (list 0.5 1)).
func applyData(mat *material.Material, v zygo.Sexp) error {
	items, err := sexpListToSlice(v)
	if err != nil {
		return err
	}
	if len(items)%2 != 0 {
		return fmt.Errorf("expected name/values pairs, got %d items", len(items))
	}
	mat.Data = make(map[string][]float32, len(items)/2)
	for i := 0; i < len(items); i += 2 {
		field, err := toString(items[i])
		if err != nil {
			return err
		}
		vals, err := sexpListToSlice(items[i+1])
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		out := make([]float32, len(vals))
		for j, val := range vals {
			if out[j], err = toFloat32(val); err != nil {
				return fmt.Errorf("%s: %w", field, err)
			}
		}
		mat.Data[field] = out
	}
	return nil
}

func applyModelArgs(m *model.Model, kw map[string]zygo.Sexp) error {
	const fn = "model"
	var err error
	for _, key := range slices.Sorted(maps.Keys(kw)) {
		v := kw[key]
		switch key {
		case "size", "materials", "voxels":
			continue
		case "shape":
			var s string
			if s, err = toKeywordString(v); err == nil {
				m.Shape, err = model.ParseShape(s)
			}
		case "resize":
			var s string
			if s, err = toKeywordString(v); err == nil {
				m.Resize, err = model.ParseResize(s)
			}
		case "position":
			m.Transform.Position, err = toVec3(v)
		case "rotation":
			m.Transform.Rotation, err = toVec3(v)
		case "scale":
			m.Transform.Scale, err = toVec3(v)
		case "origin":
			m.Origin, err = toPlanar(v)
		case "flatten":
			m.Flatten, err = toPlanar(v)
		case "clamp":
			m.Clamp, err = toPlanar(v)
		case "skip":
			m.Skip, err = toPlanar(v)
		case "tile":
			m.Tile, err = toPlanar(v)
		case "ao-sides":
			m.AOSides, err = toPlanar(v)
		case "ao":
			a, ok := v.(*sexpAO)
			if !ok {
				err = fmt.Errorf("expected (ao ...), got %T", v)
				break
			}
			ao := a.ao
			m.AO = &ao
		case "lights":
			var items []zygo.Sexp
			if items, err = sexpListToSlice(v); err != nil {
				break
			}
			for i, it := range items {
				l, ok := it.(*sexpLight)
				if !ok {
					err = fmt.Errorf("entry %d: expected (light ...), got %T", i, it)
					break
				}
				m.Lights = append(m.Lights, l.light)
			}
		case "data":
			var items []zygo.Sexp
			if items, err = sexpListToSlice(v); err != nil {
				break
			}
			if len(items)%2 != 0 {
				err = fmt.Errorf("expected name/size pairs, got %d items", len(items))
				break
			}
			for i := 0; i < len(items) && err == nil; i += 2 {
				var f model.DataField
				if f.Name, err = toString(items[i]); err == nil {
					f.Size, err = toInt(items[i+1])
				}
				m.Data = append(m.Data, f)
			}
		case "seed":
			var n int
			n, err = toInt(v)
			m.Seed = int64(n)
		default:
			return fmt.Errorf("model %q: unknown property %q", m.Name, key)
		}
		if err != nil {
			return kwError(fn, key, err)
		}
	}
	return nil
}
