package model

import (
	"fmt"
	"sort"

	"github.com/chazu/smoothvox/pkg/material"
	"github.com/chazu/smoothvox/pkg/voxels"
)

// Severity grades a validation finding.
type Severity int

const (
	// SeverityError blocks the build.
	SeverityError Severity = iota
	// SeverityWarning is advisory.
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// ValidationError represents a validation finding.
type ValidationError struct {
	Code     string
	Message  string
	Material string
	Severity Severity
	Err      error
}

func (e ValidationError) Error() string {
	context := ""
	if e.Material != "" {
		context = fmt.Sprintf(" (material: %s)", e.Material)
	}
	return fmt.Sprintf("%s: %s%s", e.Code, e.Message, context)
}

func (e ValidationError) Unwrap() error { return e.Err }

// Validate checks the whole model and returns every finding.
func (m *Model) Validate() []ValidationError {
	var errs []ValidationError

	if m.Voxels == nil || m.Materials == nil {
		return []ValidationError{{
			Code:    "MISSING_DATA",
			Message: "model has no voxel store or material list",
			Err:     ErrInvalid,
		}}
	}

	errs = append(errs, m.validateSettings()...)
	errs = append(errs, m.validateColors()...)
	errs = append(errs, m.validateDataSchema()...)
	errs = append(errs, m.validateMaterials()...)

	return errs
}

// Errors returns only the blocking findings.
func Errors(findings []ValidationError) []ValidationError {
	var out []ValidationError
	for _, f := range findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}

func (m *Model) validateSettings() []ValidationError {
	var errs []ValidationError
	if m.Shape < Box || m.Shape > CylinderZ {
		errs = append(errs, ValidationError{
			Code:    "INVALID_SHAPE",
			Message: fmt.Sprintf("shape %d is not defined", m.Shape),
			Err:     ErrInvalidShape,
		})
	}
	if m.Resize < ResizeNone || m.Resize > ResizeFill {
		errs = append(errs, ValidationError{
			Code:    "INVALID_RESIZE",
			Message: fmt.Sprintf("resize %d is not defined", m.Resize),
			Err:     ErrInvalidResize,
		})
	}
	for i, s := range m.Transform.Scale {
		if s == 0 {
			errs = append(errs, ValidationError{
				Code:     "ZERO_SCALE",
				Message:  fmt.Sprintf("scale on axis %s is zero", material.Axis(i)),
				Severity: SeverityWarning,
			})
		}
	}
	if m.AO != nil && m.AO.Samples <= 0 {
		errs = append(errs, ValidationError{
			Code:     "AO_NO_SAMPLES",
			Message:  "ambient occlusion has no samples and will be skipped",
			Severity: SeverityWarning,
		})
	}
	if m.Voxels.Count() == 0 {
		errs = append(errs, ValidationError{
			Code:     "EMPTY_MODEL",
			Message:  "model has no voxels",
			Severity: SeverityWarning,
		})
	}
	return errs
}

// validateColors checks that every voxel names a material in the list.
func (m *Model) validateColors() []ValidationError {
	var errs []ValidationError
	seen := make(map[uint8]bool)
	n := m.Materials.Len()
	m.Voxels.ForEach(func(_ voxels.Point, c voxels.Color) bool {
		idx := c.Material()
		if int(idx) >= n && !seen[idx] {
			seen[idx] = true
			errs = append(errs, ValidationError{
				Code:    "UNKNOWN_MATERIAL",
				Message: fmt.Sprintf("color %s references material %d of %d", c.Hex(), idx, n),
				Err:     ErrInvalid,
			})
		}
		return true
	})
	return errs
}

// validateDataSchema checks that every material supplies exactly the
// custom vertex data the model declares.
func (m *Model) validateDataSchema() []ValidationError {
	var errs []ValidationError
	fields := make(map[string]int, len(m.Data))
	for _, f := range m.Data {
		fields[f.Name] = f.Size
	}
	for _, mat := range m.Materials.All() {
		for _, f := range m.Data {
			v, ok := mat.Data[f.Name]
			switch {
			case !ok:
				errs = append(errs, ValidationError{
					Code:     "DATA_MISSING",
					Message:  fmt.Sprintf("no value for data field %q", f.Name),
					Material: mat.Name,
					Err:      ErrDataSchema,
				})
			case len(v) != f.Size:
				errs = append(errs, ValidationError{
					Code:     "DATA_SIZE",
					Message:  fmt.Sprintf("data field %q has %d values, want %d", f.Name, len(v), f.Size),
					Material: mat.Name,
					Err:      ErrDataSchema,
				})
			}
		}
		var extra []string
		for name := range mat.Data {
			if _, ok := fields[name]; !ok {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		for _, name := range extra {
			errs = append(errs, ValidationError{
				Code:     "DATA_UNDECLARED",
				Message:  fmt.Sprintf("data field %q is not declared by the model", name),
				Material: mat.Name,
				Err:      ErrDataSchema,
			})
		}
	}
	return errs
}

func (m *Model) validateMaterials() []ValidationError {
	var errs []ValidationError
	for _, mat := range m.Materials.All() {
		if err := mat.Validate(); err != nil {
			errs = append(errs, ValidationError{
				Code:     "INVALID_MATERIAL",
				Message:  err.Error(),
				Material: mat.Name,
				Err:      err,
			})
		}
		if mat.Deform.Count > 0 && mat.Deform.Strength == 0 {
			errs = append(errs, ValidationError{
				Code:     "DEFORM_NO_STRENGTH",
				Message:  fmt.Sprintf("deform count %d has zero strength", mat.Deform.Count),
				Material: mat.Name,
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
