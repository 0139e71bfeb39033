// Package engine provides the Lisp evaluation engine for smoothvox scripts.
// It wraps zygomys in a sandboxed environment and produces a Scene of voxel
// models from user source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/smoothvox/pkg/material"
	"github.com/chazu/smoothvox/pkg/model"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning represents a non-fatal warning produced during evaluation.
type EvalWarning struct {
	Line    int
	Col     int
	Message string
	Model   string
}

// Scene is the set of models a script declares, in declaration order.
type Scene struct {
	Models   []*model.Model
	Warnings []EvalWarning
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{}
}

// Lookup returns the model with the given name, or nil.
func (s *Scene) Lookup(name string) *model.Model {
	for _, m := range s.Models {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Engine wraps the zygomys interpreter.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	defaultAO  material.AO
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{defaultAO: material.DefaultAO()}
}

// SetDefaultAO sets the parameters `(ao)` starts from.
func (e *Engine) SetDefaultAO(ao material.AO) {
	e.mu.Lock()
	e.defaultAO = ao
	e.mu.Unlock()
}

// Evaluate takes Lisp source code and produces a new Scene.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns scene + nil errors + nil error
//   - On parse/eval/validation failure: returns nil scene + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Scene, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	ao := e.defaultAO
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		sc, evalErrs, err := evaluate(source, ao)
		ch <- evalResult{scene: sc, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func evaluate(source string, ao material.AO) (*Scene, []EvalError, error) {
	sc := NewScene()
	// Empty source is a valid program that produces an empty scene.
	if strings.TrimSpace(source) == "" {
		return sc, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, sc, ao)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	var evalErrs []EvalError
	for _, m := range sc.Models {
		for _, f := range m.Validate() {
			msg := fmt.Sprintf("model %q: %s", m.Name, f.Error())
			if f.Severity == model.SeverityError {
				evalErrs = append(evalErrs, EvalError{Message: msg})
				continue
			}
			sc.Warnings = append(sc.Warnings, EvalWarning{Message: msg, Model: m.Name})
		}
	}
	if len(evalErrs) > 0 {
		return nil, evalErrs, nil
	}
	return sc, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
