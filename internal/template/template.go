// Package template defines the boundary the request-execution core depends
// on for rendering: evaluating a template string or a selector expression
// against a JSON value environment. A full expression grammar/compiler is
// out of scope; this package instead provides a minimal evaluator built the
// same way internal/review/prompts.go assembles prompt strings — direct
// string building against the standard library rather than a templating
// dependency.
package template

import (
	"fmt"
	"strings"

	"github.com/sanix-darker/loadgun/internal/errs"
	"github.com/sanix-darker/loadgun/internal/jsonvalue"
)

// Template renders to a string against an environment. Implementations must
// be pure and non-blocking (spec.md §6).
type Template interface {
	Evaluate(env jsonvalue.Object) (string, error)
}

// Select queries zero or more values out of an environment, e.g. the body
// of a `provides`/`logs` capture expression.
type Select interface {
	Query(env jsonvalue.Object) ([]jsonvalue.V, error)
}

// Literal is a Template that ignores its environment.
type Literal string

func (l Literal) Evaluate(jsonvalue.Object) (string, error) { return string(l), nil }

// openTag and closeTag wrap a dotted path reference like "${ids}" or
// "${response.body.id}".
const openTag, closeTag = "${", "}"

// Interpolated renders a string containing zero or more "${dotted.path}"
// placeholders, substituting jsonvalue.ToDisplayString(resolved value) for
// each. A path that resolves to nothing renders as an error, matching
// spec.md's "evaluation is pure" contract rather than silently emitting
// the literal placeholder text.
type Interpolated string

func (t Interpolated) Evaluate(env jsonvalue.Object) (string, error) {
	s := string(t)
	var b strings.Builder
	for {
		start := strings.Index(s, openTag)
		if start == -1 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:start])
		rest := s[start+len(openTag):]
		end := strings.Index(rest, closeTag)
		if end == -1 {
			return "", errs.Recoverable(errs.RecoverableTemplateErr, fmt.Errorf("unterminated placeholder in %q", s))
		}
		path := strings.TrimSpace(rest[:end])
		v, ok := Lookup(env, path)
		if !ok {
			return "", errs.Recoverable(errs.RecoverableTemplateErr, fmt.Errorf("unresolved template path %q", path))
		}
		b.WriteString(jsonvalue.ToDisplayString(v))
		s = rest[end+len(closeTag):]
	}
	return b.String(), nil
}

// Lookup resolves a dot-separated path against env, the same key shape
// jsonvalue.SetPath writes.
func Lookup(env jsonvalue.Object, path string) (jsonvalue.V, bool) {
	parts := strings.Split(path, ".")
	var cur jsonvalue.V = env
	for _, p := range parts {
		obj, ok := jsonvalue.AsObject(cur)
		if !ok {
			return nil, false
		}
		v, exists := obj[p]
		if !exists {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// PathSelect is a Select that returns the single value at Path, or an empty
// slice if the path does not resolve (the "optional where-clause
// filtering" capability of spec.md §4.I, reduced to existence-filtering).
type PathSelect struct {
	Path string
}

func (s PathSelect) Query(env jsonvalue.Object) ([]jsonvalue.V, error) {
	v, ok := Lookup(env, s.Path)
	if !ok {
		return nil, nil
	}
	return []jsonvalue.V{v}, nil
}

// ForEachSelect iterates over the array at Path, yielding one element per
// entry; a non-array value at Path yields that single value.
type ForEachSelect struct {
	Path string
}

func (s ForEachSelect) Query(env jsonvalue.Object) ([]jsonvalue.V, error) {
	v, ok := Lookup(env, s.Path)
	if !ok {
		return nil, nil
	}
	if arr, ok := jsonvalue.AsArray(v); ok {
		return arr, nil
	}
	return []jsonvalue.V{v}, nil
}
