// Package mdpath resolves dotted paths in decoded JSON documents, such as
// geocat.ch ISO 19139 metadata records, where the same field may live under
// one of several alternative paths.
//
// A path is a list of segments separated by '.'. Numeric segments index into
// arrays. A non-numeric segment applied to an array descends into its first
// element, since single-language records often carry one-element lists.
package mdpath

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

var ErrEmptyPath = errors.New("mdpath: empty path")

// NotFoundError reports that none of the attempted paths resolved.
type NotFoundError struct {
	Paths []string
}

func (e *NotFoundError) Error() string {
	return "mdpath: none of the paths exist: " + strings.Join(e.Paths, ";")
}

// Decode parses a JSON document into maps, slices and scalars.
func Decode(r io.Reader) (any, error) {
	var doc any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("mdpath: decode document: %w", err)
	}
	return doc, nil
}

// Lookup resolves a single path against doc.
func Lookup(doc any, path string) (any, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	cur := doc
	for _, seg := range strings.Split(path, ".") {
		idx, numeric := index(seg)
		if list, ok := cur.([]any); ok && !numeric {
			if len(list) == 0 {
				return nil, &NotFoundError{Paths: []string{path}}
			}
			cur = list[0]
		}

		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, &NotFoundError{Paths: []string{path}}
			}
			cur = v
		case []any:
			// a name segment only descends one list level
			if !numeric || idx >= len(node) {
				return nil, &NotFoundError{Paths: []string{path}}
			}
			cur = node[idx]
		default:
			// scalar or null reached before the path ended
			return nil, &NotFoundError{Paths: []string{path}}
		}
	}
	return cur, nil
}

func index(seg string) (int, bool) {
	if seg == "" || seg[0] == '-' || seg[0] == '+' {
		return 0, false
	}
	i, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return i, true
}

// First returns the value of the first path that resolves. Paths are tried in
// order. An empty candidate resolves to "" so a blank metadata column yields
// an empty value. When none resolves the error is a *NotFoundError listing
// all of them.
func First(doc any, paths ...string) (any, error) {
	for _, p := range paths {
		if p == "" {
			return "", nil
		}
		v, err := Lookup(doc, p)
		if err == nil {
			return v, nil
		}
	}
	return nil, &NotFoundError{Paths: paths}
}

// FirstString is First for leaf values, rendering numbers and booleans as text.
func FirstString(doc any, paths ...string) (string, error) {
	v, err := First(doc, paths...)
	if err != nil {
		return "", err
	}

	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("mdpath: value at %s is not a scalar (%T)", strings.Join(paths, ";"), v)
	}
}
