// Package jsonpath evaluates a small JSONPath subset over JSON documents
// using gjson.
//
// Supported: $, .field, ['field'], ["field"], [n], [*] and .length.
package jsonpath

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrEmptyDocument is returned for an empty or invalid document.
	ErrEmptyDocument = errors.New("empty or invalid JSON document")

	// ErrNotFound is returned when the path selects nothing.
	ErrNotFound = errors.New("path not found")
)

// Query returns the value at path.
func Query(doc []byte, path string) (gjson.Result, error) {
	if len(doc) == 0 || !gjson.ValidBytes(doc) {
		return gjson.Result{}, ErrEmptyDocument
	}

	gpath, err := Compile(path)
	if err != nil {
		return gjson.Result{}, err
	}

	res := gjson.GetBytes(doc, gpath)
	if !res.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return res, nil
}

// Extract returns the value at path as text. Strings are unquoted, null is
// "null", objects and arrays are their raw JSON.
func Extract(doc []byte, path string) (string, error) {
	res, err := Query(doc, path)
	if err != nil {
		return "", err
	}
	if res.Type == gjson.Null {
		return "null", nil
	}
	return res.String(), nil
}

// ExtractMultiple evaluates every named path. Paths that fail are reported
// together; the values that were found are still returned.
func ExtractMultiple(doc []byte, paths map[string]string) (map[string]string, error) {
	if len(paths) == 0 {
		return nil, errors.New("no paths given")
	}

	results := make(map[string]string, len(paths))
	var errs []error

	for name, path := range paths {
		v, err := Extract(doc, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		results[name] = v
	}

	return results, errors.Join(errs...)
}

// Compile converts a JSONPath expression to gjson path syntax, e.g.
// $.sizes[0].energy.method -> sizes.0.energy.method and
// $.sizes[*].sizeBytes -> sizes.#.sizeBytes.
func Compile(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("empty JSONPath expression")
	}
	if !strings.HasPrefix(path, "$") {
		return "", fmt.Errorf("JSONPath must start with $: %s", path)
	}

	rest := path[1:]
	var parts []string

	for rest != "" {
		switch {
		case strings.HasPrefix(rest, "."):
			rest = rest[1:]
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			name := rest[:end]
			if name == "" {
				return "", fmt.Errorf("empty field name in %s", path)
			}
			if name == "length" {
				name = "#"
			}
			parts = append(parts, escape(name))
			rest = rest[end:]

		case strings.HasPrefix(rest, "["):
			end := strings.Index(rest, "]")
			if end < 0 {
				return "", fmt.Errorf("unclosed bracket in %s", path)
			}
			inner := rest[1:end]
			rest = rest[end+1:]

			switch {
			case inner == "*":
				parts = append(parts, "#")
			case len(inner) >= 2 && (inner[0] == '\'' || inner[0] == '"') && inner[len(inner)-1] == inner[0]:
				parts = append(parts, escape(inner[1:len(inner)-1]))
			case isIndex(inner):
				parts = append(parts, inner)
			default:
				return "", fmt.Errorf("unsupported selector [%s] in %s", inner, path)
			}

		default:
			return "", fmt.Errorf("unexpected %q in %s", rest[0], path)
		}
	}

	if len(parts) == 0 {
		return "@this", nil
	}
	return strings.Join(parts, "."), nil
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// escape protects gjson metacharacters inside a field name.
func escape(name string) string {
	if name == "#" {
		return name
	}
	var sb strings.Builder
	for _, r := range name {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
