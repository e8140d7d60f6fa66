// Package params loads and stores parameter sets for conditional
// expressions.
//
// Loaders read scalar parameters from Go maps, YAML, and JSON. Stores keep
// parameters durably in SQLite or bbolt and hand out read-only snapshots with
// Load, so evaluating an expression never touches storage.
package params

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jbohren-forks/conditional"
)

// ErrNotScalar is returned for a parameter whose value is a list, a mapping,
// or another non-scalar.
var ErrNotScalar = errors.New("value is not a scalar")

// FromMap converts a map of Go scalars to parameters. A nil value becomes the
// empty string, which is also what an undefined parameter evaluates to.
func FromMap(m map[string]any) (conditional.Params, error) {
	p := make(conditional.Params, len(m))
	for name, x := range m {
		v, err := scalar(x)
		if err != nil {
			return nil, fmt.Errorf("params: %s: %w", name, err)
		}
		p[name] = v
	}
	return p, nil
}

func scalar(x any) (conditional.Value, error) {
	switch x := x.(type) {
	case nil:
		return conditional.Str(""), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return conditional.Int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, err
		}
		return conditional.Real(f), nil
	case map[string]any, []any:
		return nil, ErrNotScalar
	}
	v, err := conditional.ValueOf(x)
	if err != nil {
		var oe *conditional.OverflowError
		if errors.As(err, &oe) {
			return nil, err
		}
		return nil, fmt.Errorf("%T: %w", x, ErrNotScalar)
	}
	return v, nil
}

// FromYAML parses a YAML mapping of scalars into parameters.
func FromYAML(data []byte) (conditional.Params, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return FromMap(m)
}

// FromJSON parses a JSON object of scalars into parameters. Integral numbers
// become Ints and other numbers become Reals. Only whitespace may follow the
// object.
func FromJSON(data []byte) (conditional.Params, error) {
	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("parse json: data after top-level object")
	}
	return FromMap(m)
}

// FromFile loads parameters from a file, detecting the format by extension.
// Supported extensions: .yaml, .yml, .json
func FromFile(path string) (conditional.Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read params file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return nil, fmt.Errorf("unsupported params file extension: %s", ext)
	}
}

// Merge combines parameter sets. Later sets override earlier ones.
func Merge(sets ...conditional.Params) conditional.Params {
	p := make(conditional.Params)
	for _, s := range sets {
		for name, v := range s {
			p[name] = v
		}
	}
	return p
}
