package params

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jbohren-forks/conditional"
)

// Store persists parameters. Implementations must be safe for concurrent use.
type Store interface {
	// Set stores a parameter, replacing any previous value.
	Set(name string, v conditional.Value) error

	// Get retrieves a parameter.
	// Returns ErrNotFound if the parameter doesn't exist.
	Get(name string) (conditional.Value, error)

	// Delete removes a parameter.
	// Returns nil if the parameter doesn't exist.
	Delete(name string) error

	// Load returns a snapshot of every stored parameter.
	Load() (conditional.Params, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates a parameter doesn't exist.
	ErrNotFound = errors.New("param not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("param store closed")

	// ErrBadName indicates a name that cannot appear in an expression.
	ErrBadName = errors.New("invalid param name")

	// ErrBadEncoding indicates a stored value that cannot be decoded.
	ErrBadEncoding = errors.New("invalid stored param")
)

// ValidName reports whether name can be used as a parameter in an
// expression: an ASCII letter or underscore followed by letters, digits, and
// underscores, and not a keyword or boolean literal.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		case i > 0 && '0' <= r && r <= '9':
		default:
			return false
		}
	}
	if conditional.IsKeyword(name) {
		return false
	}
	return !strings.EqualFold(name, "true") && !strings.EqualFold(name, "false")
}

func checkSet(name string, v conditional.Value) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	if v == nil {
		return fmt.Errorf("set param %s: nil value", name)
	}
	return nil
}

// encode formats a value as its kind and text, e.g. "int:100".
func encode(v conditional.Value) string {
	return v.Kind().String() + ":" + v.String()
}

// decode parses a value formatted by encode.
func decode(s string) (conditional.Value, error) {
	kind, text, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadEncoding, s)
	}
	switch kind {
	case conditional.KindBool.String():
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadEncoding, err)
		}
		return conditional.Bool(b), nil
	case conditional.KindInt.String():
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadEncoding, err)
		}
		return conditional.Int(i), nil
	case conditional.KindReal.String():
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadEncoding, err)
		}
		return conditional.Real(f), nil
	case conditional.KindStr.String():
		return conditional.Str(text), nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrBadEncoding, kind)
	}
}
