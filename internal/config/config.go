// Package config resolves layered configuration into one immutable map.
//
// Sources are probed per key in priority order: process environment, command
// line arguments, a developer override file (YAML), and the schema default.
// The first source that defines a key wins, and the winning source is
// recorded for observability.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/and161185/authd/internal/errs"
)

// Type is the coercion target for a schema field.
type Type int

const (
	String Type = iota
	Int
	Bool
)

// Source identifies which layer satisfied a key.
type Source string

const (
	SourceEnv     Source = "env"
	SourceArgs    Source = "args"
	SourceDevFile Source = "dev-file"
	SourceDefault Source = "default"
)

// Field declares one recognized configuration key.
type Field struct {
	Key     string
	Type    Type
	Default any
}

// Options selects the concrete layers to probe. Zero values fall back to the
// real process environment and no args/dev file.
type Options struct {
	// Args are command line arguments in --database-port=5432 or
	// --database-port 5432 form (program name excluded). Flags not matching
	// a schema key are ignored.
	Args []string
	// DevFile is the path to the YAML override file. A missing file is not
	// an error; the layer simply defines nothing.
	DevFile string
	// LookupEnv defaults to os.LookupEnv; injectable for tests.
	LookupEnv func(string) (string, bool)
}

// Resolved is the immutable result of Resolve.
type Resolved struct {
	values  map[string]any
	origins map[string]Source
}

// Resolve probes every schema field against the layered sources and coerces
// the winning raw value to the field type. Coercion failure returns
// errs.ErrConfigType naming the offending key.
func Resolve(schema []Field, opts Options) (*Resolved, error) {
	lookupEnv := opts.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	args := parseArgs(opts.Args)
	dev, err := loadDevFile(opts.DevFile)
	if err != nil {
		return nil, err
	}

	r := &Resolved{
		values:  make(map[string]any, len(schema)),
		origins: make(map[string]Source, len(schema)),
	}
	for _, f := range schema {
		if v, ok := lookupEnv(f.Key); ok {
			coerced, err := coerceString(f, v)
			if err != nil {
				return nil, err
			}
			r.values[f.Key], r.origins[f.Key] = coerced, SourceEnv
			continue
		}
		if v, ok := args[flagName(f.Key)]; ok {
			coerced, err := coerceString(f, v)
			if err != nil {
				return nil, err
			}
			r.values[f.Key], r.origins[f.Key] = coerced, SourceArgs
			continue
		}
		if v, ok := dev[f.Key]; ok {
			coerced, err := coerce(f, v)
			if err != nil {
				return nil, err
			}
			r.values[f.Key], r.origins[f.Key] = coerced, SourceDevFile
			continue
		}
		coerced, err := coerce(f, f.Default)
		if err != nil {
			return nil, err
		}
		r.values[f.Key], r.origins[f.Key] = coerced, SourceDefault
	}
	return r, nil
}

// String returns the resolved string value for key ("" if unknown).
func (r *Resolved) String(key string) string {
	v, _ := r.values[key].(string)
	return v
}

// Int returns the resolved int value for key (0 if unknown).
func (r *Resolved) Int(key string) int {
	v, _ := r.values[key].(int)
	return v
}

// Bool returns the resolved bool value for key (false if unknown).
func (r *Resolved) Bool(key string) bool {
	v, _ := r.values[key].(bool)
	return v
}

// Origin reports which source satisfied key.
func (r *Resolved) Origin(key string) Source {
	return r.origins[key]
}

// Snapshot returns a copy of all resolved values keyed by schema key.
func (r *Resolved) Snapshot() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// flagName maps DATABASE_PORT to database-port.
func flagName(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "_", "-")
}

// parseArgs scans --name=value / --name value pairs. Unknown names stay in
// the map and are simply never probed; bare flags without a value are dropped.
func parseArgs(args []string) map[string]string {
	out := map[string]string{}
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "--") {
			continue
		}
		a = strings.TrimPrefix(a, "--")
		if name, val, ok := strings.Cut(a, "="); ok {
			out[name] = val
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			out[a] = args[i+1]
			i++
		}
	}
	return out
}

func loadDevFile(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dev config %s: %w", path, err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse dev config %s: %w", path, err)
	}
	return m, nil
}

func coerceString(f Field, raw string) (any, error) {
	switch f.Type {
	case String:
		return raw, nil
	case Int:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not an integer", errs.ErrConfigType, f.Key, raw)
		}
		return n, nil
	case Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not a boolean", errs.ErrConfigType, f.Key, raw)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: %s has unknown type", errs.ErrConfigType, f.Key)
}

// coerce handles values that already carry a YAML/native type.
func coerce(f Field, v any) (any, error) {
	if v == nil {
		switch f.Type {
		case String:
			return "", nil
		case Int:
			return 0, nil
		case Bool:
			return false, nil
		}
	}
	switch f.Type {
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", v), nil
	case Int:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			if n == float64(int(n)) {
				return int(n), nil
			}
		case string:
			return coerceString(f, n)
		}
	case Bool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			return coerceString(f, b)
		}
	}
	return nil, fmt.Errorf("%w: %s=%v cannot be coerced", errs.ErrConfigType, f.Key, v)
}
