package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Params holds a step's parameters as decoded from the workflow document:
// literals, template strings, arrays and nested step lists.
type Params map[string]any

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func (p Params) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// String returns the value for key rendered as a string; "" when absent.
func (p Params) String(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// StringOr returns String(key), or def when that is empty.
func (p Params) StringOr(key, def string) string {
	if s := p.String(key); s != "" {
		return s
	}
	return def
}

// Int accepts integers, whole floats and numeric strings.
func (p Params) Int(key string, def int) (int, error) {
	switch v := p[key].(type) {
	case nil:
		return def, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("param %q must be a whole number, got %v", key, v)
		}
		return int(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return def, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("param %q must be an integer, got %q", key, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("param %q must be an integer, got %T", key, v)
	}
}

func (p Params) Bool(key string, def bool) (bool, error) {
	switch v := p[key].(type) {
	case nil:
		return def, nil
	case bool:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return def, nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("param %q must be a boolean, got %q", key, v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("param %q must be a boolean, got %T", key, v)
	}
}

// Millis reads a duration given in milliseconds. Strings may also use Go
// duration syntax ("90s", "5m").
func (p Params) Millis(key string, def time.Duration) (time.Duration, error) {
	if s, ok := p[key].(string); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			if d < 0 {
				return 0, fmt.Errorf("param %q must not be negative", key)
			}
			return d, nil
		}
	}
	if !p.Has(key) {
		return def, nil
	}
	ms, err := p.Int(key, 0)
	if err != nil {
		return 0, err
	}
	if ms < 0 {
		return 0, fmt.Errorf("param %q must not be negative", key)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// Strings accepts a single string or a list of scalars.
func (p Params) Strings(key string) ([]string, error) {
	switch v := p[key].(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			switch item.(type) {
			case map[string]any, []any:
				return nil, fmt.Errorf("param %q[%d] must be a scalar", key, i)
			}
			out = append(out, fmt.Sprint(item))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("param %q must be a string or list, got %T", key, v)
	}
}

// Steps decodes a nested step list.
func (p Params) Steps(key string) ([]Step, error) {
	switch v := p[key].(type) {
	case nil:
		return nil, nil
	case []Step:
		return v, nil
	case []any, []map[string]any:
		// Re-encode the generic YAML tree and decode it as steps.
		raw, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding param %q: %w", key, err)
		}
		var steps []Step
		if err := yaml.Unmarshal(raw, &steps); err != nil {
			return nil, fmt.Errorf("param %q must be a list of steps: %w", key, err)
		}
		return steps, nil
	default:
		return nil, fmt.Errorf("param %q must be a list of steps, got %T", key, v)
	}
}
