package backend

import (
	"fmt"
	"math"
)

// Context is the server-owned state bag. Only the keys this client reads or
// writes are interpreted; everything else is carried back verbatim.
type Context map[string]any

func (c Context) Clone() Context {
	if c == nil {
		return nil
	}

	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}

	return out
}

func (c Context) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// Truthy reports whether the value under key is set to something other than
// nil, false, zero, NaN or the empty string.
func (c Context) Truthy(key string) bool {
	return truthy(c[key])
}

// String returns the value under key as text, or "" when unset.
func (c Context) String(key string) string {
	switch v := c[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		if !truthy(v) {
			return ""
		}
		return fmt.Sprint(v)
	}
}

// Map returns the nested object under key, or nil.
func (c Context) Map(key string) Context {
	switch v := c[key].(type) {
	case map[string]any:
		return Context(v)
	case Context:
		return v
	default:
		return nil
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case float32:
		return t != 0 && !math.IsNaN(float64(t))
	case int:
		return t != 0
	case int64:
		return t != 0
	case int32:
		return t != 0
	default:
		return true
	}
}
