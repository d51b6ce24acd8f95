// Package redact masks sensitive fields in decoded JSON documents before they
// are written to the request log.
package redact

import "strings"

const DefaultMask = "***MASKED***"

// DefaultKeys are masked when no explicit key set is configured.
var DefaultKeys = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"api_key",
	"authorization",
	"refresh_token",
}

// Policy is an immutable set of case-insensitive key names and the literal
// that replaces their values. It is safe for concurrent use.
type Policy struct {
	keys map[string]struct{}
	mask string
}

func NewPolicy(mask string, keys ...string) *Policy {
	if mask == "" {
		mask = DefaultMask
	}
	if len(keys) == 0 {
		keys = DefaultKeys
	}
	p := &Policy{
		keys: make(map[string]struct{}, len(keys)),
		mask: mask,
	}
	for _, k := range keys {
		k = normalize(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		p.keys[k] = struct{}{}
	}
	return p
}

func DefaultPolicy() *Policy {
	return NewPolicy(DefaultMask, DefaultKeys...)
}

func (p *Policy) Mask() string {
	return p.mask
}

func (p *Policy) IsSensitive(key string) bool {
	if p == nil {
		return false
	}
	_, ok := p.keys[normalize(key)]
	return ok
}

// Apply returns a copy of v in which every value stored under a sensitive key,
// at any depth, is replaced by the mask. v itself is never modified. Scalars
// and nil pass through unchanged. v must be acyclic.
func (p *Policy) Apply(v any) any {
	if p == nil {
		return v
	}
	switch raw := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(raw))
		for key, val := range raw {
			if p.IsSensitive(key) {
				out[key] = p.mask
				continue
			}
			out[key] = p.Apply(val)
		}
		return out
	case []any:
		out := make([]any, len(raw))
		for i, val := range raw {
			out[i] = p.Apply(val)
		}
		return out
	default:
		return v
	}
}

// normalize folds case only; " password " is a different key.
func normalize(key string) string {
	return strings.ToLower(key)
}
