package form

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer rewrites submitted values before the form sees them.
type Sanitizer interface {
	SanitizeValues(values Values) Values
}

// SanitizerFunc adapts a function to Sanitizer.
type SanitizerFunc func(values Values) Values

func (fn SanitizerFunc) SanitizeValues(values Values) Values { return fn(values) }

var (
	stripPolicyOnce sync.Once
	stripPolicy     *bluemonday.Policy
)

// StripTags removes all markup from submitted strings, recursing into nested
// value maps and lists. The result is plain text: entities the policy emits
// are decoded again, so "Tom & Jerry" is stored as typed.
func StripTags() Sanitizer {
	return SanitizerFunc(func(values Values) Values {
		policy := stripSanitizer()
		sanitized, _ := sanitizeValue(policy, values).(Values)
		return sanitized
	})
}

func sanitizeValue(policy *bluemonday.Policy, value any) any {
	switch typed := value.(type) {
	case string:
		if !strings.ContainsAny(typed, "<>&") {
			return typed
		}
		return html.UnescapeString(policy.Sanitize(typed))
	case Values:
		out := make(Values, len(typed))
		for key, nested := range typed {
			out[key] = sanitizeValue(policy, nested)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for idx, nested := range typed {
			out[idx] = sanitizeValue(policy, nested)
		}
		return out
	default:
		return value
	}
}

func stripSanitizer() *bluemonday.Policy {
	stripPolicyOnce.Do(func() {
		stripPolicy = bluemonday.StrictPolicy()
	})
	return stripPolicy
}
