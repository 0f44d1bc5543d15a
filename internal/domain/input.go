package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseContext normalizes operator-supplied context JSON into the stored
// representation. Each dimension maps to either a single scalar or a list
// of scalars; scalars are coerced into one-element lists. Empty lists and
// non-scalar values are rejected, since a dimension with no values would
// silently collapse the whole cartesian product to nothing.
func ParseContext(raw map[string]any) (map[string][]string, error) {
	if len(raw) == 0 {
		return map[string][]string{}, nil
	}

	verr := NewValidationError("question context")
	out := make(map[string][]string, len(raw))
	for key, value := range raw {
		if strings.TrimSpace(key) == "" {
			verr.AddError("context dimension names must be non-empty")
			continue
		}

		switch v := value.(type) {
		case []any:
			if len(v) == 0 {
				verr.AddError(fmt.Sprintf("dimension %q must not be an empty list", key))
				continue
			}
			values := make([]string, 0, len(v))
			for _, item := range v {
				s, ok := coerceScalar(item)
				if !ok {
					verr.AddError(fmt.Sprintf("dimension %q contains a non-scalar value", key))
					continue
				}
				values = append(values, s)
			}
			out[key] = values
		default:
			s, ok := coerceScalar(value)
			if !ok {
				verr.AddError(fmt.Sprintf("dimension %q must be a scalar or a list of scalars", key))
				continue
			}
			out[key] = []string{s}
		}
	}

	if verr.HasErrors() {
		return nil, verr
	}
	return out, nil
}

// coerceScalar converts a decoded JSON scalar to its string form.
func coerceScalar(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	return "", false
}

// ParseChoices normalizes an operator-supplied choice list, stripping
// surrounding whitespace and dropping blank entries. Duplicates are kept
// here; pair generation deduplicates preserving first-seen order.
func ParseChoices(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Validate checks the question is well-formed for persistence: the
// template must compile and every context dimension must carry at least
// one value. A choice list with fewer than two distinct labels is allowed;
// it just produces zero comparisons.
func (q *Question) Validate() error {
	verr := NewValidationError("question")

	if strings.TrimSpace(q.Template) == "" {
		verr.AddError("template must not be empty")
	} else if _, err := CompileTemplate(q.Template); err != nil {
		verr.AddError(err.Error())
	}

	for key, values := range q.Context {
		if len(values) == 0 {
			verr.AddError(fmt.Sprintf("dimension %q must not be an empty list", key))
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}
