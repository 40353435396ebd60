package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ValidationError holds a list of per-parameter validation errors.
// Transport layers map this to 422 Unprocessable Entity.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named parameter.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateValues checks a proposed value set against the active parameter
// catalog of a datastore version. Every key must name an active parameter,
// every value must match the parameter's declared type, and integer values
// must fall inside [min, max] when bounds are present. Validation is
// all-or-nothing: a single bad key fails the whole set.
//
// Keys are checked in sorted order so error output is deterministic.
func ValidateValues(values map[string]any, params map[string]*ConfigurationParameter) error {
	var ve ValidationError

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		param, ok := params[key]
		if !ok || param.Deleted {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   key,
				Message: "is not a supported configuration parameter",
			})
			continue
		}
		if fe := checkValue(key, values[key], param); fe != nil {
			ve.Errors = append(ve.Errors, *fe)
		}
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// checkValue validates a single value against its parameter definition.
func checkValue(key string, value any, param *ConfigurationParameter) *FieldError {
	switch param.Type {
	case TypeInteger:
		n, ok := asInt(value)
		if !ok {
			return &FieldError{Field: key, Message: fmt.Sprintf("must be an integer, got %v", value)}
		}
		if param.Min != nil && n < *param.Min {
			return &FieldError{
				Field:   key,
				Message: fmt.Sprintf("value %d is less than the minimum %d", n, *param.Min),
			}
		}
		if param.Max != nil && n > *param.Max {
			return &FieldError{
				Field:   key,
				Message: fmt.Sprintf("value %d is greater than the maximum %d", n, *param.Max),
			}
		}
	case TypeString:
		if _, ok := value.(string); !ok {
			return &FieldError{Field: key, Message: fmt.Sprintf("must be a string, got %v", value)}
		}
	case TypeBoolean:
		if !isBoolean(value) {
			return &FieldError{Field: key, Message: fmt.Sprintf("must be a boolean, got %v", value)}
		}
	default:
		return &FieldError{Field: key, Message: fmt.Sprintf("has unknown type %q", param.Type)}
	}
	return nil
}

// asInt extracts an integral value from a decoded JSON value. Values parsed
// with ParseValues arrive as json.Number; float64 is accepted for callers
// using plain json.Unmarshal, but only when it holds a whole number.
func asInt(value any) (int64, bool) {
	switch v := value.(type) {
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		n := int64(v)
		return n, float64(n) == v
	}
	return 0, false
}

// isBoolean accepts canonical booleans plus the 0/1 numeric encoding used
// by the database engine when reporting boolean variables back.
func isBoolean(value any) bool {
	if _, ok := value.(bool); ok {
		return true
	}
	if n, ok := asInt(value); ok {
		return n == 0 || n == 1
	}
	return false
}
