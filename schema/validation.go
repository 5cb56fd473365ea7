package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	typeObject  = "object"
	typeArray   = "array"
	typeString  = "string"
	typeInteger = "integer"
	typeNumber  = "number"
	typeBoolean = "boolean"
)

// ValidationError describes one schema violation.
type ValidationError struct {
	Path    string // dotted path to the offending field, e.g. "mealData.calories"
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors collects every violation found in one document.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}

	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Validate checks raw JSON against the schema. It returns nil when valid and
// ValidationErrors otherwise.
func (s *Schema) Validate(data json.RawMessage) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return &ValidationError{Message: fmt.Sprintf("invalid JSON: %s", err)}
	}
	return s.ValidateValue(value)
}

// ValidateValue checks an already decoded JSON value (maps, slices, float64...).
func (s *Schema) ValidateValue(value any) error {
	var errs ValidationErrors
	s.validate("", value, &errs)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (s *Schema) validate(path string, value any, errs *ValidationErrors) {
	// null satisfies any type; absence is handled by Required.
	if value == nil {
		return
	}

	fail := func(format string, args ...any) {
		*errs = append(*errs, &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	switch s.Type {
	case typeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			fail("expected object, got %s", jsonKind(value))
			return
		}
		for _, name := range s.Required {
			if _, exists := obj[name]; !exists {
				*errs = append(*errs, &ValidationError{Path: joinPath(path, name), Message: "required field is missing"})
			}
		}
		for name, prop := range s.Properties {
			if v, exists := obj[name]; exists {
				prop.validate(joinPath(path, name), v, errs)
			}
		}

	case typeArray:
		items, ok := value.([]any)
		if !ok {
			fail("expected array, got %s", jsonKind(value))
			return
		}
		if s.Items == nil {
			return
		}
		for i, item := range items {
			s.Items.validate(fmt.Sprintf("%s[%d]", path, i), item, errs)
		}

	case typeString:
		str, ok := value.(string)
		if !ok {
			fail("expected string, got %s", jsonKind(value))
			return
		}
		if len(s.Enum) > 0 && !containsEnum(s.Enum, str) {
			fail("value %q must be one of %v", str, s.Enum)
		}

	case typeInteger:
		num, ok := value.(float64)
		if !ok {
			fail("expected integer, got %s", jsonKind(value))
			return
		}
		if num != float64(int64(num)) {
			fail("expected integer, got decimal number")
			return
		}
		s.checkRange(num, fail)

	case typeNumber:
		num, ok := value.(float64)
		if !ok {
			fail("expected number, got %s", jsonKind(value))
			return
		}
		s.checkRange(num, fail)

	case typeBoolean:
		if _, ok := value.(bool); !ok {
			fail("expected boolean, got %s", jsonKind(value))
		}
	}
}

func (s *Schema) checkRange(num float64, fail func(string, ...any)) {
	if s.Minimum != nil && num < *s.Minimum {
		fail("value %v is less than minimum %v", num, *s.Minimum)
	}
	if s.Maximum != nil && num > *s.Maximum {
		fail("value %v is greater than maximum %v", num, *s.Maximum)
	}
}

func containsEnum(enum []any, v string) bool {
	for _, e := range enum {
		if e == v {
			return true
		}
	}
	return false
}

// jsonKind names the JSON type of a decoded value.
func jsonKind(v any) string {
	switch v.(type) {
	case map[string]any:
		return typeObject
	case []any:
		return typeArray
	case string:
		return typeString
	case float64:
		return typeNumber
	case bool:
		return typeBoolean
	default:
		return fmt.Sprintf("%T", v)
	}
}

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}
