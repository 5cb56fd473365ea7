// Package schema derives JSON Schemas for tool inputs from Go struct tags and
// validates raw JSON arguments against them.
package schema

import (
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Schema represents a JSON Schema.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Format      string             `json:"format,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Description string             `json:"description,omitempty"`
	Default     any                `json:"default,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

// Describer is implemented by types that render their own schema, such as
// wrappers whose wire form differs from their Go shape.
type Describer interface {
	JSONSchema() *Schema
}

var (
	describerType = reflect.TypeOf((*Describer)(nil)).Elem()
	timeType      = reflect.TypeOf(time.Time{})
)

// Generate creates a JSON Schema from a Go value.
func Generate(v any) (*Schema, error) {
	return generateFromType(reflect.TypeOf(v))
}

// GenerateFromType creates a JSON Schema from a reflect.Type.
func GenerateFromType(t reflect.Type) (*Schema, error) {
	return generateFromType(t)
}

func generateFromType(t reflect.Type) (*Schema, error) {
	if t == nil {
		return &Schema{}, nil
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Implements(describerType) {
		return reflect.Zero(t).Interface().(Describer).JSONSchema(), nil
	}
	if t == timeType {
		return &Schema{Type: typeString, Format: "date-time"}, nil
	}

	switch t.Kind() {
	case reflect.Struct:
		return generateStructSchema(t)
	case reflect.String:
		return &Schema{Type: typeString}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: typeInteger}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: typeNumber}, nil
	case reflect.Bool:
		return &Schema{Type: typeBoolean}, nil
	case reflect.Slice, reflect.Array:
		return generateArraySchema(t)
	case reflect.Map:
		return &Schema{Type: typeObject}, nil
	default:
		return &Schema{}, nil
	}
}

func generateStructSchema(t reflect.Type) (*Schema, error) {
	schema := &Schema{
		Type:       typeObject,
		Properties: make(map[string]*Schema),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		fieldName := field.Name
		if jsonTag != "" {
			if name, _, _ := strings.Cut(jsonTag, ","); name != "" {
				fieldName = name
			}
		}

		fieldSchema, err := generateFromType(field.Type)
		if err != nil {
			return nil, err
		}
		// Describer results may be shared; tags must not leak between fields.
		copied := *fieldSchema
		fieldSchema = &copied

		applyTag(field.Tag.Get("jsonschema"), fieldSchema, &schema.Required, fieldName)
		schema.Properties[fieldName] = fieldSchema
	}

	return schema, nil
}

func generateArraySchema(t reflect.Type) (*Schema, error) {
	itemSchema, err := generateFromType(t.Elem())
	if err != nil {
		return nil, err
	}

	return &Schema{
		Type:  typeArray,
		Items: itemSchema,
	}, nil
}

// applyTag parses a jsonschema struct tag. Recognised parts are "required",
// "description=...", "minimum=N", "maximum=N" and "enum=a|b|c". Parts are
// comma separated, so descriptions cannot contain commas.
func applyTag(tag string, schema *Schema, required *[]string, fieldName string) {
	if tag == "" {
		return
	}

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		key, value, hasValue := strings.Cut(part, "=")

		switch {
		case key == "required" && !hasValue:
			*required = append(*required, fieldName)
		case key == "description":
			schema.Description = value
		case key == "minimum":
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				schema.Minimum = &f
			}
		case key == "maximum":
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				schema.Maximum = &f
			}
		case key == "enum":
			for _, v := range strings.Split(value, "|") {
				schema.Enum = append(schema.Enum, v)
			}
		}
	}
}
