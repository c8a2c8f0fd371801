package jsonschema

import (
	"encoding/json"
	"reflect"
	"strings"
)

// Schema is the subset of JSON Schema this package emits: an object with
// typed properties and a required list. Tool parameter schemas never need
// $ref/$defs/enum/additionalProperties — every input struct in this module
// is a single flat level.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// JsonString renders the schema as a JSON string.
func (s *Schema) JsonString() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// GenerateJSONSchema derives an object Schema from struct type T by
// reflection. A field's property name is its `json` tag name (or the
// lowercased Go field name if untagged), its description comes from a
// `jsonschema_description` tag, and it is required unless tagged
// `json:"...,omitempty"`. Non-struct T returns a bare object schema.
func GenerateJSONSchema[T any]() *Schema {
	t := reflect.TypeFor[T]()
	schema := &Schema{Type: "object", Properties: map[string]*Schema{}}
	if t.Kind() != reflect.Struct {
		return schema
	}

	var required []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name := strings.ToLower(field.Name)
		omitempty := false
		if tag := field.Tag.Get("json"); tag != "" {
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" {
					omitempty = true
				}
			}
		}

		schema.Properties[name] = &Schema{
			Type:        jsonType(field.Type.Kind()),
			Description: field.Tag.Get("jsonschema_description"),
		}
		if !omitempty {
			required = append(required, name)
		}
	}
	if len(required) > 0 {
		schema.Required = required
	}
	return schema
}

func jsonType(kind reflect.Kind) string {
	switch kind {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	default:
		return "string"
	}
}
