// Package jsonschema derives a JSON Schema object from a Go struct type by
// reflection, sized to this module's one call site: generating the
// "parameters" fragment of a tool definition (internal/tools/defs.go) from a
// flat input struct. It supports exactly the field shapes those structs use
// — string, int, and bool — and does not attempt the teacher's fuller
// schema generator (nested structs, slices, maps, $ref/$defs, enums), none
// of which any tool input here needs.
package jsonschema
