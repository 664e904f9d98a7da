// Package jsonschema derives small JSON Schema documents from Go types using
// reflection. The schemas are embedded in prompts to tell a model the exact
// shape a structured answer must take.
//
// Structs, primitives, slices, string-keyed maps and pointers are supported.
// Recursive types are rejected since the prompt has no room for $ref chains.
package jsonschema
