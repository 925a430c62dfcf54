// Package schema renders JSON schemas for the toolkit's configuration
// structs, so editors can validate config files and optimizer space
// documents.
package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ToJSONSchema converts a struct to a JSON schema document.
func ToJSONSchema[T any](t T) (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(t)

	raw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(raw), nil
}
