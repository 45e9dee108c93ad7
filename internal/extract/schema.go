package extract

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"lenslingua/internal/model"
)

func generateJSONSchema[T any]() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	var value T
	schema := reflector.Reflect(value)

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	// Providers reject the meta-schema keyword.
	delete(schemaMap, "$schema")
	delete(schemaMap, "$id")
	return schemaMap, nil
}

// ResponseSchema is the JSON schema of an extraction reply.
func ResponseSchema() (map[string]any, error) {
	return generateJSONSchema[model.Extraction]()
}
