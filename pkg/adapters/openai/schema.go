package openai

import (
	"encoding/json"

	"github.com/aretw0/steve/pkg/turn"
	"github.com/invopop/jsonschema"
)

// ResponseSchema reflects the turn response into a strict-mode JSON schema.
func ResponseSchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(&turn.Response{})

	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	delete(m, "$schema")
	delete(m, "$id")

	strict(m)
	return m, nil
}

// strict applies the structured output rules: every object closed and every property required.
func strict(schema map[string]any) {
	properties, _ := schema["properties"].(map[string]any)

	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false

		required := make([]string, 0, len(properties))
		for name := range properties {
			required = append(required, name)
		}
		if len(required) > 0 {
			schema["required"] = required
		}
	}

	for _, prop := range properties {
		if m, ok := prop.(map[string]any); ok {
			strict(m)
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		strict(items)
	}
}
