package usecase

import "mcpchat/internal/domain"

// titleKey is the display-only annotation removed from declared schemas.
const titleKey = "title"

// Schema keywords whose value is a single sub-schema or a list of them.
var subSchemaKeys = []string{
	"items", "additionalItems", "additionalProperties", "contains",
	"not", "if", "then", "else", "propertyNames", "unevaluatedItems", "unevaluatedProperties",
	"anyOf", "oneOf", "allOf", "prefixItems",
}

// Schema keywords whose value maps names to sub-schemas. The names are
// parameter or definition identifiers, never annotations.
var namedSchemaKeys = []string{"properties", "patternProperties", "$defs", "definitions", "dependentSchemas"}

// TranslateTools converts a remote tool catalog into function declarations
// for the model, one per descriptor and in the same order.
func TranslateTools(tools []domain.ToolDescriptor) []domain.ToolSpec {
	specs := make([]domain.ToolSpec, 0, len(tools))
	for _, t := range tools {
		specs = append(specs, domain.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  CleanSchema(t.InputSchema),
		})
	}
	return specs
}

// CleanSchema returns a copy of schema with every "title" keyword removed
// from the root and from each nested sub-schema. Non-mapping values are
// returned unchanged. The input is never modified and cleaning a cleaned
// schema is a no-op.
func CleanSchema(schema any) any {
	node, ok := schema.(map[string]any)
	if !ok {
		return schema
	}

	out := make(map[string]any, len(node))
	for k, v := range node {
		if k != titleKey {
			out[k] = v
		}
	}

	for _, k := range subSchemaKeys {
		if v, ok := out[k]; ok {
			out[k] = cleanSubSchema(v)
		}
	}
	for _, k := range namedSchemaKeys {
		named, ok := out[k].(map[string]any)
		if !ok {
			continue
		}
		cleaned := make(map[string]any, len(named))
		for name, sub := range named {
			cleaned[name] = CleanSchema(sub)
		}
		out[k] = cleaned
	}
	return out
}

func cleanSubSchema(v any) any {
	list, ok := v.([]any)
	if !ok {
		return CleanSchema(v)
	}
	cleaned := make([]any, len(list))
	for i, item := range list {
		cleaned[i] = CleanSchema(item)
	}
	return cleaned
}
