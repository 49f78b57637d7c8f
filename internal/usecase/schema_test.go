package usecase

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpchat/internal/domain"
)

func TestCleanSchemaStripsNestedTitles(t *testing.T) {
	schema := map[string]any{
		"title": "GetWeatherArgs",
		"type":  "object",
		"properties": map[string]any{
			"city": map[string]any{"title": "City", "type": "string"},
			"title": map[string]any{ // a parameter that happens to be called title
				"title": "Title",
				"type":  "string",
			},
			"options": map[string]any{
				"title": "Options",
				"type":  "object",
				"properties": map[string]any{
					"units": map[string]any{"title": "Units", "type": "string", "enum": []any{"c", "f"}},
				},
				"required": []any{"units"},
			},
			"days": map[string]any{
				"type":  "array",
				"items": map[string]any{"title": "Day", "type": "integer"},
			},
			"when": map[string]any{
				"anyOf": []any{
					map[string]any{"title": "Date", "type": "string"},
					map[string]any{"title": "Null", "type": "null"},
				},
			},
		},
		"$defs": map[string]any{
			"Unit": map[string]any{"title": "Unit", "type": "string"},
		},
		"required": []any{"city"},
	}

	want := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city":  map[string]any{"type": "string"},
			"title": map[string]any{"type": "string"},
			"options": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"units": map[string]any{"type": "string", "enum": []any{"c", "f"}},
				},
				"required": []any{"units"},
			},
			"days": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "integer"},
			},
			"when": map[string]any{
				"anyOf": []any{
					map[string]any{"type": "string"},
					map[string]any{"type": "null"},
				},
			},
		},
		"$defs": map[string]any{
			"Unit": map[string]any{"type": "string"},
		},
		"required": []any{"city"},
	}

	assert.Equal(t, want, CleanSchema(schema))
}

func TestCleanSchemaLeavesValuesAlone(t *testing.T) {
	// "title" inside a default or an example is data, not an annotation.
	schema := map[string]any{
		"type":    "object",
		"default": map[string]any{"title": "Untitled"},
	}
	got := CleanSchema(schema).(map[string]any)
	assert.Equal(t, map[string]any{"title": "Untitled"}, got["default"])
}

func TestCleanSchemaNonMapping(t *testing.T) {
	for _, v := range []any{nil, "string", 42.0, true, []any{"a"}} {
		assert.Equal(t, v, CleanSchema(v))
	}
	malformed := map[string]any{"type": "object", "properties": "oops"}
	assert.Equal(t, malformed, CleanSchema(malformed))
}

func TestTranslateTools(t *testing.T) {
	tools := []domain.ToolDescriptor{
		{Name: "b", Description: "second", InputSchema: map[string]any{"title": "B", "type": "object"}},
		{Name: "a", Description: "first", InputSchema: "not-a-schema"},
		{Name: "a", Description: "duplicate"},
	}

	specs := TranslateTools(tools)
	require.Len(t, specs, 3)
	assert.Equal(t, "b", specs[0].Name)
	assert.Equal(t, "second", specs[0].Description)
	assert.Equal(t, map[string]any{"type": "object"}, specs[0].Parameters)
	assert.Equal(t, "not-a-schema", specs[1].Parameters)
	assert.Equal(t, "duplicate", specs[2].Description, "no deduplication")
	assert.Nil(t, specs[2].Parameters)

	assert.Empty(t, TranslateTools(nil))
}

// randomSchema builds schema-shaped JSON values for property checks.
type randomSchema struct{ V any }

func (randomSchema) Generate(r *rand.Rand, size int) reflect.Value {
	return reflect.ValueOf(randomSchema{V: genSchema(r, 4)})
}

var scalarKeys = []string{"type", "title", "description", "format", "minimum"}

func genScalar(r *rand.Rand) any {
	switch r.Intn(4) {
	case 0:
		return "s"
	case 1:
		return float64(r.Intn(100))
	case 2:
		return r.Intn(2) == 0
	default:
		return []any{"x", "y"}
	}
}

func genSchema(r *rand.Rand, depth int) any {
	if depth == 0 || r.Intn(5) == 0 {
		return genScalar(r)
	}
	node := map[string]any{}
	for _, k := range scalarKeys {
		if r.Intn(2) == 0 {
			node[k] = genScalar(r)
		}
	}
	if r.Intn(2) == 0 {
		props := map[string]any{}
		for _, name := range []string{"title", "city", "n"} {
			if r.Intn(2) == 0 {
				props[name] = genSchema(r, depth-1)
			}
		}
		node["properties"] = props
	}
	if r.Intn(3) == 0 {
		node["items"] = genSchema(r, depth-1)
	}
	if r.Intn(4) == 0 {
		node["anyOf"] = []any{genSchema(r, depth-1), genSchema(r, depth-1)}
	}
	return node
}

func deepCopy(t *testing.T, v any) any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var out any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

// hasTitle reports whether any schema node (not property name) carries title.
func hasTitle(v any) bool {
	node, ok := v.(map[string]any)
	if !ok {
		return false
	}
	if _, ok := node[titleKey]; ok {
		return true
	}
	if props, ok := node["properties"].(map[string]any); ok {
		for _, sub := range props {
			if hasTitle(sub) {
				return true
			}
		}
	}
	if hasTitle(node["items"]) {
		return true
	}
	if list, ok := node["anyOf"].([]any); ok {
		for _, sub := range list {
			if hasTitle(sub) {
				return true
			}
		}
	}
	return false
}

// sameExceptTitle checks that out is in with only title keywords removed.
func sameExceptTitle(in, out any) bool {
	inNode, ok := in.(map[string]any)
	if !ok {
		return reflect.DeepEqual(in, out)
	}
	outNode, ok := out.(map[string]any)
	if !ok {
		return false
	}
	expected := len(inNode)
	if _, ok := inNode[titleKey]; ok {
		expected--
	}
	if len(outNode) != expected {
		return false
	}
	for k, v := range outNode {
		switch k {
		case "properties":
			inProps, _ := inNode[k].(map[string]any)
			outProps, _ := v.(map[string]any)
			if len(inProps) != len(outProps) {
				return false
			}
			for name, sub := range outProps {
				if !sameExceptTitle(inProps[name], sub) {
					return false
				}
			}
		case "items":
			if !sameExceptTitle(inNode[k], v) {
				return false
			}
		case "anyOf":
			inList, _ := inNode[k].([]any)
			outList, _ := v.([]any)
			if len(inList) != len(outList) {
				return false
			}
			for i := range outList {
				if !sameExceptTitle(inList[i], outList[i]) {
					return false
				}
			}
		default:
			if !reflect.DeepEqual(inNode[k], v) {
				return false
			}
		}
	}
	return true
}

func TestCleanSchemaProperties(t *testing.T) {
	cfg := &quick.Config{MaxCount: 300}

	idempotent := func(s randomSchema) bool {
		once := CleanSchema(s.V)
		return reflect.DeepEqual(once, CleanSchema(once))
	}
	require.NoError(t, quick.Check(idempotent, cfg))

	noTitles := func(s randomSchema) bool {
		return !hasTitle(CleanSchema(s.V))
	}
	require.NoError(t, quick.Check(noTitles, cfg))

	onlyTitles := func(s randomSchema) bool {
		return sameExceptTitle(s.V, CleanSchema(s.V))
	}
	require.NoError(t, quick.Check(onlyTitles, cfg))

	pure := func(s randomSchema) bool {
		before := deepCopy(t, s.V)
		CleanSchema(s.V)
		return reflect.DeepEqual(before, deepCopy(t, s.V))
	}
	require.NoError(t, quick.Check(pure, cfg))
}

func TestTranslateToolsPreservesCount(t *testing.T) {
	f := func(names []string) bool {
		tools := make([]domain.ToolDescriptor, len(names))
		for i, n := range names {
			tools[i] = domain.ToolDescriptor{Name: n, InputSchema: map[string]any{"title": n}}
		}
		specs := TranslateTools(tools)
		if len(specs) != len(tools) {
			return false
		}
		for i := range specs {
			if specs[i].Name != names[i] {
				return false
			}
		}
		return true
	}
	require.NoError(t, quick.Check(f, nil))
}
