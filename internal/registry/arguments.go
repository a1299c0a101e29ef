package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// MissingArgumentError reports every required parameter absent from an
// argument map. Validation is all-or-nothing: the full set of missing
// fields is collected before anything is invoked.
type MissingArgumentError struct {
	Tool   string
	Fields []string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("missing required argument(s) for %s: %s", e.Tool, strings.Join(e.Fields, ", "))
}

// InvalidArgumentError reports a type mismatch against the tool's
// parameter schema.
type InvalidArgumentError struct {
	Tool   string
	Detail string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument(s) for %s: %s", e.Tool, e.Detail)
}

// compiledSchema wraps the jsonschema compilation for a parameter list.
type compiledSchema struct {
	schema *jsonschema.Schema
}

// compileParameterSchema builds and compiles a JSON schema for the given
// parameter list. Returns nil for an empty list.
func compileParameterSchema(params []Parameter) (*compiledSchema, error) {
	if len(params) == 0 {
		return nil, nil
	}

	properties := make(map[string]any, len(params))
	for _, p := range params {
		prop := map[string]any{}
		if p.Type != "" {
			prop["type"] = p.Type
		}
		properties[p.Name] = prop
	}

	doc := map[string]any{
		"type":       "object",
		"properties": properties,
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("arguments.json", doc); err != nil {
		return nil, fmt.Errorf("compileParameterSchema: %w", err)
	}
	schema, err := c.Compile("arguments.json")
	if err != nil {
		return nil, fmt.Errorf("compileParameterSchema: %w", err)
	}
	return &compiledSchema{schema: schema}, nil
}

// ResolveArguments validates args against the descriptor's parameter list
// and returns a copy with defaults applied. Required checks run first and
// collect every missing field; type checks run against the compiled schema.
// The input map is never mutated.
func (d *ToolDescriptor) ResolveArguments(args map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(args))
	for k, v := range args {
		resolved[k] = v
	}

	var missing []string
	for _, p := range d.Parameters {
		if _, present := resolved[p.Name]; present {
			continue
		}
		if p.Default != nil {
			resolved[p.Name] = p.Default
			continue
		}
		if p.Required {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingArgumentError{Tool: d.Name, Fields: missing}
	}

	if d.argSchema != nil {
		if err := d.argSchema.schema.Validate(normalizeForSchema(resolved)); err != nil {
			return nil, &InvalidArgumentError{Tool: d.Name, Detail: err.Error()}
		}
	}

	return resolved, nil
}

// normalizeForSchema rewrites an argument map into the plain
// map[string]any / []any shape the schema validator expects.
func normalizeForSchema(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeForSchema(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeForSchema(val)
		}
		return out
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}
