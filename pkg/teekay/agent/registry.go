// Package agent contains the orchestration core: the per-conversation
// activity tracker, the spawn coordinator, the session runner and the
// tool surface the agent runtime calls back into.
package agent

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// ToolHandlerFunc executes one tool call with already-decoded arguments.
type ToolHandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// Definition describes a tool to the agent runtime: name, purpose and a
// JSON-schema parameter object.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type registeredTool struct {
	Definition Definition
	Handler    ToolHandlerFunc
}

// Registry is the closed tool surface for one agent session. Dispatch is
// by name; arguments are validated inside each handler and mistakes come
// back as results, not errors, so the runtime can show them to the model.
type Registry struct {
	tools map[string]registeredTool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registeredTool)}
}

// Register adds a tool. Re-registering a name replaces the old handler.
func (r *Registry) Register(def Definition, handler ToolHandlerFunc) {
	r.tools[def.Name] = registeredTool{Definition: def, Handler: handler}
}

// Definitions returns all tool definitions sorted by name.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute dispatches one tool call. Unknown tools are an error; handler
// errors pass through unchanged.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	if args == nil {
		args = map[string]any{}
	}
	return t.Handler(ctx, args)
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// ---- Argument helpers ----
//
// Runtime arguments arrive as decoded JSON; these helpers pull typed
// values out without panicking on model mistakes.

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0
		}
		return int(v)
	case int:
		return v
	}
	return 0
}

// objectSchema builds the JSON-schema parameter object for a tool.
func objectSchema(props map[string]any, required ...string) map[string]any {
	if props == nil {
		props = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

func enumProp(description string, values ...string) map[string]any {
	return map[string]any{"type": "string", "description": description, "enum": values}
}
