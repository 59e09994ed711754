// Package tools holds the agent's tool catalog: named, schema-described
// operations over the library and its collaborators.
package tools

import (
	"context"
	"fmt"

	"github.com/chris/researchhub/internal/llm"
)

// Executor runs a tool with already-validated arguments.
type Executor func(ctx context.Context, args map[string]any) (string, error)

type Tool struct {
	Definition llm.ToolDefinition
	Run        Executor
}

func (t Tool) Name() string { return t.Definition.Name }

// Invoke checks args against the tool's schema, then runs it.
func (t Tool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	if args == nil {
		args = map[string]any{}
	}
	if err := Validate(t.Definition.Parameters, args); err != nil {
		return "", err
	}
	return t.Run(ctx, args)
}

// Registry is immutable after construction and safe for concurrent use.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		name := t.Name()
		if name == "" {
			return nil, fmt.Errorf("tool without a name")
		}
		if t.Run == nil {
			return nil, fmt.Errorf("tool %s has no executor", name)
		}
		if _, dup := r.tools[name]; dup {
			return nil, fmt.Errorf("duplicate tool %s", name)
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return r, nil
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns a fresh copy of the catalog in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, len(r.order))
	for i, name := range r.order {
		defs[i] = r.tools[name].Definition
	}
	return defs
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
