// Package tools exposes the open API client as named tools that take JSON
// arguments and return JSON-encodable results. The HTTP gateway and the
// one-shot CLI share this registry.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/larkbridge/internal/lark"
)

// ErrUnknownTool is returned by Call for names not in the registry.
var ErrUnknownTool = errors.New("tools: unknown tool")

// ArgumentError reports tool arguments that failed to decode or validate.
type ArgumentError struct {
	Tool string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("tools: %s: invalid arguments: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// Tool is a named operation with a human readable description.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	run func(ctx context.Context, r *Registry, args json.RawMessage) (any, error)
}

// Registry dispatches tool calls to a lark.Client.
type Registry struct {
	client   *lark.Client
	validate *validator.Validate
	tools    map[string]Tool
}

// New creates a registry with every tool bound to client.
func New(client *lark.Client) *Registry {
	r := &Registry{
		client:   client,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		tools:    make(map[string]Tool),
	}
	for _, t := range builtin() {
		r.tools[t.Name] = t
	}
	return r
}

// List returns the registered tools sorted by name.
func (r *Registry) List() []Tool {
	list := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		list = append(list, t)
	}
	slices.SortFunc(list, func(a, b Tool) int { return strings.Compare(a.Name, b.Name) })
	return list
}

// Call runs the named tool. Empty args are treated as {}.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage("{}")
	}
	return t.run(ctx, r, args)
}

// define binds a typed argument struct to a tool. Arguments are decoded
// strictly and validated with struct tags before fn runs.
func define[A any](name, description string, fn func(ctx context.Context, c *lark.Client, args A) (any, error)) Tool {
	return Tool{
		Name:        name,
		Description: description,
		run: func(ctx context.Context, r *Registry, raw json.RawMessage) (any, error) {
			var args A
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&args); err != nil {
				return nil, &ArgumentError{Tool: name, Err: err}
			}
			if err := r.validate.Struct(args); err != nil {
				return nil, &ArgumentError{Tool: name, Err: err}
			}
			return fn(ctx, r.client, args)
		},
	}
}
