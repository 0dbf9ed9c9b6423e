// Package tools provides the tool registry and helpers for building tools
// an agent can call during generation.
package tools

import (
	"sort"
	"sync"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
)

// Registry is a thread-safe tool registry
type Registry struct {
	mu    sync.RWMutex
	tools map[string]interfaces.Tool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]interfaces.Tool),
	}
}

// Register registers a tool, replacing any tool with the same name
func (r *Registry) Register(tool interfaces.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools[tool.Name()] = tool
}

// Get returns a tool by name
func (r *Registry) Get(name string) (interfaces.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools ordered by name
func (r *Registry) List() []interfaces.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]interfaces.Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		list = append(list, tool)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})

	return list
}
