package tool

import (
	"strings"

	"github.com/vk/benchgrid/internal/errs"
)

// ID is the stable opaque handle assigned to a tool at registration. IDs are
// dense and ordered by first registration, which keeps job generation
// deterministic for a given configuration.
type ID int

type entry struct {
	tool any
	name string
}

// Registry names builder and executor instances. The same instance may be
// registered any number of times under the same name (a tool shared across
// toolchains), but registering it under a second name is a configuration
// error. Tools are tracked in an arena indexed by ID; the identity index
// requires tool values to be comparable, which holds for the pointer-shaped
// tools the modules produce.
type Registry struct {
	entries []entry
	index   map[any]ID
	names   map[string]ID
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[any]ID),
		names: make(map[string]ID),
	}
}

// Register assigns name to the tool instance and returns its handle.
// Re-registering the same instance under the same name is a no-op returning
// the original handle.
func (r *Registry) Register(tool any, name string) (ID, error) {
	if strings.TrimSpace(name) == "" {
		return 0, errs.Config("tool name must not be empty or blank")
	}
	if id, ok := r.index[tool]; ok {
		if r.entries[id].name != name {
			return 0, errs.Configf("tool already registered as %q, cannot register it again as %q", r.entries[id].name, name)
		}
		return id, nil
	}
	if id, ok := r.names[name]; ok && r.entries[id].tool != tool {
		return 0, errs.Configf("each tool must have a unique name, %q is already taken", name)
	}

	id := ID(len(r.entries))
	r.entries = append(r.entries, entry{tool: tool, name: name})
	r.index[tool] = id
	r.names[name] = id
	return id, nil
}

// NameOf returns the registered name for a handle.
func (r *Registry) NameOf(id ID) string {
	return r.entries[id].name
}

// Tool returns the instance behind a handle.
func (r *Registry) Tool(id ID) any {
	return r.entries[id].tool
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.entries)
}
