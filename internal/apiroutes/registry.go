// Package apiroutes keeps a registry of the HTTP endpoints the service
// exposes so the status endpoint can enumerate them.
package apiroutes

import (
	"sort"
	"sync"
)

// APIRoute describes one exposed endpoint.
type APIRoute struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]APIRoute)
)

func key(method, path string) string {
	return method + " " + path
}

// Register records an endpoint. Re-registering the same method and path
// replaces the earlier description.
func Register(path, method, description string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[key(method, path)] = APIRoute{
		Path:        path,
		Method:      method,
		Description: description,
	}
}

// Get returns the registered routes sorted by path, then method.
func Get() []APIRoute {
	registryMu.RLock()
	defer registryMu.RUnlock()

	routes := make([]APIRoute, 0, len(registry))
	for _, r := range registry {
		routes = append(routes, r)
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}

// Count reports how many distinct endpoints are registered.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// ClearForTesting removes all registered routes. For use in tests only.
func ClearForTesting() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]APIRoute)
}
