package services

import (
	"slices"
	"strings"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
)

// ConnectionRegistry tracks the local connections scanned by the inspection
// worker, keyed by URI. It is owned by the worker and not safe for concurrent use.
type ConnectionRegistry struct {
	conns map[string]models.Connection
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{conns: make(map[string]models.Connection)}
}

// Add registers c. Nil and remote connections are ignored: inspection needs
// direct access to the disk images. It reports whether c was registered.
func (r *ConnectionRegistry) Add(c models.Connection) bool {
	if c == nil || !c.IsLocal() {
		return false
	}
	r.conns[c.URI()] = c
	return true
}

// Remove drops the connection registered under uri, if any.
func (r *ConnectionRegistry) Remove(uri string) bool {
	if _, ok := r.conns[uri]; !ok {
		return false
	}
	delete(r.conns, uri)
	return true
}

// Connections returns the registered connections ordered by URI.
func (r *ConnectionRegistry) Connections() []models.Connection {
	conns := make([]models.Connection, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	slices.SortFunc(conns, func(a, b models.Connection) int {
		return strings.Compare(a.URI(), b.URI())
	})
	return conns
}

func (r *ConnectionRegistry) URIs() []string {
	uris := make([]string, 0, len(r.conns))
	for uri := range r.conns {
		uris = append(uris, uri)
	}
	slices.Sort(uris)
	return uris
}
