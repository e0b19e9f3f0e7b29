// Package parse normalizes raw responses into documents the fingerprint
// and change-detection stages can consume, one parser per content family.
package parse

import (
	"fmt"
	"strings"

	"github.com/docwatch/docwatch/internal/watch"
)

// Registry dispatches a resolved content type to its parser. Adding a
// format means registering one more implementation, not touching dispatch.
type Registry struct {
	parsers map[watch.ContentType]watch.Parser
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[watch.ContentType]watch.Parser)}
}

// Default returns a registry with all supported formats wired in.
func Default() *Registry {
	r := NewRegistry()
	r.Register(&HTML{})
	r.Register(&OpenAPI{})
	r.Register(&JSON{})
	r.Register(&Postman{})
	r.Register(&Markdown{})
	return r
}

// Register adds or replaces the parser for its content type.
func (r *Registry) Register(p watch.Parser) {
	r.parsers[p.ContentType()] = p
}

// Lookup returns the parser for the resolved content type.
func (r *Registry) Lookup(ct watch.ContentType) (watch.Parser, error) {
	p, ok := r.parsers[ct]
	if !ok {
		return nil, fmt.Errorf("no parser registered for content type %q", ct)
	}
	return p, nil
}

// collapseWhitespace folds runs of whitespace into single spaces so that
// incidental reformatting upstream does not register as a content change.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
