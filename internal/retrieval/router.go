package retrieval

import (
	"strings"

	"github.com/DreamCats/medindex/internal/config"
)

// Router picks a source title from keywords in a free-text question.
type Router struct {
	routes []config.Route
}

// NewRouter creates a router. Routes are tried in order.
func NewRouter(routes []config.Route) *Router {
	return &Router{routes: routes}
}

// Route returns the source of the first route with a keyword contained in
// question (case-insensitive), or "" to search every source.
func (r *Router) Route(question string) string {
	q := strings.ToLower(question)
	for _, route := range r.routes {
		for _, kw := range route.Keywords {
			if kw != "" && strings.Contains(q, strings.ToLower(kw)) {
				return route.Source
			}
		}
	}
	return ""
}
