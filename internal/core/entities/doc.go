// Package entities registers the venue directory's entities with the core
// registry. Import it for side effects:
//
//	import _ "github.com/lozio/venues/internal/core/entities"
package entities
