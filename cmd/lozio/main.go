// Command lozio imports the directory's CSV sources into the generated data
// files of the site, merges curated records and syncs entities to Postgres.
//
//	lozio import                 # every entity
//	lozio import venues --watch  # re-import on change
//	lozio merge new-venues.json
//	lozio sync venues reviews
//	lozio ledger
package main

import (
	"fmt"
	"os"

	"github.com/lozio/venues/internal/core"
	_ "github.com/lozio/venues/internal/core/entities" // Register all entities
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if msg := core.MapError(err); msg.Code != "ERR000" {
			fmt.Fprintf(os.Stderr, "hint: %s (%s)\n", msg.Action, msg.Code)
		}
		os.Exit(1)
	}
}
