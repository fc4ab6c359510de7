// Package all registers every storage backend with the catalog factory.
// Binaries blank-import it so the configured kind is always available.
package all

import (
	_ "checklist/internal/storage/postgres"
	_ "checklist/internal/storage/sqlite"
)
