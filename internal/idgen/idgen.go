// Package idgen builds worker_id strings and general-purpose UUIDs for
// rows the datastore doesn't assign a key to on insert.
package idgen

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/coinsensei/chain-workers/internal/log"
)

// WorkerID builds the f"{role}_{chain?}_{pid}_{hostname}" identifier
// mandated by §4.3. The chain segment is omitted when chain is empty;
// every cmd/ entrypoint passes its --chain name.
func WorkerID(role, chain string) string {
	host := log.MustGetHostname()
	pid := os.Getpid()
	if chain == "" {
		return fmt.Sprintf("%s_%d_%s", role, pid, host)
	}
	return fmt.Sprintf("%s_%s_%d_%s", role, chain, pid, host)
}

// New returns a fresh random UUID string.
func New() string {
	return uuid.NewString()
}
