package redis

import (
	"fmt"

	"github.com/mcoot/caseclicker-orchestrator/internal/model"
)

// Key prefix for all orchestrator data
const keyPrefix = "ccorch"

// accountKey returns the Redis key for an AccountState
func accountKey(id model.AccountID) string {
	return fmt.Sprintf("%s:account:%s", keyPrefix, id)
}

// accountsIndexKey returns the Redis key for the SET of known account ids
func accountsIndexKey() string {
	return fmt.Sprintf("%s:idx:accounts", keyPrefix)
}

// globalKey returns the Redis key for the GlobalState singleton
func globalKey() string {
	return fmt.Sprintf("%s:global", keyPrefix)
}
