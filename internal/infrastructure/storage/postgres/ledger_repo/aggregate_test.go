package ledger_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Every writer must serialize on a real row lock: the lock query takes
// FOR UPDATE, and the ensure statement creates the missing row without
// touching an existing one, so a concurrent first movement for the same key
// blocks on the re-read instead of reading zero unlocked.
func TestAggregateLockStatements(t *testing.T) {
	assert.Contains(t, aggregateLockSQL, "FOR UPDATE")

	assert.Contains(t, aggregateEnsureSQL, "ON CONFLICT (stock_item_id, warehouse_id) DO NOTHING")
	assert.NotContains(t, aggregateEnsureSQL, "DO UPDATE",
		"ensuring the row must never overwrite a concurrent writer's state")
	assert.NotContains(t, aggregateEnsureSQL, "quantity_on_hand",
		"the placeholder row relies on the table's zero defaults")
}
