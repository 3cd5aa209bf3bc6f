// internal/repository/postgres/schema_test.go
package postgres

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func readInitMigration(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../../../migrations/00001_init.sql")
	require.NoError(t, err)
	return string(data)
}

// The expiry sweep deletes whole lots. Usage rows reference lots, so the
// reference must give way instead of blocking the delete: balance_id is
// nullable and goes NULL when its lot is destroyed.
func TestSchemaLetsExpirySweepDeleteReferencedLots(t *testing.T) {
	schema := readInitMigration(t)

	fk := regexp.MustCompile(`balance_id\s+BIGINT REFERENCES credit_balances\(id\) ON DELETE SET NULL`)
	require.True(t, fk.MatchString(schema),
		"credit_usages.balance_id must be nullable with ON DELETE SET NULL, or DeleteExpired fails on any lot that was ever consumed from")
	require.NotContains(t, schema, "balance_id    BIGINT NOT NULL")
}

func TestSchemaEnforcesOnePendingRequestPerTarget(t *testing.T) {
	schema := readInitMigration(t)

	require.Contains(t, schema, "idx_one_pending_request")
	require.Contains(t, schema, "COALESCE(plan_id, package_id)")

	idx := regexp.MustCompile(`idx_one_pending_request[^;]*WHERE status = 'pending'`)
	require.True(t, idx.MatchString(schema),
		"the pending-request index must be partial, resolved requests never conflict")
}

// Lots the sweep has not destroyed yet must already be unspendable and
// uncounted once their expiry passes.
func TestAvailableLotPredicateExcludesExpired(t *testing.T) {
	require.Contains(t, lotAvailable, "amount > 0")
	require.Contains(t, lotAvailable, "expires_at IS NULL OR expires_at > NOW()")
}

// The low-balance re-arm must ride inside the upsert statement itself so a
// deposit never issues a second, out-of-transaction update against a row the
// caller's transaction has locked.
func TestUpsertRearmsLowBalanceAlertInStatement(t *testing.T) {
	require.Contains(t, upsertBalanceQuery, "low_credit_notified = CASE")
	require.True(t, strings.Count(upsertBalanceQuery, "$8") == 1)
}
