package journal_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/id"
	"stockflow/internal/domain/journal"
)

func TestListQuery(t *testing.T) {
	r := NewRepo(nil)
	ref := id.New()

	sql, args, err := r.listQuery(journal.Filter{RefType: "sale", RefID: &ref, Limit: 10}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM journal_entries WHERE ref_type = $1 AND ref_id = $2")
	assert.Contains(t, sql, "ORDER BY created_at, id LIMIT 10")
	assert.Equal(t, []any{"sale", ref.String()}, args)
}

func TestListQuery_DefaultLimit(t *testing.T) {
	sql, args, err := NewRepo(nil).listQuery(journal.Filter{}).ToSql()
	require.NoError(t, err)

	assert.NotContains(t, sql, "WHERE")
	assert.Contains(t, sql, "LIMIT 100")
	assert.Empty(t, args)
}

func TestColumnsCoverPosting(t *testing.T) {
	for _, c := range []string{"debit_account_id", "credit_account_id", "amount", "reversal", "action"} {
		assert.Contains(t, columns, c)
	}
}
