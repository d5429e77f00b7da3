package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/id"
	"stockflow/internal/domain/refs"
)

func TestExistsQuery(t *testing.T) {
	r := NewResolver(nil)
	supplier := id.New()

	sql, args, err := r.existsQuery(refs.Supplier, supplier)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT EXISTS(SELECT 1 FROM cat_suppliers WHERE id = $1 AND deleted_at IS NULL)",
		sql)
	assert.Equal(t, []any{supplier.String()}, args)
}

func TestExistsQuery_UnknownKind(t *testing.T) {
	_, _, err := NewResolver(nil).existsQuery(refs.Kind("warehouse"), id.New())
	assert.Error(t, err)
}

func TestEveryKindHasATable(t *testing.T) {
	for _, kind := range []refs.Kind{
		refs.Supplier, refs.Customer, refs.Store, refs.Employee,
		refs.PaymentMethod, refs.Product, refs.Batch,
	} {
		assert.NotEmpty(t, Tables[kind], kind)
	}
}
