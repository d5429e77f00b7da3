package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/documents"
)

type testDoc struct {
	documents.Header
	SupplierID id.ID            `db:"supplier_id"`
	Lines      []documents.Line `db:"-"`
}

func TestColumns_FlattensEmbeddedHeader(t *testing.T) {
	cols := Columns[testDoc]()

	for _, c := range []string{"id", "created_at", "deleted_at", "number", "total_amount", "version", "supplier_id"} {
		assert.Contains(t, cols, c)
	}
	assert.NotContains(t, cols, "-")
	assert.Equal(t, "supplier_id", cols[len(cols)-1])
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	doc := &testDoc{
		Header:     documents.NewHeader(),
		SupplierID: id.New(),
	}
	doc.Number = "PUR-2026-00001"
	doc.TotalAmount = types.MustMoney("12.50")
	doc.DeletedAt = &now

	m := StructToMap(doc)
	require.NotNil(t, m)

	assert.Equal(t, doc.ID, m["id"])
	assert.Equal(t, "PUR-2026-00001", m["number"])
	assert.Equal(t, doc.TotalAmount, m["total_amount"])
	assert.Equal(t, &now, m["deleted_at"])
	assert.Equal(t, doc.SupplierID, m["supplier_id"])
	assert.Equal(t, 1, m["version"])
	_, hasLines := m["-"]
	assert.False(t, hasLines)
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
	var nilDoc *testDoc
	assert.Nil(t, StructToMap(nilDoc))
}
