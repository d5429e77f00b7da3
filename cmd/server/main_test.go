package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/id"
	"stockflow/internal/domain/documents"
)

func setAccounts(t *testing.T) map[string]id.ID {
	accounts := map[string]id.ID{
		"JOURNAL_ACCOUNT_INVENTORY":     id.New(),
		"JOURNAL_ACCOUNT_PAYABLES":      id.New(),
		"JOURNAL_ACCOUNT_RECEIVABLES":   id.New(),
		"JOURNAL_ACCOUNT_REVENUE":       id.New(),
		"JOURNAL_ACCOUNT_SALES_RETURNS": id.New(),
	}
	for k, v := range accounts {
		t.Setenv(k, v.String())
	}
	return accounts
}

func TestLoadJournal_Disabled(t *testing.T) {
	t.Setenv("JOURNAL_ENABLED", "")

	cfg, err := loadJournal()
	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.Nil(t, cfg.purchase())
	assert.Nil(t, cfg.saleReturn())
}

func TestLoadJournal_Enabled(t *testing.T) {
	t.Setenv("JOURNAL_ENABLED", "true")
	accounts := setAccounts(t)
	t.Setenv("JOURNAL_SALE_AMOUNT", "total - due")

	cfg, err := loadJournal()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, accounts["JOURNAL_ACCOUNT_INVENTORY"], cfg.accounts.Inventory)
	assert.Equal(t, accounts["JOURNAL_ACCOUNT_SALES_RETURNS"], cfg.accounts.SalesReturns)
	assert.Equal(t, "total - due", cfg.amounts[documents.KindSale].String())
	assert.Nil(t, cfg.amounts[documents.KindPurchase])
	assert.NotNil(t, cfg.purchase())
	assert.NotNil(t, cfg.sale())
}

func TestLoadJournal_RejectsBadConfig(t *testing.T) {
	t.Setenv("JOURNAL_ENABLED", "true")
	setAccounts(t)

	t.Setenv("JOURNAL_PURCHASE_AMOUNT", "total > 0")
	_, err := loadJournal()
	assert.ErrorContains(t, err, "JOURNAL_PURCHASE_AMOUNT")

	t.Setenv("JOURNAL_PURCHASE_AMOUNT", "")
	t.Setenv("JOURNAL_ACCOUNT_REVENUE", "not-a-uuid")
	_, err = loadJournal()
	assert.ErrorContains(t, err, "JOURNAL_ACCOUNT_REVENUE")
}
