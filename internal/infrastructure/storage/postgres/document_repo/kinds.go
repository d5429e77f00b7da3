package document_repo

import (
	"stockflow/internal/domain/documents/purchase"
	"stockflow/internal/domain/documents/purchase_return"
	"stockflow/internal/domain/documents/sale"
	"stockflow/internal/domain/documents/sale_return"
	"stockflow/internal/infrastructure/storage/postgres"
)

var (
	PurchaseTables       = Tables{Header: "purchases", Lines: "purchase_lines"}
	SaleTables           = Tables{Header: "sales", Lines: "sale_lines"}
	PurchaseReturnTables = Tables{Header: "purchase_returns", Lines: "purchase_return_lines"}
	SaleReturnTables     = Tables{Header: "sale_returns", Lines: "sale_return_lines"}
)

// NewPurchaseRepo stores purchases.
func NewPurchaseRepo(txm *postgres.TxManager) *DocumentRepo[*purchase.Purchase] {
	return NewDocumentRepo(txm, PurchaseTables, postgres.Columns[purchase.Purchase](), purchase.New)
}

// NewSaleRepo stores sales.
func NewSaleRepo(txm *postgres.TxManager) *DocumentRepo[*sale.Sale] {
	return NewDocumentRepo(txm, SaleTables, postgres.Columns[sale.Sale](), sale.New)
}

// NewPurchaseReturnRepo stores purchase returns.
func NewPurchaseReturnRepo(txm *postgres.TxManager) *DocumentRepo[*purchase_return.PurchaseReturn] {
	return NewDocumentRepo(txm, PurchaseReturnTables, postgres.Columns[purchase_return.PurchaseReturn](), purchase_return.New)
}

// NewSaleReturnRepo stores sale returns.
func NewSaleReturnRepo(txm *postgres.TxManager) *DocumentRepo[*sale_return.SaleReturn] {
	return NewDocumentRepo(txm, SaleReturnTables, postgres.Columns[sale_return.SaleReturn](), sale_return.New)
}

var (
	_ purchase.Repository        = (*DocumentRepo[*purchase.Purchase])(nil)
	_ sale.Repository            = (*DocumentRepo[*sale.Sale])(nil)
	_ purchase_return.Repository = (*DocumentRepo[*purchase_return.PurchaseReturn])(nil)
	_ sale_return.Repository     = (*DocumentRepo[*sale_return.SaleReturn])(nil)
)
