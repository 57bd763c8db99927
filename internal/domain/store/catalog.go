package store

import (
	"context"

	"github.com/shopspring/decimal"
)

// CatalogProduct is one row of the storefront catalog: the remote
// inventory snapshot enriched with the price book name and price.
type CatalogProduct struct {
	// Code is the ERP product code as reported by the remote
	Code string `json:"code"`
	// Name is the display name resolved from the price book
	Name string `json:"name"`
	// Quantity is the available stock from the last inventory snapshot
	Quantity decimal.Decimal `json:"quantity"`
	// Price is the selling price resolved from the price book
	Price decimal.Decimal `json:"price"`
	// Unit is the sales unit (e.g. "pcs", "box")
	Unit string `json:"unit"`
	// Category is the storefront category resolved from the price book
	Category string `json:"category"`
	// Resolved indicates whether the code matched a price book entry
	Resolved bool `json:"resolved"`
}

// ProductRecord is one row of the external price book: the normalized
// code to name/price/unit/category contract of the spreadsheet source.
type ProductRecord struct {
	Code     string
	Name     string
	Price    decimal.Decimal
	Unit     string
	Category string
}

// ProductSource is the port for the spreadsheet-backed price book.
// LoadAll is consumed at most once per process unless explicitly
// refreshed by the mapping resolver.
type ProductSource interface {
	LoadAll(ctx context.Context) ([]ProductRecord, error)
}
