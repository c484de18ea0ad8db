// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/keg/internal/domain/entities"
)

// FormulaRepository defines the interface for accessing package formulas
type FormulaRepository interface {
	// GetFormula retrieves a formula by name
	GetFormula(ctx context.Context, name string) (*entities.Formula, error)

	// ListFormulas returns all available formulas sorted by name
	ListFormulas(ctx context.Context) ([]*entities.Formula, error)
}

// ReceiptRepository persists install receipts inside an install prefix
type ReceiptRepository interface {
	// SaveReceipt writes the receipt into prefix
	SaveReceipt(ctx context.Context, prefix string, receipt *entities.InstallReceipt) error

	// LoadReceipt reads the receipt from prefix
	LoadReceipt(ctx context.Context, prefix string) (*entities.InstallReceipt, error)
}
