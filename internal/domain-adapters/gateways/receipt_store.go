package gateways

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ochairo/keg/internal/domain/entities"
)

// ReceiptFileName is the receipt's file name inside an install prefix
const ReceiptFileName = "INSTALL_RECEIPT.json"

// ErrNoReceipt is returned by LoadReceipt when the prefix holds no receipt
var ErrNoReceipt = errors.New("no install receipt")

// ReceiptStore reads and writes install receipts as JSON files
type ReceiptStore struct {
	now func() time.Time
}

// NewReceiptStore creates a new receipt store
func NewReceiptStore() *ReceiptStore {
	return &ReceiptStore{now: time.Now}
}

// SaveReceipt writes receipt to <prefix>/INSTALL_RECEIPT.json, assigning an
// ID and install time when they are unset
func (s *ReceiptStore) SaveReceipt(_ context.Context, prefix string, receipt *entities.InstallReceipt) error {
	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}
	if receipt.InstalledAt.IsZero() {
		receipt.InstalledAt = s.now().UTC()
	}

	data, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode receipt: %w", err)
	}

	if err := os.MkdirAll(prefix, 0750); err != nil {
		return fmt.Errorf("failed to create prefix: %w", err)
	}
	//nolint:gosec // G306: receipts are world-readable metadata
	if err := os.WriteFile(filepath.Join(prefix, ReceiptFileName), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write receipt: %w", err)
	}
	return nil
}

// LoadReceipt reads the receipt of prefix. It returns ErrNoReceipt when the
// prefix has never been installed into.
func (s *ReceiptStore) LoadReceipt(_ context.Context, prefix string) (*entities.InstallReceipt, error) {
	//nolint:gosec // G304: prefix is the install prefix chosen by the user
	data, err := os.ReadFile(filepath.Join(prefix, ReceiptFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrNoReceipt, prefix)
		}
		return nil, fmt.Errorf("failed to read receipt: %w", err)
	}

	var receipt entities.InstallReceipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("failed to decode receipt: %w", err)
	}
	return &receipt, nil
}
