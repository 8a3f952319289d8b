package database

import (
	"fmt"

	"github.com/propflow/settlement-api/internal/database/migrations"
	"github.com/propflow/settlement-api/internal/invoice"
	"github.com/propflow/settlement-api/internal/payments"
	"github.com/propflow/settlement-api/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(path string) (*gorm.DB, error) {
	if path == "" {
		path = "settlement.db"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddSettlementMessages(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := migrations.AddDeliveryQueue(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Auto-migrate other schemas
	err = db.AutoMigrate(
		&types.Property{},
		&types.Buyer{},
		&types.IdempotencyRecord{},
		&invoice.Invoice{},
		&payments.PaymentRecord{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
