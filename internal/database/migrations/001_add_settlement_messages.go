package migrations

import (
	"github.com/propflow/settlement-api/internal/messaging"
	"gorm.io/gorm"
)

// AddSettlementMessages creates the message tables, including the
// structured invoice_number column on messages.
func AddSettlementMessages(db *gorm.DB) error {
	if err := db.AutoMigrate(&messaging.Message{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&messaging.FollowUp{}); err != nil {
		return err
	}

	return nil
}
