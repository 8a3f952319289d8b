package migrations

import (
	"github.com/propflow/settlement-api/internal/payments"
	"gorm.io/gorm"
)

// AddDeliveryQueue creates the queue table backing payment record
// re-delivery.
func AddDeliveryQueue(db *gorm.DB) error {
	return db.AutoMigrate(&payments.QueuedDelivery{})
}
