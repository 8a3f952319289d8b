package payments

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreatePaymentRecord(record *PaymentRecord) error {
	return d.db.Create(record).Error
}

func (d *Database) GetPaymentRecord(paymentID string) (*PaymentRecord, error) {
	var record PaymentRecord
	if err := d.db.Where("payment_id = ?", paymentID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (d *Database) GetPaymentRecordByInvoice(invoiceNumber string) (*PaymentRecord, error) {
	var record PaymentRecord
	if err := d.db.Where("invoice_number = ?", invoiceNumber).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (d *Database) GetSellerPaymentRecords(sellerID string) ([]PaymentRecord, error) {
	var records []PaymentRecord
	if err := d.db.Where("seller_id = ?", sellerID).Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (d *Database) UpdatePaymentStatus(paymentID string, status string) error {
	result := d.db.Model(&PaymentRecord{}).
		Where("payment_id = ?", paymentID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errors.New("payment record not found")
	}

	return nil
}

func (d *Database) CreateQueuedDelivery(delivery *QueuedDelivery) error {
	return d.db.Create(delivery).Error
}

func (d *Database) GetQueuedDeliveries(limit int) ([]QueuedDelivery, error) {
	var deliveries []QueuedDelivery
	if err := d.db.Order("created_at ASC").Limit(limit).Find(&deliveries).Error; err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (d *Database) UpdateQueuedDelivery(delivery *QueuedDelivery) error {
	return d.db.Save(delivery).Error
}

func (d *Database) DeleteQueuedDelivery(deliveryID string) error {
	return d.db.Where("delivery_id = ?", deliveryID).Delete(&QueuedDelivery{}).Error
}
