package invoice

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

func (d *Database) CreateInvoice(inv *Invoice) error {
	return d.db.Create(inv).Error
}

func (d *Database) GetInvoice(invoiceNumber string) (*Invoice, error) {
	var inv Invoice
	if err := d.db.Where("invoice_number = ?", invoiceNumber).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (d *Database) GetPropertyInvoices(propertyID string) ([]Invoice, error) {
	var invoices []Invoice
	if err := d.db.Where("property_id = ?", propertyID).Order("created_at DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (d *Database) GetSellerInvoices(sellerID string) ([]Invoice, error) {
	var invoices []Invoice
	if err := d.db.Where("seller_id = ?", sellerID).Order("created_at DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (d *Database) UpdateInvoiceStatus(invoiceNumber string, status string) error {
	result := d.db.Model(&Invoice{}).
		Where("invoice_number = ?", invoiceNumber).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errors.New("invoice not found")
	}

	return nil
}

// GetOverdueCandidates returns issued invoices whose due date has passed
func (d *Database) GetOverdueCandidates(asOf time.Time) ([]Invoice, error) {
	var invoices []Invoice
	if err := d.db.Where("status = ? AND due_date < ?", StatusIssued, asOf).Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}
