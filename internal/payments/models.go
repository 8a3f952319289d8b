package payments

import (
	"time"

	"gorm.io/gorm"
)

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusFailed  = "failed"
)

// PaymentRecord is a denormalized snapshot of an invoice and its parties,
// captured at settlement time. Display fields are intentionally a
// point-in-time copy with no freshness guarantee.
type PaymentRecord struct {
	gorm.Model    `json:"-"`
	PaymentID     string    `gorm:"uniqueIndex" json:"payment_id"`
	InvoiceNumber string    `gorm:"index" json:"invoice_number"`
	PropertyID    string    `gorm:"index" json:"property_id"`
	PropertyTitle string    `json:"property_title"`
	SellerID      string    `gorm:"index" json:"seller_id"`
	SellerName    string    `json:"seller_name"`
	AgentID       string    `json:"agent_id"`
	AgentName     string    `json:"agent_name"`
	Amount        float64   `json:"amount"`
	DueDate       time.Time `json:"due_date"`
	Status        string    `json:"status"` // pending, paid, failed
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// QueuedDelivery holds a payment record whose delivery to the payments
// backend failed. The settlement processor re-attempts these.
type QueuedDelivery struct {
	gorm.Model
	DeliveryID string    `gorm:"uniqueIndex" json:"delivery_id"`
	Payload    string    `json:"payload"` // JSON-encoded PaymentRecord
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
