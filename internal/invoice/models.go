package invoice

import (
	"time"

	"github.com/propflow/settlement-api/internal/payments"
	"gorm.io/gorm"
)

const (
	StatusIssued  = "ISSUED"
	StatusPaid    = "PAID"
	StatusOverdue = "OVERDUE"
)

// Invoice kinds. A settlement invoice bills the seller for commission; a
// platform invoice is the server-generated platform-level commission record
// attached to a status change.
const (
	KindSettlement = "SETTLEMENT"
	KindPlatform   = "PLATFORM"
)

// BankDetails is the company account snapshot embedded in every invoice.
// Reference combines the invoice number with the tail of the seller id so
// transfers can be matched back.
type BankDetails struct {
	AccountName   string `json:"account_name"`
	BankName      string `json:"bank_name"`
	BSB           string `json:"bsb"`
	AccountNumber string `json:"account_number"`
	Reference     string `json:"reference"`
}

type Invoice struct {
	gorm.Model       `json:"-"`
	InvoiceNumber    string      `gorm:"uniqueIndex" json:"invoice_number"`
	Kind             string      `json:"kind"` // SETTLEMENT, PLATFORM
	PropertyID       string      `gorm:"index" json:"property_id"`
	PropertyTitle    string      `json:"property_title"`
	PropertyValue    float64     `json:"property_value"`
	CommissionRate   float64     `json:"commission_rate"`
	CommissionAmount float64     `json:"commission_amount"`
	GSTAmount        float64     `json:"gst_amount"`
	TotalAmount      float64     `json:"total_amount"`
	InvoiceDate      time.Time   `json:"invoice_date"`
	DueDate          time.Time   `json:"due_date"`
	SettlementDate   time.Time   `json:"settlement_date"`
	SellerID         string      `gorm:"index" json:"seller_id"`
	SellerName       string      `json:"seller_name"`
	SellerEmail      string      `json:"seller_email"`
	AgentID          string      `json:"agent_id"`
	AgentName        string      `json:"agent_name"`
	Status           string      `json:"status"` // ISSUED, PAID, OVERDUE
	Bank             BankDetails `gorm:"embedded;embeddedPrefix:bank_" json:"bank_details"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// GenerateRequest is the body of POST /invoices/generate-settlement
type GenerateRequest struct {
	PropertyID     string    `json:"property_id"`
	PropertyTitle  string    `json:"property_title"`
	PropertyPrice  float64   `json:"property_price"`
	SellerID       string    `json:"seller_id"`
	SellerName     string    `json:"seller_name"`
	SellerEmail    string    `json:"seller_email"`
	AgentID        string    `json:"agent_id"`
	AgentName      string    `json:"agent_name"`
	SettlementDate time.Time `json:"settlement_date"`
}

// PaymentInstructions mirrors the bank snapshot for client display
type PaymentInstructions struct {
	AccountName   string    `json:"account_name"`
	BankName      string    `json:"bank_name"`
	BSB           string    `json:"bsb"`
	AccountNumber string    `json:"account_number"`
	Reference     string    `json:"reference"`
	Amount        float64   `json:"amount"`
	DueDate       time.Time `json:"due_date"`
}

// GenerateResult is the data payload of a successful settlement invoice
// generation. PaymentRecord is nil when the best-effort delivery failed.
type GenerateResult struct {
	Invoice             *Invoice                `json:"invoice"`
	PaymentRecord       *payments.PaymentRecord `json:"payment_record"`
	EmailSent           bool                    `json:"email_sent"`
	DownloadURL         string                  `json:"download_url"`
	PaymentInstructions *PaymentInstructions    `json:"payment_instructions"`
}
