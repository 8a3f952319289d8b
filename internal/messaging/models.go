package messaging

import (
	"time"

	"gorm.io/gorm"
)

// Message types
const (
	TypeText       = "text"
	TypeSettlement = "settlement"
)

// Follow-up statuses
const (
	FollowUpOpen     = "OPEN"
	FollowUpResolved = "RESOLVED"
)

// Message is a conversation message. Settlement notices carry the invoice
// number as a structured column so downstream consumers never have to
// re-derive it from the message body.
type Message struct {
	gorm.Model    `json:"-"`
	MessageID     string    `gorm:"uniqueIndex" json:"message_id"`
	SenderID      string    `gorm:"index" json:"sender_id"`
	SenderRole    string    `json:"sender_role"`
	RecipientID   string    `gorm:"index" json:"recipient_id"`
	RecipientRole string    `json:"recipient_role"`
	MessageText   string    `json:"message_text"`
	MessageType   string    `json:"message_type"` // text, settlement
	PropertyID    string    `gorm:"index" json:"property_id,omitempty"`
	InvoiceNumber string    `gorm:"index" json:"invoice_number,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// FollowUp queues a settlement whose seller could not be resolved for
// manual handling, instead of notifying a guessed identity.
type FollowUp struct {
	gorm.Model `json:"-"`
	FollowUpID string    `gorm:"uniqueIndex" json:"follow_up_id"`
	PropertyID string    `gorm:"index" json:"property_id"`
	AgentID    string    `json:"agent_id"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"` // OPEN, RESOLVED
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SendRequest is the body of POST /messages
type SendRequest struct {
	SenderID      string `json:"sender_id"`
	SenderRole    string `json:"sender_role"`
	RecipientID   string `json:"recipient_id"`
	RecipientRole string `json:"recipient_role"`
	MessageText   string `json:"message_text"`
	MessageType   string `json:"message_type"`
	PropertyID    string `json:"property_id"`
	InvoiceNumber string `json:"invoice_number"`
}
