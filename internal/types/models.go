package types

import (
	"time"

	"gorm.io/gorm"
)

type Property struct {
	gorm.Model  `json:"-"`
	PropertyID  string     `gorm:"uniqueIndex" json:"property_id"`
	Title       string     `json:"title"`
	Address     string     `json:"address"`
	Price       float64    `json:"price"`
	Status      string     `json:"status"` // LISTED, UNDER_OFFER, SOLD, SETTLED
	SellerID    string     `json:"seller_id"`
	SellerName  string     `json:"seller_name"`
	SellerEmail string     `json:"seller_email"`
	AgentID     string     `json:"agent_id"`
	AgentName   string     `json:"agent_name"`
	BuyerID     string     `json:"buyer_id,omitempty"` // set once settled
	SettledAt   *time.Time `json:"settled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Buyer struct {
	gorm.Model  `json:"-"`
	BuyerID     string    `gorm:"uniqueIndex" json:"buyer_id"`
	PropertyID  string    `gorm:"index" json:"property_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	OfferAmount float64   `json:"offer_amount"`
	Status      string    `json:"status"` // INTERESTED, OFFER_MADE, ACCEPTED
	CreatedAt   time.Time `json:"created_at"`
}

type IdempotencyRecord struct {
	gorm.Model
	IdempotencyKey string    `gorm:"uniqueIndex" json:"idempotency_key"`
	ResourceID     string    `json:"resource_id"`
	ResourceType   string    `json:"resource_type"`
	ExpiresAt      time.Time `json:"expires_at"`
}
