package properties

import "time"

// Property statuses
const (
	StatusListed     = "LISTED"
	StatusUnderOffer = "UNDER_OFFER"
	StatusSold       = "SOLD"
	StatusSettled    = "SETTLED"
)

// Buyer statuses
const (
	BuyerInterested = "INTERESTED"
	BuyerOfferMade  = "OFFER_MADE"
	BuyerAccepted   = "ACCEPTED"
)

// AssignmentSnapshot is an agent's cached view of a property assignment,
// including the seller contact used for settlement notices.
type AssignmentSnapshot struct {
	PropertyID  string    `json:"property_id"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	SellerID    string    `json:"seller_id"`
	SellerName  string    `json:"seller_name"`
	SellerEmail string    `json:"seller_email"`
	AgentID     string    `json:"agent_id"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// AddBuyerRequest is the body of POST /properties/:property_id/buyers
type AddBuyerRequest struct {
	Name        string  `json:"name" binding:"required"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	OfferAmount float64 `json:"offer_amount"`
	Status      string  `json:"status"`
}
