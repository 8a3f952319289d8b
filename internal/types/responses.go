package types

import "time"

// SettlementDetails carries the sale facts recorded when a property
// transitions to SETTLED.
type SettlementDetails struct {
	SalePrice      float64   `json:"sale_price"`
	SettlementDate time.Time `json:"settlement_date"`
	Notes          string    `json:"notes,omitempty"`
}

// StatusUpdateRequest is the body of PATCH /properties/:property_id/status
type StatusUpdateRequest struct {
	Status            string             `json:"status" binding:"required"`
	BuyerID           string             `json:"buyer_id,omitempty"`
	SettlementDetails *SettlementDetails `json:"settlement_details,omitempty"`
}
