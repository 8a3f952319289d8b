package settlement

import (
	"errors"
	"fmt"
	"time"

	"github.com/propflow/settlement-api/internal/invoice"
	"github.com/propflow/settlement-api/internal/messaging"
	"github.com/propflow/settlement-api/internal/payments"
	"github.com/propflow/settlement-api/internal/types"
)

// Pipeline step names, in execution order
const (
	StepResolveBuyers   = "resolve_buyers"
	StepUpdateStatus    = "update_status"
	StepGenerateInvoice = "generate_invoice"
	StepPaymentRecord   = "payment_record"
	StepNotifySeller    = "notify_seller"
)

// Step outcomes. A warn outcome degrades the pipeline without aborting it;
// an error outcome is only ever produced by the status update, which is
// the single fatal stage.
const (
	StepOK    = "ok"
	StepWarn  = "warn"
	StepError = "error"
)

var (
	ErrNoBuyers       = errors.New("no buyers found for property")
	ErrAlreadySettled = errors.New("property is already settled")
	ErrUnknownBuyer   = errors.New("buyer is not registered against this property")
)

// BuyerSelectionError is returned when a property has multiple buyers and
// the request did not name one. The caller resumes by re-posting with the
// chosen buyer_id.
type BuyerSelectionError struct {
	Buyers []types.Buyer
}

func (e *BuyerSelectionError) Error() string {
	return fmt.Sprintf("buyer selection required: %d candidate buyers", len(e.Buyers))
}

// StepResult records the outcome of one pipeline stage
type StepResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // ok, warn, error
	Detail string `json:"detail,omitempty"`
}

// SettleRequest is the body of POST /settlements/:property_id
type SettleRequest struct {
	BuyerID        string    `json:"buyer_id"`
	SalePrice      float64   `json:"sale_price"`
	SettlementDate time.Time `json:"settlement_date"`
	Notes          string    `json:"notes,omitempty"`
}

// SettleResponse reports the pipeline outcome. Soft failures leave their
// fields nil and are visible in Steps; the committed status update is
// never rolled back by a later warn.
type SettleResponse struct {
	PropertyID      string                  `json:"property_id"`
	BuyerID         string                  `json:"buyer_id"`
	Property        *types.Property         `json:"property"`
	PlatformInvoice *invoice.Invoice        `json:"platform_invoice,omitempty"`
	Invoice         *invoice.Invoice        `json:"invoice,omitempty"`
	PaymentRecord   *payments.PaymentRecord `json:"payment_record,omitempty"`
	EmailSent       bool                    `json:"email_sent"`
	Message         *messaging.Message      `json:"message,omitempty"`
	FollowUp        *messaging.FollowUp     `json:"follow_up,omitempty"`
	Steps           []StepResult            `json:"steps"`
}
