package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/propflow/settlement-api/internal/invoice"
	"github.com/propflow/settlement-api/internal/messaging"
	"github.com/propflow/settlement-api/internal/properties"
	"github.com/propflow/settlement-api/internal/types"
	"github.com/propflow/settlement-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service orchestrates the settlement pipeline:
// buyers → status update → invoice → seller notification.
// The status update is the only fatal stage; everything after it degrades
// to a recorded warning so the committed settlement is never rolled back.
type Service struct {
	properties *properties.Service
	invoices   *invoice.Service
	messages   *messaging.Service
}

func NewService(props *properties.Service, invoices *invoice.Service, messages *messaging.Service) *Service {
	return &Service{
		properties: props,
		invoices:   invoices,
		messages:   messages,
	}
}

// Settle runs the settlement pipeline for a property. Buyer resolution
// happens before any mutation: zero buyers abort the chain, a single buyer
// is selected automatically, multiple buyers require an explicit buyer_id.
func (s *Service) Settle(ctx context.Context, propertyID, agentID string, req *SettleRequest) (*SettleResponse, error) {
	logger := log.With().
		Str("property_id", propertyID).
		Str("agent_id", agentID).
		Str("service", "settlement").
		Logger()

	logger.Info().Msg("starting settlement pipeline")

	property, err := s.properties.GetProperty(propertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, gorm.ErrRecordNotFound
	}
	if property.Status == properties.StatusSettled {
		return nil, ErrAlreadySettled
	}

	result := &SettleResponse{PropertyID: propertyID}

	// Stage 1: buyer resolution, before any status mutation
	buyer, err := s.resolveBuyer(propertyID, req.BuyerID)
	if err != nil {
		logger.Warn().Err(err).Msg("buyer resolution failed, aborting before status update")
		return nil, err
	}
	result.BuyerID = buyer.BuyerID
	result.Steps = append(result.Steps, StepResult{Name: StepResolveBuyers, Status: StepOK, Detail: buyer.BuyerID})

	// Stage 2: status update. Failure here aborts the whole chain.
	salePrice := req.SalePrice
	if salePrice <= 0 {
		salePrice = property.Price
	}
	details := &types.SettlementDetails{
		SalePrice:      salePrice,
		SettlementDate: req.SettlementDate,
		Notes:          req.Notes,
	}

	updated, platformInvoice, err := s.properties.UpdateStatus(propertyID, &types.StatusUpdateRequest{
		Status:            properties.StatusSettled,
		BuyerID:           buyer.BuyerID,
		SettlementDetails: details,
	})
	if err != nil {
		logger.Error().Err(err).Msg("status update failed, settlement aborted")
		return nil, fmt.Errorf("status update failed: %w", err)
	}
	result.Property = updated
	result.PlatformInvoice = platformInvoice
	result.Steps = append(result.Steps, StepResult{Name: StepUpdateStatus, Status: StepOK, Detail: properties.StatusSettled})

	// Stage 3: settlement invoice, with its embedded best-effort payment
	// record and email. Soft failure; the pipeline continues without it.
	var inv *invoice.Invoice
	generated, err := s.invoices.Generate(ctx, &invoice.GenerateRequest{
		PropertyID:     updated.PropertyID,
		PropertyTitle:  updated.Title,
		PropertyPrice:  salePrice,
		SellerID:       updated.SellerID,
		SellerName:     updated.SellerName,
		SellerEmail:    updated.SellerEmail,
		AgentID:        updated.AgentID,
		AgentName:      updated.AgentName,
		SettlementDate: details.SettlementDate,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("invoice generation failed, continuing settlement")
		result.Steps = append(result.Steps, StepResult{Name: StepGenerateInvoice, Status: StepWarn, Detail: err.Error()})
	} else {
		inv = generated.Invoice
		result.Invoice = inv
		result.PaymentRecord = generated.PaymentRecord
		result.EmailSent = generated.EmailSent
		result.Steps = append(result.Steps, StepResult{Name: StepGenerateInvoice, Status: StepOK, Detail: inv.InvoiceNumber})

		if generated.PaymentRecord == nil {
			result.Steps = append(result.Steps, StepResult{Name: StepPaymentRecord, Status: StepWarn, Detail: "payment record delivery failed, queued for retry"})
		} else {
			result.Steps = append(result.Steps, StepResult{Name: StepPaymentRecord, Status: StepOK, Detail: generated.PaymentRecord.PaymentID})
		}
	}

	// Stage 4: seller notification, always after the payment record
	// attempt and with whatever invoice data was produced.
	s.notifySeller(updated, agentID, inv, result)

	logger.Info().
		Str("buyer_id", result.BuyerID).
		Int("steps", len(result.Steps)).
		Msg("settlement pipeline completed")

	return result, nil
}

func (s *Service) resolveBuyer(propertyID, requestedBuyerID string) (*types.Buyer, error) {
	buyers, err := s.properties.GetBuyers(propertyID)
	if err != nil {
		return nil, err
	}

	switch {
	case len(buyers) == 0:
		return nil, ErrNoBuyers
	case len(buyers) == 1:
		return &buyers[0], nil
	}

	if requestedBuyerID == "" {
		return nil, &BuyerSelectionError{Buyers: buyers}
	}

	for i := range buyers {
		if buyers[i].BuyerID == requestedBuyerID {
			return &buyers[i], nil
		}
	}
	return nil, ErrUnknownBuyer
}

func (s *Service) notifySeller(property *types.Property, agentID string, inv *invoice.Invoice, result *SettleResponse) {
	logger := log.With().
		Str("property_id", property.PropertyID).
		Str("service", "settlement").
		Logger()

	snapshot, ok := s.properties.ResolveSeller(property.PropertyID)
	if !ok {
		followUp, err := s.messages.QueueFollowUp(property.PropertyID, agentID, "seller could not be resolved for settlement notice")
		if err != nil {
			logger.Error().Err(err).Msg("failed to queue seller follow-up")
			result.Steps = append(result.Steps, StepResult{Name: StepNotifySeller, Status: StepWarn, Detail: "seller unresolved and follow-up could not be queued"})
			return
		}
		result.FollowUp = followUp
		result.Steps = append(result.Steps, StepResult{Name: StepNotifySeller, Status: StepWarn, Detail: "seller unresolved, queued for manual follow-up"})
		return
	}

	message, err := s.messages.SendSettlementNotice(property, snapshot.SellerID, snapshot.SellerName, inv)
	if err != nil {
		logger.Warn().Err(err).Msg("settlement notice delivery failed, agent should follow up manually")
		result.Steps = append(result.Steps, StepResult{Name: StepNotifySeller, Status: StepWarn, Detail: "notice delivery failed, follow up manually"})
		return
	}

	result.Message = message
	result.Steps = append(result.Steps, StepResult{Name: StepNotifySeller, Status: StepOK, Detail: message.MessageID})
}

// GinHandlers contains HTTP handlers for settlement endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// SettlePropertyHandler handles POST /settlements/:property_id
func (h *GinHandlers) SettlePropertyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		propertyID := c.Param("property_id")
		agentID := c.GetString("clientID")

		var req SettleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		result, err := h.service.Settle(c.Request.Context(), propertyID, agentID, &req)
		if err != nil {
			var selection *BuyerSelectionError
			switch {
			case errors.As(err, &selection):
				response.BuyerSelectionRequired(c, selection.Buyers)
			case errors.Is(err, ErrNoBuyers):
				response.BadRequest(c, "No buyers found for property")
			case errors.Is(err, ErrUnknownBuyer):
				response.BadRequest(c, err.Error())
			case errors.Is(err, ErrAlreadySettled):
				response.Conflict(c, err.Error())
			default:
				response.Handle(c, nil, err)
			}
			return
		}

		response.Success(c, result)
	}
}
