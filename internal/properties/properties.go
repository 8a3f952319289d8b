package properties

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/propflow/settlement-api/internal/invoice"
	"github.com/propflow/settlement-api/internal/types"
	"github.com/propflow/settlement-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var ErrInvalidStatus = errors.New("invalid property status")

var validStatuses = map[string]bool{
	StatusListed:     true,
	StatusUnderOffer: true,
	StatusSold:       true,
	StatusSettled:    true,
}

// Service handles property and buyer management
type Service struct {
	db          *Database
	assignments *AssignmentStore
	invoices    *invoice.Service
}

// NewService creates a new properties service. invoices is used to attach
// the platform commission invoice to SETTLED transitions; it may be nil in
// tests that do not exercise settlement.
func NewService(gormDB *gorm.DB, invoices *invoice.Service) *Service {
	return &Service{
		db:          NewDatabase(gormDB),
		assignments: NewAssignmentStore(),
		invoices:    invoices,
	}
}

// CreateProperty creates a new property listing with idempotency support
func (s *Service) CreateProperty(property *types.Property, idempotencyKey string) error {
	record, err := s.db.GetIdempotencyRecord(idempotencyKey)

	// If record exists and hasn't expired, return the existing property
	if err == nil && record != nil && record.ExpiresAt.After(time.Now()) {
		existing, err := s.db.GetProperty(record.ResourceID)
		if err != nil {
			return err
		}
		if existing == nil {
			return errors.New("property not found")
		}
		*property = *existing
		return nil
	}

	var missing []string
	if property.Title == "" {
		missing = append(missing, "title")
	}
	if property.Price <= 0 {
		missing = append(missing, "price")
	}
	if property.SellerID == "" {
		missing = append(missing, "seller_id")
	}
	if len(missing) > 0 {
		return response.NewValidationError(missing...)
	}

	property.PropertyID = "PRP_" + uuid.New().String()
	property.Status = StatusListed
	property.CreatedAt = time.Now()
	property.UpdatedAt = time.Now()

	if err := s.db.CreatePropertyWithIdempotency(property, idempotencyKey); err != nil {
		return err
	}

	s.assignments.Put(property)
	return nil
}

// GetProperty retrieves a property by its ID
func (s *Service) GetProperty(propertyID string) (*types.Property, error) {
	return s.db.GetProperty(propertyID)
}

// GetAgentProperties retrieves all properties assigned to an agent
func (s *Service) GetAgentProperties(agentID string) ([]types.Property, error) {
	return s.db.GetAgentProperties(agentID)
}

// AddBuyer registers buyer interest against a property
func (s *Service) AddBuyer(propertyID string, req *AddBuyerRequest) (*types.Buyer, error) {
	property, err := s.db.GetProperty(propertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, gorm.ErrRecordNotFound
	}

	status := req.Status
	if status == "" {
		status = BuyerInterested
	}

	buyer := &types.Buyer{
		BuyerID:     "BYR_" + uuid.New().String(),
		PropertyID:  propertyID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		OfferAmount: req.OfferAmount,
		Status:      status,
		CreatedAt:   time.Now(),
	}

	if err := s.db.CreateBuyer(buyer); err != nil {
		return nil, err
	}

	return buyer, nil
}

// GetBuyers returns the buyers recorded against a property
func (s *Service) GetBuyers(propertyID string) ([]types.Buyer, error) {
	return s.db.GetPropertyBuyers(propertyID)
}

// UpdateStatus transitions a property to a new status. A transition to
// SETTLED records the buyer and settlement date and attaches a platform
// commission invoice; platform invoice failure does not fail the update.
func (s *Service) UpdateStatus(propertyID string, req *types.StatusUpdateRequest) (*types.Property, *invoice.Invoice, error) {
	logger := log.With().
		Str("property_id", propertyID).
		Str("service", "properties").
		Logger()

	if !validStatuses[req.Status] {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidStatus, req.Status)
	}

	property, err := s.db.GetProperty(propertyID)
	if err != nil {
		return nil, nil, err
	}
	if property == nil {
		return nil, nil, gorm.ErrRecordNotFound
	}

	property.Status = req.Status
	property.UpdatedAt = time.Now()

	salePrice := property.Price
	if req.Status == StatusSettled {
		settledAt := time.Now()
		if req.SettlementDetails != nil {
			if !req.SettlementDetails.SettlementDate.IsZero() {
				settledAt = req.SettlementDetails.SettlementDate
			}
			if req.SettlementDetails.SalePrice > 0 {
				salePrice = req.SettlementDetails.SalePrice
			}
		}
		property.SettledAt = &settledAt
		if req.BuyerID != "" {
			property.BuyerID = req.BuyerID
		}
	}

	if err := s.db.UpdateProperty(property); err != nil {
		logger.Error().Err(err).Msg("failed to update property status")
		return nil, nil, fmt.Errorf("failed to update property status: %w", err)
	}

	// Optimistic cache patch after the committed write
	s.assignments.Patch(propertyID, property.Status)

	logger.Info().
		Str("status", property.Status).
		Msg("property status updated")

	var platformInvoice *invoice.Invoice
	if req.Status == StatusSettled && s.invoices != nil {
		platformInvoice, err = s.invoices.GeneratePlatform(property, salePrice)
		if err != nil {
			logger.Warn().Err(err).Msg("platform invoice generation failed, status update stands")
			platformInvoice = nil
		}
	}

	return property, platformInvoice, nil
}

// Assignments exposes the snapshot store for the settlement orchestrator
func (s *Service) Assignments() *AssignmentStore {
	return s.assignments
}

// ResolveSeller resolves the seller identity for a property, preferring
// the assignment snapshot and falling back to the persisted property. An
// empty seller id means resolution failed; callers must not guess.
func (s *Service) ResolveSeller(propertyID string) (AssignmentSnapshot, bool) {
	if snapshot, ok := s.assignments.Get(propertyID); ok && snapshot.SellerID != "" {
		return snapshot, true
	}

	property, err := s.db.GetProperty(propertyID)
	if err != nil || property == nil {
		return AssignmentSnapshot{}, false
	}
	if property.SellerID == "" {
		return AssignmentSnapshot{}, false
	}

	s.assignments.Put(property)
	snapshot, _ := s.assignments.Get(propertyID)
	return snapshot, true
}

// GinHandlers contains HTTP handlers for property endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// CreatePropertyHandler handles POST requests to create property listings
// Requires an idempotency key in headers
func (h *GinHandlers) CreatePropertyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		idempotencyKey := c.GetHeader("Idempotency-Key")
		if idempotencyKey == "" {
			response.BadRequest(c, "Idempotency-Key header is required")
			return
		}

		var property types.Property
		if err := c.ShouldBindJSON(&property); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		if err := h.service.CreateProperty(&property, idempotencyKey); err != nil {
			response.Handle(c, nil, err)
			return
		}

		response.Success(c, property)
	}
}

// GetPropertyHandler handles GET requests for a single property
func (h *GinHandlers) GetPropertyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		propertyID := c.Param("property_id")

		property, err := h.service.GetProperty(propertyID)
		if err != nil || property == nil {
			response.NotFound(c, "Property not found")
			return
		}

		response.Success(c, property)
	}
}

// UpdateStatusHandler handles PATCH /properties/:property_id/status
// A SETTLED transition includes the generated platform invoice in the
// response payload
func (h *GinHandlers) UpdateStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		propertyID := c.Param("property_id")

		var req types.StatusUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		property, platformInvoice, err := h.service.UpdateStatus(propertyID, &req)
		if err != nil {
			if errors.Is(err, ErrInvalidStatus) {
				response.BadRequest(c, err.Error())
				return
			}
			response.Handle(c, nil, err)
			return
		}

		payload := gin.H{"property": property}
		if platformInvoice != nil {
			payload["platform_invoice"] = platformInvoice
		}
		response.Success(c, payload)
	}
}

// GetBuyersHandler handles GET /properties/:property_id/buyers
func (h *GinHandlers) GetBuyersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		propertyID := c.Param("property_id")

		property, err := h.service.GetProperty(propertyID)
		if err != nil || property == nil {
			response.NotFound(c, "Property not found")
			return
		}

		buyers, err := h.service.GetBuyers(propertyID)
		response.Handle(c, buyers, err)
	}
}

// AddBuyerHandler handles POST /properties/:property_id/buyers
func (h *GinHandlers) AddBuyerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		propertyID := c.Param("property_id")

		var req AddBuyerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		buyer, err := h.service.AddBuyer(propertyID, &req)
		response.Handle(c, buyer, err)
	}
}
