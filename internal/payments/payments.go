package payments

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/propflow/settlement-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service handles payment record persistence
type Service struct {
	db *Database
}

// NewService creates a new payments service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// CreateRecord validates and persists a payment record snapshot.
// Missing identifiers are a validation failure; display fields are
// accepted as-is since they are a point-in-time copy.
func (s *Service) CreateRecord(record *PaymentRecord) error {
	logger := log.With().
		Str("invoice_number", record.InvoiceNumber).
		Str("service", "payments").
		Logger()

	var missing []string
	if record.InvoiceNumber == "" {
		missing = append(missing, "invoice_number")
	}
	if record.PropertyID == "" {
		missing = append(missing, "property_id")
	}
	if record.SellerID == "" {
		missing = append(missing, "seller_id")
	}
	if len(missing) > 0 {
		return response.NewValidationError(missing...)
	}

	record.PaymentID = "PAY_" + uuid.New().String()
	record.Status = StatusPending
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()

	if err := s.db.CreatePaymentRecord(record); err != nil {
		logger.Error().Err(err).Msg("failed to create payment record")
		return err
	}

	logger.Info().
		Str("payment_id", record.PaymentID).
		Float64("amount", record.Amount).
		Msg("payment record created")

	return nil
}

// GetRecordByInvoice returns the payment record for an invoice, nil if none
func (s *Service) GetRecordByInvoice(invoiceNumber string) (*PaymentRecord, error) {
	return s.db.GetPaymentRecordByInvoice(invoiceNumber)
}

// GetSellerRecords returns all payment records for a seller
func (s *Service) GetSellerRecords(sellerID string) ([]PaymentRecord, error) {
	return s.db.GetSellerPaymentRecords(sellerID)
}

// UpdateStatus updates the lifecycle status of a payment record
func (s *Service) UpdateStatus(paymentID, status string) error {
	return s.db.UpdatePaymentStatus(paymentID, status)
}

// GetDB exposes the store for the creator and the settlement processor
func (s *Service) GetDB() *Database {
	return s.db
}

// GinHandlers contains HTTP handlers for payment record endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// CreatePaymentRecordHandler handles POST requests from the invoice
// pipeline to persist a payment record snapshot
func (h *GinHandlers) CreatePaymentRecordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var record PaymentRecord
		if err := c.ShouldBindJSON(&record); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		if err := h.service.CreateRecord(&record); err != nil {
			response.Handle(c, nil, err)
			return
		}

		response.Success(c, record)
	}
}

// GetSellerPaymentRecordsHandler handles GET requests for a seller's records
func (h *GinHandlers) GetSellerPaymentRecordsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sellerID := c.Query("seller_id")
		if sellerID == "" {
			response.BadRequest(c, "seller_id is required")
			return
		}

		records, err := h.service.GetSellerRecords(sellerID)
		response.Handle(c, records, err)
	}
}

// UpdatePaymentStatusHandler handles PATCH requests to move a payment
// record through its lifecycle
func (h *GinHandlers) UpdatePaymentStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		paymentID := c.Param("payment_id")
		var request struct {
			Status string `json:"status" binding:"required"`
		}

		if err := c.ShouldBindJSON(&request); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		if err := h.service.UpdateStatus(paymentID, request.Status); err != nil {
			response.Handle(c, nil, err)
			return
		}

		response.Success(c, gin.H{"message": "payment status updated successfully"})
	}
}
