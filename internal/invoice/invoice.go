package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/propflow/settlement-api/internal/config"
	"github.com/propflow/settlement-api/internal/payments"
	"github.com/propflow/settlement-api/internal/types"
	"github.com/propflow/settlement-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// RecordCreator delivers payment record snapshots to the payments backend.
// Failures are treated as best-effort by the invoice pipeline.
type RecordCreator interface {
	Create(ctx context.Context, record *payments.PaymentRecord) (*payments.PaymentRecord, error)
}

// Dispatcher sends the invoice email. Fallible and retryable; the boolean
// reports whether delivery was handed off.
type Dispatcher interface {
	SendInvoiceNotice(ctx context.Context, to, subject, body string) (bool, error)
}

// Service handles settlement and platform invoice generation
type Service struct {
	db      *Database
	bank    config.BankConfig
	creator RecordCreator
	mailer  Dispatcher
}

// NewService creates a new invoice service. creator and mailer may be nil
// in contexts (platform invoicing, tests) that do not exercise them.
func NewService(gormDB *gorm.DB, bank config.BankConfig, creator RecordCreator, mailer Dispatcher) *Service {
	return &Service{
		db:      NewDatabase(gormDB),
		bank:    bank,
		creator: creator,
		mailer:  mailer,
	}
}

// Generate runs the settlement invoice pipeline: validate, compute, persist,
// then best-effort payment record delivery and email dispatch. Payment
// record or email failure never fails the invoice itself.
func (s *Service) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	logger := log.With().
		Str("property_id", req.PropertyID).
		Str("service", "invoice").
		Logger()

	var missing []string
	if req.PropertyID == "" {
		missing = append(missing, "property_id")
	}
	if req.PropertyPrice <= 0 {
		missing = append(missing, "property_price")
	}
	if req.SellerID == "" {
		missing = append(missing, "seller_id")
	}
	if len(missing) > 0 {
		return nil, response.NewValidationError(missing...)
	}

	now := time.Now()
	settlementDate := req.SettlementDate
	if settlementDate.IsZero() {
		settlementDate = now
	}

	commission, gst, total := Calculate(req.PropertyPrice)
	number := NewInvoiceNumber(now)

	inv := &Invoice{
		InvoiceNumber:    number,
		Kind:             KindSettlement,
		PropertyID:       req.PropertyID,
		PropertyTitle:    req.PropertyTitle,
		PropertyValue:    req.PropertyPrice,
		CommissionRate:   CommissionRatePercent,
		CommissionAmount: commission,
		GSTAmount:        gst,
		TotalAmount:      total,
		InvoiceDate:      now,
		DueDate:          now.AddDate(0, 0, DueDays),
		SettlementDate:   settlementDate,
		SellerID:         req.SellerID,
		SellerName:       req.SellerName,
		SellerEmail:      req.SellerEmail,
		AgentID:          req.AgentID,
		AgentName:        req.AgentName,
		Status:           StatusIssued,
		Bank: BankDetails{
			AccountName:   s.bank.AccountName,
			BankName:      s.bank.BankName,
			BSB:           s.bank.BSB,
			AccountNumber: s.bank.AccountNumber,
			Reference:     BankReference(number, req.SellerID),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.CreateInvoice(inv); err != nil {
		logger.Error().Err(err).Msg("failed to create invoice record")
		return nil, fmt.Errorf("failed to create invoice record: %w", err)
	}

	logger.Info().
		Str("invoice_number", inv.InvoiceNumber).
		Float64("commission_amount", inv.CommissionAmount).
		Float64("gst_amount", inv.GSTAmount).
		Float64("total_amount", inv.TotalAmount).
		Time("due_date", inv.DueDate).
		Msg("settlement invoice generated")

	// Best-effort payment record. The invoice stands even when this fails.
	var record *payments.PaymentRecord
	if s.creator != nil {
		stored, err := s.creator.Create(ctx, &payments.PaymentRecord{
			InvoiceNumber: inv.InvoiceNumber,
			PropertyID:    inv.PropertyID,
			PropertyTitle: inv.PropertyTitle,
			SellerID:      inv.SellerID,
			SellerName:    inv.SellerName,
			AgentID:       inv.AgentID,
			AgentName:     inv.AgentName,
			Amount:        inv.TotalAmount,
			DueDate:       inv.DueDate,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("payment record creation failed, continuing without it")
		} else {
			record = stored
		}
	}

	emailSent := false
	if s.mailer != nil {
		sent, err := s.mailer.SendInvoiceNotice(ctx, inv.SellerEmail,
			fmt.Sprintf("Settlement invoice %s", inv.InvoiceNumber),
			s.emailBody(inv))
		if err != nil {
			logger.Warn().Err(err).Msg("invoice email dispatch failed")
		}
		emailSent = sent
	}

	return &GenerateResult{
		Invoice:       inv,
		PaymentRecord: record,
		EmailSent:     emailSent,
		DownloadURL:   fmt.Sprintf("/api/v1/invoices/%s/download", inv.InvoiceNumber),
		PaymentInstructions: &PaymentInstructions{
			AccountName:   inv.Bank.AccountName,
			BankName:      inv.Bank.BankName,
			BSB:           inv.Bank.BSB,
			AccountNumber: inv.Bank.AccountNumber,
			Reference:     inv.Bank.Reference,
			Amount:        inv.TotalAmount,
			DueDate:       inv.DueDate,
		},
	}, nil
}

// GeneratePlatform creates the platform-level commission invoice attached
// to a settled property status change.
func (s *Service) GeneratePlatform(property *types.Property, salePrice float64) (*Invoice, error) {
	logger := log.With().
		Str("property_id", property.PropertyID).
		Str("service", "invoice").
		Logger()

	if salePrice <= 0 {
		salePrice = property.Price
	}

	now := time.Now()
	commission, gst, total := Calculate(salePrice)
	number := NewInvoiceNumber(now)

	inv := &Invoice{
		InvoiceNumber:    number,
		Kind:             KindPlatform,
		PropertyID:       property.PropertyID,
		PropertyTitle:    property.Title,
		PropertyValue:    salePrice,
		CommissionRate:   CommissionRatePercent,
		CommissionAmount: commission,
		GSTAmount:        gst,
		TotalAmount:      total,
		InvoiceDate:      now,
		DueDate:          now.AddDate(0, 0, DueDays),
		SettlementDate:   now,
		SellerID:         property.SellerID,
		SellerName:       property.SellerName,
		SellerEmail:      property.SellerEmail,
		AgentID:          property.AgentID,
		AgentName:        property.AgentName,
		Status:           StatusIssued,
		Bank: BankDetails{
			AccountName:   s.bank.AccountName,
			BankName:      s.bank.BankName,
			BSB:           s.bank.BSB,
			AccountNumber: s.bank.AccountNumber,
			Reference:     BankReference(number, property.SellerID),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.CreateInvoice(inv); err != nil {
		logger.Error().Err(err).Msg("failed to create platform invoice")
		return nil, fmt.Errorf("failed to create platform invoice: %w", err)
	}

	logger.Info().
		Str("invoice_number", inv.InvoiceNumber).
		Float64("total_amount", inv.TotalAmount).
		Msg("platform invoice generated")

	return inv, nil
}

// GetInvoice retrieves an invoice by number
func (s *Service) GetInvoice(invoiceNumber string) (*Invoice, error) {
	return s.db.GetInvoice(invoiceNumber)
}

// GetSellerInvoices retrieves all invoices for a seller
func (s *Service) GetSellerInvoices(sellerID string) ([]Invoice, error) {
	return s.db.GetSellerInvoices(sellerID)
}

// MarkPaid transitions an invoice to PAID
func (s *Service) MarkPaid(invoiceNumber string) error {
	return s.db.UpdateInvoiceStatus(invoiceNumber, StatusPaid)
}

// SweepOverdue marks issued invoices past their due date as OVERDUE.
// Returns the number of invoices transitioned.
func (s *Service) SweepOverdue(asOf time.Time) (int, error) {
	logger := log.With().Str("service", "invoice").Logger()

	candidates, err := s.db.GetOverdueCandidates(asOf)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, inv := range candidates {
		if err := s.db.UpdateInvoiceStatus(inv.InvoiceNumber, StatusOverdue); err != nil {
			logger.Error().Err(err).Str("invoice_number", inv.InvoiceNumber).Msg("failed to mark invoice overdue")
			continue
		}
		swept++
		logger.Info().
			Str("invoice_number", inv.InvoiceNumber).
			Time("due_date", inv.DueDate).
			Msg("invoice marked overdue")
	}

	return swept, nil
}

func (s *Service) emailBody(inv *Invoice) string {
	return fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your settlement invoice for %s has been issued.\n\n"+
			"Invoice number: %s\n"+
			"Commission (%.1f%%): $%.2f\n"+
			"GST: $%.2f\n"+
			"Total due: $%.2f\n"+
			"Due date: %s\n\n"+
			"Payment reference: %s\n\n"+
			"Regards,\n%s",
		inv.SellerName, inv.PropertyTitle, inv.InvoiceNumber,
		inv.CommissionRate, inv.CommissionAmount, inv.GSTAmount, inv.TotalAmount,
		inv.DueDate.Format("2 January 2006"),
		inv.Bank.Reference, inv.Bank.AccountName,
	)
}

// GinHandlers contains HTTP handlers for invoice endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// GenerateSettlementHandler handles POST /invoices/generate-settlement
func (h *GinHandlers) GenerateSettlementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		result, err := h.service.Generate(c.Request.Context(), &req)
		response.Handle(c, result, err)
	}
}

// GetInvoiceHandler handles GET requests for a single invoice
func (h *GinHandlers) GetInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		invoiceNumber := c.Param("invoice_number")

		inv, err := h.service.GetInvoice(invoiceNumber)
		response.Handle(c, inv, err)
	}
}

// DownloadInvoiceHandler renders a plain-text copy of the invoice behind
// the download URL returned at generation time.
func (h *GinHandlers) DownloadInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		invoiceNumber := c.Param("invoice_number")

		inv, err := h.service.GetInvoice(invoiceNumber)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.txt", inv.InvoiceNumber))
		c.String(200, renderInvoiceText(inv))
	}
}

// MarkPaidHandler handles POST requests to mark an invoice paid
func (h *GinHandlers) MarkPaidHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		invoiceNumber := c.Param("invoice_number")

		if err := h.service.MarkPaid(invoiceNumber); err != nil {
			response.Handle(c, nil, err)
			return
		}

		response.Success(c, gin.H{"message": "invoice marked paid"})
	}
}

// GetSellerInvoicesHandler handles GET requests for a seller's invoices
func (h *GinHandlers) GetSellerInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sellerID := c.Query("seller_id")
		if sellerID == "" {
			response.BadRequest(c, "seller_id is required")
			return
		}

		invoices, err := h.service.GetSellerInvoices(sellerID)
		response.Handle(c, invoices, err)
	}
}

func renderInvoiceText(inv *Invoice) string {
	return fmt.Sprintf(
		"TAX INVOICE %s\n"+
			"Issued: %s\n"+
			"Due: %s\n\n"+
			"Property: %s (%s)\n"+
			"Sale price: $%.2f\n\n"+
			"Commission (%.1f%%): $%.2f\n"+
			"GST (10%%): $%.2f\n"+
			"TOTAL DUE: $%.2f\n\n"+
			"Pay to: %s\n"+
			"Bank: %s\n"+
			"BSB: %s  Account: %s\n"+
			"Reference: %s\n",
		inv.InvoiceNumber,
		inv.InvoiceDate.Format("2 January 2006"),
		inv.DueDate.Format("2 January 2006"),
		inv.PropertyTitle, inv.PropertyID,
		inv.PropertyValue,
		inv.CommissionRate, inv.CommissionAmount,
		inv.GSTAmount,
		inv.TotalAmount,
		inv.Bank.AccountName, inv.Bank.BankName,
		inv.Bank.BSB, inv.Bank.AccountNumber,
		inv.Bank.Reference,
	)
}
