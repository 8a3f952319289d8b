package messaging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/propflow/settlement-api/internal/invoice"
	"github.com/propflow/settlement-api/internal/types"
	"github.com/propflow/settlement-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service handles conversation messages and settlement notices
type Service struct {
	db *Database
}

// NewService creates a new messaging service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// Send validates and persists a conversation message
func (s *Service) Send(req *SendRequest) (*Message, error) {
	var missing []string
	if req.SenderID == "" {
		missing = append(missing, "sender_id")
	}
	if req.RecipientID == "" {
		missing = append(missing, "recipient_id")
	}
	if req.MessageText == "" {
		missing = append(missing, "message_text")
	}
	if len(missing) > 0 {
		return nil, response.NewValidationError(missing...)
	}

	messageType := req.MessageType
	if messageType == "" {
		messageType = TypeText
	}

	message := &Message{
		MessageID:     "MSG_" + uuid.New().String(),
		SenderID:      req.SenderID,
		SenderRole:    req.SenderRole,
		RecipientID:   req.RecipientID,
		RecipientRole: req.RecipientRole,
		MessageText:   req.MessageText,
		MessageType:   messageType,
		PropertyID:    req.PropertyID,
		InvoiceNumber: req.InvoiceNumber,
		CreatedAt:     time.Now(),
	}

	if err := s.db.CreateMessage(message); err != nil {
		return nil, err
	}

	log.Info().
		Str("message_id", message.MessageID).
		Str("message_type", message.MessageType).
		Str("recipient_id", message.RecipientID).
		Str("service", "messaging").
		Msg("message sent")

	return message, nil
}

// SendSettlementNotice composes and sends the settlement message to the
// resolved seller. inv may be nil when invoice generation failed upstream.
func (s *Service) SendSettlementNotice(property *types.Property, sellerID, sellerName string, inv *invoice.Invoice) (*Message, error) {
	invoiceNumber := ""
	if inv != nil {
		invoiceNumber = inv.InvoiceNumber
	}

	return s.Send(&SendRequest{
		SenderID:      property.AgentID,
		SenderRole:    "agent",
		RecipientID:   sellerID,
		RecipientRole: "seller",
		MessageText:   ComposeSettlementNotice(property.Title, sellerName, inv),
		MessageType:   TypeSettlement,
		PropertyID:    property.PropertyID,
		InvoiceNumber: invoiceNumber,
	})
}

// QueueFollowUp records a settlement that needs manual seller resolution
func (s *Service) QueueFollowUp(propertyID, agentID, reason string) (*FollowUp, error) {
	followUp := &FollowUp{
		FollowUpID: "FUP_" + uuid.New().String(),
		PropertyID: propertyID,
		AgentID:    agentID,
		Reason:     reason,
		Status:     FollowUpOpen,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := s.db.CreateFollowUp(followUp); err != nil {
		return nil, err
	}

	log.Warn().
		Str("follow_up_id", followUp.FollowUpID).
		Str("property_id", propertyID).
		Str("reason", reason).
		Str("service", "messaging").
		Msg("settlement queued for manual follow-up")

	return followUp, nil
}

// GetPropertyMessages returns the message history for a property
func (s *Service) GetPropertyMessages(propertyID string) ([]Message, error) {
	return s.db.GetPropertyMessages(propertyID)
}

// GetConversation returns the messages between two participants
func (s *Service) GetConversation(participantA, participantB string) ([]Message, error) {
	return s.db.GetConversation(participantA, participantB)
}

// GetOpenFollowUps returns unresolved follow-ups
func (s *Service) GetOpenFollowUps() ([]FollowUp, error) {
	return s.db.GetOpenFollowUps()
}

// ResolveFollowUp marks a follow-up as handled
func (s *Service) ResolveFollowUp(followUpID string) error {
	return s.db.ResolveFollowUp(followUpID)
}

// GinHandlers contains HTTP handlers for messaging endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// SendMessageHandler handles POST /messages
func (h *GinHandlers) SendMessageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		message, err := h.service.Send(&req)
		response.Handle(c, message, err)
	}
}

// ListMessagesHandler handles GET /messages filtered by property or by a
// participant pair
func (h *GinHandlers) ListMessagesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		propertyID := c.Query("property_id")
		if propertyID != "" {
			messages, err := h.service.GetPropertyMessages(propertyID)
			response.Handle(c, messages, err)
			return
		}

		participantA := c.Query("participant_a")
		participantB := c.Query("participant_b")
		if participantA == "" || participantB == "" {
			response.BadRequest(c, "property_id or participant_a and participant_b are required")
			return
		}

		messages, err := h.service.GetConversation(participantA, participantB)
		response.Handle(c, messages, err)
	}
}

// ListFollowUpsHandler handles GET requests for open follow-ups
func (h *GinHandlers) ListFollowUpsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		followUps, err := h.service.GetOpenFollowUps()
		response.Handle(c, followUps, err)
	}
}

// ResolveFollowUpHandler handles POST requests to close a follow-up
func (h *GinHandlers) ResolveFollowUpHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		followUpID := c.Param("follow_up_id")

		if err := h.service.ResolveFollowUp(followUpID); err != nil {
			response.Handle(c, nil, err)
			return
		}

		response.Success(c, gin.H{"message": "follow-up resolved"})
	}
}
