package messaging

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateMessage(message *Message) error {
	return d.db.Create(message).Error
}

func (d *Database) GetMessage(messageID string) (*Message, error) {
	var message Message
	if err := d.db.Where("message_id = ?", messageID).First(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

func (d *Database) GetPropertyMessages(propertyID string) ([]Message, error) {
	var messages []Message
	if err := d.db.Where("property_id = ?", propertyID).Order("created_at ASC").Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (d *Database) GetConversation(participantA, participantB string) ([]Message, error) {
	var messages []Message
	if err := d.db.
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			participantA, participantB, participantB, participantA).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (d *Database) CreateFollowUp(followUp *FollowUp) error {
	return d.db.Create(followUp).Error
}

func (d *Database) GetOpenFollowUps() ([]FollowUp, error) {
	var followUps []FollowUp
	if err := d.db.Where("status = ?", FollowUpOpen).Order("created_at ASC").Find(&followUps).Error; err != nil {
		return nil, err
	}
	return followUps, nil
}

func (d *Database) ResolveFollowUp(followUpID string) error {
	result := d.db.Model(&FollowUp{}).
		Where("follow_up_id = ?", followUpID).
		Updates(map[string]interface{}{
			"status":     FollowUpResolved,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errors.New("follow-up not found")
	}

	return nil
}
