package properties

import (
	"errors"
	"time"

	"github.com/propflow/settlement-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateProperty(property *types.Property) error {
	return d.db.Create(property).Error
}

func (d *Database) GetProperty(propertyID string) (*types.Property, error) {
	var property types.Property
	if err := d.db.Where("property_id = ?", propertyID).First(&property).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &property, nil
}

func (d *Database) UpdateProperty(property *types.Property) error {
	return d.db.Save(property).Error
}

func (d *Database) GetAgentProperties(agentID string) ([]types.Property, error) {
	var props []types.Property
	if err := d.db.Where("agent_id = ?", agentID).Order("created_at DESC").Find(&props).Error; err != nil {
		return nil, err
	}
	return props, nil
}

func (d *Database) CreateBuyer(buyer *types.Buyer) error {
	return d.db.Create(buyer).Error
}

func (d *Database) GetPropertyBuyers(propertyID string) ([]types.Buyer, error) {
	var buyers []types.Buyer
	if err := d.db.Where("property_id = ?", propertyID).Order("created_at ASC").Find(&buyers).Error; err != nil {
		return nil, err
	}
	return buyers, nil
}

func (d *Database) GetBuyer(buyerID string) (*types.Buyer, error) {
	var buyer types.Buyer
	if err := d.db.Where("buyer_id = ?", buyerID).First(&buyer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &buyer, nil
}

// CreatePropertyWithIdempotency creates a property and its idempotency
// record in one transaction
func (d *Database) CreatePropertyWithIdempotency(property *types.Property, idempotencyKey string) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(property).Error; err != nil {
		tx.Rollback()
		return err
	}

	record := types.IdempotencyRecord{
		IdempotencyKey: idempotencyKey,
		ResourceID:     property.PropertyID,
		ResourceType:   "property",
		ExpiresAt:      time.Now().Add(24 * time.Hour),
	}

	if err := tx.Create(&record).Error; err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// GetIdempotencyRecord retrieves an idempotency record by key
func (d *Database) GetIdempotencyRecord(key string) (*types.IdempotencyRecord, error) {
	var record types.IdempotencyRecord
	if err := d.db.Where("idempotency_key = ?", key).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &record, nil
		}
		return nil, err
	}
	return &record, nil
}
