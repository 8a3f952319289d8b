package properties

import (
	"testing"
	"time"

	"github.com/propflow/settlement-api/internal/config"
	"github.com/propflow/settlement-api/internal/invoice"
	"github.com/propflow/settlement-api/internal/types"
	"github.com/propflow/settlement-api/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T, withInvoices bool) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&types.Property{},
		&types.Buyer{},
		&types.IdempotencyRecord{},
		&invoice.Invoice{},
	))

	var invoices *invoice.Service
	if withInvoices {
		invoices = invoice.NewService(db, config.BankConfig{
			AccountName:   "PropFlow Pty Ltd",
			BankName:      "Commonwealth Bank",
			BSB:           "062-000",
			AccountNumber: "12345678",
		}, nil, nil)
	}

	return NewService(db, invoices)
}

func listing() *types.Property {
	return &types.Property{
		Title:       "12 High St, Richmond",
		Address:     "12 High St, Richmond VIC 3121",
		Price:       1_000_000,
		SellerID:    "SEL_1",
		SellerName:  "Jane Seller",
		SellerEmail: "jane@example.com",
		AgentID:     "AGT_1",
		AgentName:   "Alex Agent",
	}
}

func TestCreateProperty(t *testing.T) {
	service := newTestService(t, false)

	property := listing()
	require.NoError(t, service.CreateProperty(property, "key-1"))

	assert.Contains(t, property.PropertyID, "PRP_")
	assert.Equal(t, StatusListed, property.Status)

	stored, err := service.GetProperty(property.PropertyID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, property.Title, stored.Title)

	// Snapshot is primed at creation
	snapshot, ok := service.Assignments().Get(property.PropertyID)
	assert.True(t, ok)
	assert.Equal(t, "SEL_1", snapshot.SellerID)
}

func TestCreateProperty_Validation(t *testing.T) {
	service := newTestService(t, false)

	err := service.CreateProperty(&types.Property{}, "key-1")

	var validationErr *response.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{"title", "price", "seller_id"}, validationErr.Fields)
}

func TestCreateProperty_Idempotency(t *testing.T) {
	service := newTestService(t, false)

	first := listing()
	require.NoError(t, service.CreateProperty(first, "key-1"))

	// Replay with the same key returns the original listing
	second := listing()
	second.Title = "different title in the replay"
	require.NoError(t, service.CreateProperty(second, "key-1"))
	assert.Equal(t, first.PropertyID, second.PropertyID)
	assert.Equal(t, first.Title, second.Title)

	// A fresh key creates a new listing
	third := listing()
	require.NoError(t, service.CreateProperty(third, "key-2"))
	assert.NotEqual(t, first.PropertyID, third.PropertyID)
}

func TestAddBuyer(t *testing.T) {
	service := newTestService(t, false)
	property := listing()
	require.NoError(t, service.CreateProperty(property, "key-1"))

	buyer, err := service.AddBuyer(property.PropertyID, &AddBuyerRequest{
		Name:        "A. Chen",
		OfferAmount: 980_000,
	})
	require.NoError(t, err)
	assert.Contains(t, buyer.BuyerID, "BYR_")
	assert.Equal(t, BuyerInterested, buyer.Status, "status defaults when omitted")

	buyers, err := service.GetBuyers(property.PropertyID)
	require.NoError(t, err)
	assert.Len(t, buyers, 1)
}

func TestAddBuyer_PropertyNotFound(t *testing.T) {
	service := newTestService(t, false)

	buyer, err := service.AddBuyer("PRP_missing", &AddBuyerRequest{Name: "A. Chen"})
	assert.Nil(t, buyer)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	service := newTestService(t, false)
	property := listing()
	require.NoError(t, service.CreateProperty(property, "key-1"))

	_, _, err := service.UpdateStatus(property.PropertyID, &types.StatusUpdateRequest{Status: "DEMOLISHED"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	service := newTestService(t, false)

	_, _, err := service.UpdateStatus("PRP_missing", &types.StatusUpdateRequest{Status: StatusSold})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUpdateStatus_Settled(t *testing.T) {
	service := newTestService(t, true)
	property := listing()
	require.NoError(t, service.CreateProperty(property, "key-1"))

	settlementDate := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	updated, platformInvoice, err := service.UpdateStatus(property.PropertyID, &types.StatusUpdateRequest{
		Status:  StatusSettled,
		BuyerID: "BYR_1",
		SettlementDetails: &types.SettlementDetails{
			SalePrice:      1_050_000,
			SettlementDate: settlementDate,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusSettled, updated.Status)
	assert.Equal(t, "BYR_1", updated.BuyerID)
	require.NotNil(t, updated.SettledAt)
	assert.True(t, updated.SettledAt.Equal(settlementDate))

	require.NotNil(t, platformInvoice)
	assert.Equal(t, invoice.KindPlatform, platformInvoice.Kind)
	assert.InDelta(t, 1_050_000.0, platformInvoice.PropertyValue, 0.001)
	assert.InDelta(t, 11_550.0, platformInvoice.CommissionAmount, 0.001)

	// Cache is patched after the committed write
	snapshot, ok := service.Assignments().Get(property.PropertyID)
	assert.True(t, ok)
	assert.Equal(t, StatusSettled, snapshot.Status)
}

func TestUpdateStatus_NonSettledHasNoInvoice(t *testing.T) {
	service := newTestService(t, true)
	property := listing()
	require.NoError(t, service.CreateProperty(property, "key-1"))

	updated, platformInvoice, err := service.UpdateStatus(property.PropertyID, &types.StatusUpdateRequest{
		Status: StatusUnderOffer,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusUnderOffer, updated.Status)
	assert.Nil(t, platformInvoice)
	assert.Nil(t, updated.SettledAt)
}

func TestResolveSeller(t *testing.T) {
	service := newTestService(t, false)
	property := listing()
	require.NoError(t, service.CreateProperty(property, "key-1"))

	// Served from the snapshot
	snapshot, ok := service.ResolveSeller(property.PropertyID)
	assert.True(t, ok)
	assert.Equal(t, "SEL_1", snapshot.SellerID)

	// Falls back to the store after invalidation, and re-primes the cache
	service.Assignments().Invalidate(property.PropertyID)
	snapshot, ok = service.ResolveSeller(property.PropertyID)
	assert.True(t, ok)
	assert.Equal(t, "SEL_1", snapshot.SellerID)
	assert.Equal(t, 1, service.Assignments().Len())
}

func TestResolveSeller_Unresolvable(t *testing.T) {
	service := newTestService(t, false)

	_, ok := service.ResolveSeller("PRP_missing")
	assert.False(t, ok)
}
