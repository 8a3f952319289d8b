package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/propflow/settlement-api/internal/config"
	"github.com/propflow/settlement-api/internal/invoice"
	"github.com/propflow/settlement-api/internal/messaging"
	"github.com/propflow/settlement-api/internal/properties"
	"github.com/propflow/settlement-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	db         *gorm.DB
	properties *properties.Service
	service    *Service
}

func newFixture(t *testing.T) *fixture {
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
		&messaging.Message{},
		&messaging.FollowUp{},
	))

	invoices := invoice.NewService(db, config.BankConfig{
		AccountName:   "PropFlow Pty Ltd",
		BankName:      "Commonwealth Bank",
		BSB:           "062-000",
		AccountNumber: "12345678",
	}, nil, nil)
	props := properties.NewService(db, invoices)
	messages := messaging.NewService(db)

	return &fixture{
		db:         db,
		properties: props,
		service:    NewService(props, invoices, messages),
	}
}

func (f *fixture) createListing(t *testing.T) *types.Property {
	t.Helper()

	property := &types.Property{
		Title:       "12 High St, Richmond",
		Price:       1_000_000,
		SellerID:    "SEL_1",
		SellerName:  "Jane Seller",
		SellerEmail: "jane@example.com",
		AgentID:     "AGT_1",
		AgentName:   "Alex Agent",
	}
	require.NoError(t, f.properties.CreateProperty(property, t.Name()))
	return property
}

func (f *fixture) addBuyer(t *testing.T, propertyID, name string) *types.Buyer {
	t.Helper()

	buyer, err := f.properties.AddBuyer(propertyID, &properties.AddBuyerRequest{
		Name:        name,
		OfferAmount: 990_000,
		Status:      properties.BuyerOfferMade,
	})
	require.NoError(t, err)
	return buyer
}

func stepStatus(t *testing.T, steps []StepResult, name string) string {
	t.Helper()

	for _, step := range steps {
		if step.Name == name {
			return step.Status
		}
	}
	t.Fatalf("step %s not recorded", name)
	return ""
}

func TestSettle_PropertyNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Settle(context.Background(), "PRP_missing", "AGT_1", &SettleRequest{})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSettle_NoBuyersAbortsBeforeMutation(t *testing.T) {
	f := newFixture(t)
	property := f.createListing(t)

	result, err := f.service.Settle(context.Background(), property.PropertyID, "AGT_1", &SettleRequest{})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrNoBuyers)

	// No mutation happened
	stored, err := f.properties.GetProperty(property.PropertyID)
	require.NoError(t, err)
	assert.Equal(t, properties.StatusListed, stored.Status)
	assert.Nil(t, stored.SettledAt)

	var invoiceCount int64
	require.NoError(t, f.db.Model(&invoice.Invoice{}).Count(&invoiceCount).Error)
	assert.Zero(t, invoiceCount)
}

func TestSettle_SingleBuyerAutoSelected(t *testing.T) {
	f := newFixture(t)
	property := f.createListing(t)
	buyer := f.addBuyer(t, property.PropertyID, "A. Chen")

	result, err := f.service.Settle(context.Background(), property.PropertyID, "AGT_1", &SettleRequest{
		SalePrice:      1_050_000,
		SettlementDate: time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, buyer.BuyerID, result.BuyerID)
	assert.Equal(t, StepOK, stepStatus(t, result.Steps, StepResolveBuyers))
	assert.Equal(t, StepOK, stepStatus(t, result.Steps, StepUpdateStatus))
	assert.Equal(t, StepOK, stepStatus(t, result.Steps, StepGenerateInvoice))
	assert.Equal(t, StepOK, stepStatus(t, result.Steps, StepNotifySeller))

	// No payments backend wired in this fixture
	assert.Equal(t, StepWarn, stepStatus(t, result.Steps, StepPaymentRecord))
	assert.Nil(t, result.PaymentRecord)

	// Property is settled with the buyer recorded
	require.NotNil(t, result.Property)
	assert.Equal(t, properties.StatusSettled, result.Property.Status)
	assert.Equal(t, buyer.BuyerID, result.Property.BuyerID)
	require.NotNil(t, result.Property.SettledAt)

	// Settlement invoice is computed on the sale price, not the listing price
	require.NotNil(t, result.Invoice)
	assert.Equal(t, invoice.KindSettlement, result.Invoice.Kind)
	assert.InDelta(t, 11_550.0, result.Invoice.CommissionAmount, 0.001)
	assert.InDelta(t, 1_155.0, result.Invoice.GSTAmount, 0.001)
	assert.InDelta(t, 12_705.0, result.Invoice.TotalAmount, 0.001)

	// Platform invoice attached by the status transition
	require.NotNil(t, result.PlatformInvoice)
	assert.Equal(t, invoice.KindPlatform, result.PlatformInvoice.Kind)

	// Seller got the notice, carrying the invoice number as a structured field
	require.NotNil(t, result.Message)
	assert.Equal(t, "SEL_1", result.Message.RecipientID)
	assert.Equal(t, messaging.TypeSettlement, result.Message.MessageType)
	assert.Equal(t, result.Invoice.InvoiceNumber, result.Message.InvoiceNumber)
	assert.Contains(t, result.Message.MessageText, result.Invoice.InvoiceNumber)

	assert.Nil(t, result.FollowUp)
}

func TestSettle_MultipleBuyersRequireSelection(t *testing.T) {
	f := newFixture(t)
	property := f.createListing(t)
	f.addBuyer(t, property.PropertyID, "A. Chen")
	f.addBuyer(t, property.PropertyID, "M. Rossi")

	result, err := f.service.Settle(context.Background(), property.PropertyID, "AGT_1", &SettleRequest{})
	assert.Nil(t, result)

	var selection *BuyerSelectionError
	require.ErrorAs(t, err, &selection)
	assert.Len(t, selection.Buyers, 2)

	// Selection is demanded before anything is mutated
	stored, err := f.properties.GetProperty(property.PropertyID)
	require.NoError(t, err)
	assert.Equal(t, properties.StatusListed, stored.Status)
}

func TestSettle_MultipleBuyersWithExplicitSelection(t *testing.T) {
	f := newFixture(t)
	property := f.createListing(t)
	f.addBuyer(t, property.PropertyID, "A. Chen")
	chosen := f.addBuyer(t, property.PropertyID, "M. Rossi")

	result, err := f.service.Settle(context.Background(), property.PropertyID, "AGT_1", &SettleRequest{
		BuyerID: chosen.BuyerID,
	})
	require.NoError(t, err)
	assert.Equal(t, chosen.BuyerID, result.BuyerID)
	assert.Equal(t, chosen.BuyerID, result.Property.BuyerID)
}

func TestSettle_UnknownBuyerID(t *testing.T) {
	f := newFixture(t)
	property := f.createListing(t)
	f.addBuyer(t, property.PropertyID, "A. Chen")
	f.addBuyer(t, property.PropertyID, "M. Rossi")

	result, err := f.service.Settle(context.Background(), property.PropertyID, "AGT_1", &SettleRequest{
		BuyerID: "BYR_not_a_candidate",
	})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrUnknownBuyer)
}

func TestSettle_AlreadySettled(t *testing.T) {
	f := newFixture(t)
	property := f.createListing(t)
	f.addBuyer(t, property.PropertyID, "A. Chen")

	_, err := f.service.Settle(context.Background(), property.PropertyID, "AGT_1", &SettleRequest{})
	require.NoError(t, err)

	_, err = f.service.Settle(context.Background(), property.PropertyID, "AGT_1", &SettleRequest{})
	assert.ErrorIs(t, err, ErrAlreadySettled)
}

func TestSettle_UnresolvableSellerQueuesFollowUp(t *testing.T) {
	f := newFixture(t)

	// Legacy listing with no seller identity, inserted behind the service
	property := &types.Property{
		PropertyID: "PRP_legacy",
		Title:      "3 Mill Ct, Newtown",
		Price:      800_000,
		Status:     properties.StatusListed,
		AgentID:    "AGT_1",
	}
	require.NoError(t, f.db.Create(property).Error)

	buyer, err := f.properties.AddBuyer("PRP_legacy", &properties.AddBuyerRequest{Name: "A. Chen"})
	require.NoError(t, err)

	result, err := f.service.Settle(context.Background(), "PRP_legacy", "AGT_1", &SettleRequest{})
	require.NoError(t, err)

	assert.Equal(t, buyer.BuyerID, result.BuyerID)
	assert.Equal(t, StepWarn, stepStatus(t, result.Steps, StepNotifySeller))
	assert.Nil(t, result.Message)

	require.NotNil(t, result.FollowUp)
	assert.Equal(t, "PRP_legacy", result.FollowUp.PropertyID)
	assert.Equal(t, "AGT_1", result.FollowUp.AgentID)
	assert.Equal(t, messaging.FollowUpOpen, result.FollowUp.Status)
}

func TestSettle_DefaultsSalePriceToListingPrice(t *testing.T) {
	f := newFixture(t)
	property := f.createListing(t)
	f.addBuyer(t, property.PropertyID, "A. Chen")

	result, err := f.service.Settle(context.Background(), property.PropertyID, "AGT_1", &SettleRequest{})
	require.NoError(t, err)

	require.NotNil(t, result.Invoice)
	assert.InDelta(t, 1_000_000.0, result.Invoice.PropertyValue, 0.001)
	assert.InDelta(t, 11_000.0, result.Invoice.CommissionAmount, 0.001)
}
