package payments

import (
	"testing"

	"github.com/propflow/settlement-api/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServiceUnderTest(t *testing.T) *Service {
	t.Helper()

	service := &Service{db: newTestDB(t)}
	return service
}

func TestCreateRecord(t *testing.T) {
	service := newServiceUnderTest(t)

	record := testRecord()
	require.NoError(t, service.CreateRecord(record))

	assert.Contains(t, record.PaymentID, "PAY_")
	assert.Equal(t, StatusPending, record.Status)

	stored, err := service.GetRecordByInvoice("INV-20260315-0042")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, record.PaymentID, stored.PaymentID)
}

func TestCreateRecord_Validation(t *testing.T) {
	service := newServiceUnderTest(t)

	err := service.CreateRecord(&PaymentRecord{})

	var validationErr *response.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{"invoice_number", "property_id", "seller_id"}, validationErr.Fields)
}

func TestGetRecordByInvoice_None(t *testing.T) {
	service := newServiceUnderTest(t)

	stored, err := service.GetRecordByInvoice("INV-00000000-0000")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestUpdateStatus(t *testing.T) {
	service := newServiceUnderTest(t)

	record := testRecord()
	require.NoError(t, service.CreateRecord(record))

	require.NoError(t, service.UpdateStatus(record.PaymentID, StatusPaid))

	stored, err := service.GetRecordByInvoice(record.InvoiceNumber)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, stored.Status)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	service := newServiceUnderTest(t)

	assert.Error(t, service.UpdateStatus("PAY_missing", StatusPaid))
}

func TestGetSellerRecords(t *testing.T) {
	service := newServiceUnderTest(t)

	first := testRecord()
	require.NoError(t, service.CreateRecord(first))

	second := testRecord()
	second.InvoiceNumber = "INV-20260316-0001"
	require.NoError(t, service.CreateRecord(second))

	other := testRecord()
	other.InvoiceNumber = "INV-20260316-0002"
	other.SellerID = "SEL_other"
	require.NoError(t, service.CreateRecord(other))

	records, err := service.GetSellerRecords("SEL_abc123")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
