package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&PaymentRecord{}, &QueuedDelivery{}))

	return NewDatabase(db)
}

func testRecord() *PaymentRecord {
	return &PaymentRecord{
		InvoiceNumber: "INV-20260315-0042",
		PropertyID:    "PRP_test",
		PropertyTitle: "12 High St, Richmond",
		SellerID:      "SEL_abc123",
		SellerName:    "Jane Seller",
		Amount:        12_100,
		DueDate:       time.Now().AddDate(0, 0, 30),
	}
}

func paymentBackend(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/admin/payment-records", handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func TestCreator_Create(t *testing.T) {
	var gotAuth string
	server := paymentBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var record PaymentRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&record))
		record.PaymentID = "PAY_backend"
		record.Status = StatusPending

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    record,
		})
	})

	creator := NewCreator(server.URL, "test-token", 5*time.Second, newTestDB(t))

	stored, err := creator.Create(context.Background(), testRecord())
	require.NoError(t, err)
	assert.Equal(t, "PAY_backend", stored.PaymentID)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestCreator_RetriesOnceThenSucceeds(t *testing.T) {
	var calls int32
	server := paymentBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    PaymentRecord{PaymentID: "PAY_retry"},
		})
	})

	db := newTestDB(t)
	creator := NewCreator(server.URL, "test-token", 5*time.Second, db)

	stored, err := creator.Create(context.Background(), testRecord())
	require.NoError(t, err)
	assert.Equal(t, "PAY_retry", stored.PaymentID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	queued, err := db.GetQueuedDeliveries(10)
	require.NoError(t, err)
	assert.Empty(t, queued)
}

func TestCreator_QueuesAfterFailedRetry(t *testing.T) {
	var calls int32
	server := paymentBackend(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	db := newTestDB(t)
	creator := NewCreator(server.URL, "test-token", 5*time.Second, db)

	stored, err := creator.Create(context.Background(), testRecord())
	assert.Error(t, err)
	assert.Nil(t, stored)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	queued, err := db.GetQueuedDeliveries(10)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, 1, queued[0].Attempts)
	assert.NotEmpty(t, queued[0].LastError)

	var record PaymentRecord
	require.NoError(t, json.Unmarshal([]byte(queued[0].Payload), &record))
	assert.Equal(t, "INV-20260315-0042", record.InvoiceNumber)
}

func TestCreator_MissingPaymentIDIsAFailure(t *testing.T) {
	server := paymentBackend(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    PaymentRecord{},
		})
	})

	db := newTestDB(t)
	creator := NewCreator(server.URL, "test-token", 5*time.Second, db)

	stored, err := creator.Create(context.Background(), testRecord())
	assert.Error(t, err)
	assert.Nil(t, stored)

	queued, err := db.GetQueuedDeliveries(10)
	require.NoError(t, err)
	assert.Len(t, queued, 1)
}

func TestCreator_RetryQueued(t *testing.T) {
	var healthy atomic.Bool
	server := paymentBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    PaymentRecord{PaymentID: "PAY_redelivered"},
		})
	})

	db := newTestDB(t)
	creator := NewCreator(server.URL, "test-token", 5*time.Second, db)

	_, err := creator.Create(context.Background(), testRecord())
	require.Error(t, err)

	queued, err := db.GetQueuedDeliveries(10)
	require.NoError(t, err)
	require.Len(t, queued, 1)

	// Backend still down: attempts counter grows, row stays queued
	require.NoError(t, creator.RetryQueued(context.Background()))
	queued, err = db.GetQueuedDeliveries(10)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, 2, queued[0].Attempts)

	// Backend recovers: row is delivered and removed
	healthy.Store(true)
	require.NoError(t, creator.RetryQueued(context.Background()))
	queued, err = db.GetQueuedDeliveries(10)
	require.NoError(t, err)
	assert.Empty(t, queued)
}

func TestCreator_RetryQueuedDropsUndecodablePayload(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.CreateQueuedDelivery(&QueuedDelivery{
		DeliveryID: "DLV_broken",
		Payload:    "{not json",
		Attempts:   1,
	}))

	server := paymentBackend(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("backend should not be called for an undecodable payload")
	})
	creator := NewCreator(server.URL, "test-token", 5*time.Second, db)

	require.NoError(t, creator.RetryQueued(context.Background()))

	queued, err := db.GetQueuedDeliveries(10)
	require.NoError(t, err)
	assert.Empty(t, queued)
}

func TestCreator_NilQueueStore(t *testing.T) {
	server := paymentBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	creator := NewCreator(server.URL, "test-token", 5*time.Second, nil)

	stored, err := creator.Create(context.Background(), testRecord())
	assert.Error(t, err)
	assert.Nil(t, stored)

	assert.NoError(t, creator.RetryQueued(context.Background()))
}
