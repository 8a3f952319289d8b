package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Creator delivers payment record snapshots to the payments backend.
// Delivery is best-effort: one retry with backoff, then the record is
// queued for the settlement processor to re-deliver. Callers treat a
// returned error as non-fatal.
type Creator struct {
	baseURL   string
	authToken string
	client    *http.Client
	db        *Database
}

func NewCreator(baseURL, authToken string, timeout time.Duration, db *Database) *Creator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Creator{
		baseURL:   baseURL,
		authToken: authToken,
		client:    &http.Client{Timeout: timeout},
		db:        db,
	}
}

// Create posts the snapshot to the payments backend. On success it returns
// the stored record (with its assigned payment ID). After a failed retry
// the snapshot is queued and an error returned.
func (cr *Creator) Create(ctx context.Context, record *PaymentRecord) (*PaymentRecord, error) {
	logger := log.With().
		Str("component", "payment_creator").
		Str("invoice_number", record.InvoiceNumber).
		Logger()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				if err := cr.queue(record, ctx.Err()); err != nil {
					logger.Error().Err(err).Msg("failed to queue payment record for re-delivery")
				}
				return nil, ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
		}

		stored, err := cr.post(ctx, record)
		if err == nil {
			logger.Info().Str("payment_id", stored.PaymentID).Msg("payment record delivered")
			return stored, nil
		}
		lastErr = err
		logger.Warn().Err(err).Int("attempt", attempt+1).Msg("payment record delivery failed")
	}

	if err := cr.queue(record, lastErr); err != nil {
		logger.Error().Err(err).Msg("failed to queue payment record for re-delivery")
	}

	return nil, fmt.Errorf("payment record delivery failed: %w", lastErr)
}

func (cr *Creator) post(ctx context.Context, record *PaymentRecord) (*PaymentRecord, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/api/v1/admin/payment-records", cr.baseURL),
		bytes.NewBuffer(body),
	)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", cr.authToken))
	req.Header.Set("Content-Type", "application/json")

	resp, err := cr.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("payment backend returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Success bool          `json:"success"`
		Data    PaymentRecord `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Data.PaymentID == "" {
		return nil, fmt.Errorf("no payment ID in response: %s", string(respBody))
	}

	return &result.Data, nil
}

func (cr *Creator) queue(record *PaymentRecord, cause error) error {
	if cr.db == nil {
		return nil
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}

	causeMsg := ""
	if cause != nil {
		causeMsg = cause.Error()
	}

	return cr.db.CreateQueuedDelivery(&QueuedDelivery{
		DeliveryID: "DLV_" + uuid.New().String(),
		Payload:    string(payload),
		Attempts:   1,
		LastError:  causeMsg,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	})
}

// RetryQueued re-attempts delivery of queued payment records. Called by
// the settlement processor on its tick.
func (cr *Creator) RetryQueued(ctx context.Context) error {
	if cr.db == nil {
		return nil
	}

	logger := log.With().Str("component", "payment_creator").Logger()

	deliveries, err := cr.db.GetQueuedDeliveries(50)
	if err != nil {
		return err
	}

	for _, delivery := range deliveries {
		var record PaymentRecord
		if err := json.Unmarshal([]byte(delivery.Payload), &record); err != nil {
			logger.Error().Err(err).Str("delivery_id", delivery.DeliveryID).Msg("dropping undecodable queued delivery")
			if err := cr.db.DeleteQueuedDelivery(delivery.DeliveryID); err != nil {
				return err
			}
			continue
		}

		if _, err := cr.post(ctx, &record); err != nil {
			delivery.Attempts++
			delivery.LastError = err.Error()
			delivery.UpdatedAt = time.Now()
			if err := cr.db.UpdateQueuedDelivery(&delivery); err != nil {
				return err
			}
			continue
		}

		logger.Info().
			Str("delivery_id", delivery.DeliveryID).
			Int("attempts", delivery.Attempts+1).
			Msg("queued payment record delivered")

		if err := cr.db.DeleteQueuedDelivery(delivery.DeliveryID); err != nil {
			return err
		}
	}

	return nil
}
