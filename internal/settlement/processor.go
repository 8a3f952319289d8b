package settlement

import (
	"context"
	"time"

	"github.com/propflow/settlement-api/internal/invoice"
	"github.com/propflow/settlement-api/internal/payments"
	"github.com/rs/zerolog/log"
)

// Processor is the background maintenance loop for the settlement domain:
// it marks issued invoices overdue once their due date passes and retries
// payment record deliveries that were queued after failed attempts.
type Processor struct {
	invoices     *invoice.Service
	creator      *payments.Creator
	processDelay time.Duration // Time between processing attempts
}

func NewProcessor(invoices *invoice.Service, creator *payments.Creator) *Processor {
	return &Processor{
		invoices:     invoices,
		creator:      creator,
		processDelay: 5 * time.Minute, // Configurable processing interval
	}
}

// Start begins the processing loop
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "settlement_processor").Logger()
	logger.Info().Msg("starting settlement processor")

	ticker := time.NewTicker(p.processDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down settlement processor")
			return
		case <-ticker.C:
			if err := p.processTick(ctx); err != nil {
				logger.Error().Err(err).Msg("settlement processing tick failed")
			}
		}
	}
}

func (p *Processor) processTick(ctx context.Context) error {
	logger := log.With().Str("component", "settlement_processor").Logger()

	swept, err := p.invoices.SweepOverdue(time.Now())
	if err != nil {
		return err
	}
	if swept > 0 {
		logger.Info().Int("overdue_count", swept).Msg("marked invoices overdue")
	}

	if p.creator != nil {
		if err := p.creator.RetryQueued(ctx); err != nil {
			return err
		}
	}

	return nil
}
