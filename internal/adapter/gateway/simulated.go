package gateway

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrChargeDeclined is returned by Simulated when a charge is rejected.
var ErrChargeDeclined = errors.New("Payment processing failed")

// Simulated stands in for a card processor. Each charge waits for the
// configured latency and then fails with the configured probability.
type Simulated struct {
	latency     time.Duration
	failureRate float64
	roll        func() float64
	log         zerolog.Logger
}

// NewSimulated creates a simulated processor. failureRate is clamped to [0,1].
func NewSimulated(latency time.Duration, failureRate float64, log zerolog.Logger) *Simulated {
	return &Simulated{
		latency:     max(latency, 0),
		failureRate: min(max(failureRate, 0), 1),
		roll:        rand.Float64,
		log:         log,
	}
}

// ExecuteCharge implements ports.PaymentGateway.
func (g *Simulated) ExecuteCharge(ctx context.Context, amount decimal.Decimal, paymentMethodID uuid.UUID) error {
	if g.latency > 0 {
		timer := time.NewTimer(g.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if g.roll() < g.failureRate {
		g.log.Debug().
			Str("payment_method_id", paymentMethodID.String()).
			Str("amount", amount.String()).
			Msg("simulated charge declined")
		return ErrChargeDeclined
	}

	g.log.Debug().
		Str("payment_method_id", paymentMethodID.String()).
		Str("amount", amount.String()).
		Msg("simulated charge accepted")
	return nil
}
