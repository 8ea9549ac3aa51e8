/*
fees.go - Fee calculator and discount rules

PURPOSE:
  Pure fee arithmetic. Given a payment model and a subtotal, produce the
  platform fee, the processing fee, and the total the buyer pays.

THE MATH (order matters):
  CREDIT_CARD:
    platform   = round(subtotal * platformPct/100) + platformFixed
    processing = round((subtotal + platform) * processingPct/100)
      The processor charges on the full amount actually collected, so
      processing is computed on the post-platform-fee amount.
  PREPAY:
    platform   = 0 (already collected via upfront credit purchase)
    processing = round(subtotal * processingPct/100)
  CONSIGNMENT:
    both zero per order; fees are computed once at settlement
    (see settlement.go)

ROUNDING:
  Every intermediate value rounds half-up to whole cents before being
  summed. No fractional cents are ever persisted.

DISCOUNTS:
  - Charity: halves the platform percent and fixed components at selection.
  - Low-price: resets both components to half of the DEFAULT constants.
    It is an override, not a multiplier: applying it after a charity
    discount yields the halved defaults, never a quarter of the original.

SEE ALSO:
  - config.go: Where FeeParams live on a PaymentModelConfig
  - billing/: The service that selects models and applies discounts
*/
package engine

import "github.com/shopspring/decimal"

// =============================================================================
// DEFAULT FEE CONSTANTS
// =============================================================================

// Platform defaults: 3.7% + 179¢ per order, 2.9% processing pass-through.
var (
	DefaultPlatformFeePercent = decimal.NewFromFloat(3.7)
	DefaultProcessingPercent  = decimal.NewFromFloat(2.9)
)

const DefaultPlatformFeeFixedCents Cents = 179

// =============================================================================
// FEE PARAMETERS
// =============================================================================

// FeeParams parameterize the calculator for one event.
type FeeParams struct {
	PlatformFeePercent    Percent
	PlatformFeeFixedCents Cents
	ProcessingFeePercent  Percent
}

// DefaultFeeParams returns the platform's standard fee schedule.
func DefaultFeeParams() FeeParams {
	return FeeParams{
		PlatformFeePercent:    DefaultPlatformFeePercent,
		PlatformFeeFixedCents: DefaultPlatformFeeFixedCents,
		ProcessingFeePercent:  DefaultProcessingPercent,
	}
}

// PrepayFeeParams returns the prepay schedule: no platform fee, processing only.
func PrepayFeeParams() FeeParams {
	return FeeParams{
		PlatformFeePercent:    decimal.Zero,
		PlatformFeeFixedCents: 0,
		ProcessingFeePercent:  DefaultProcessingPercent,
	}
}

// WithCharityDiscount halves the platform components. Processing is a
// pass-through cost and is never discounted.
func (p FeeParams) WithCharityDiscount() FeeParams {
	return FeeParams{
		PlatformFeePercent:    p.PlatformFeePercent.Div(decimal.NewFromInt(2)),
		PlatformFeeFixedCents: RoundHalfUp(decimal.NewFromInt(int64(p.PlatformFeeFixedCents)).Div(decimal.NewFromInt(2))),
		ProcessingFeePercent:  p.ProcessingFeePercent,
	}
}

// LowPriceFeeParams returns the low-price schedule: half of the default
// constants, regardless of what the config currently carries. This is the
// documented non-compounding override.
func LowPriceFeeParams() FeeParams {
	return FeeParams{
		PlatformFeePercent:    DefaultPlatformFeePercent.Div(decimal.NewFromInt(2)),
		PlatformFeeFixedCents: RoundHalfUp(decimal.NewFromInt(int64(DefaultPlatformFeeFixedCents)).Div(decimal.NewFromInt(2))),
		ProcessingFeePercent:  DefaultProcessingPercent,
	}
}

// =============================================================================
// FEE CALCULATOR
// =============================================================================

// FeeBreakdown is the result of a fee computation.
type FeeBreakdown struct {
	Model              PaymentModel
	SubtotalCents      Cents
	PlatformFeeCents   Cents
	ProcessingFeeCents Cents
	TotalCents         Cents
}

// ComputeFees is a pure function: identical inputs always yield identical
// output. Consignment orders carry no per-order fees at all.
func ComputeFees(model PaymentModel, subtotal Cents, params FeeParams) FeeBreakdown {
	b := FeeBreakdown{Model: model, SubtotalCents: subtotal}

	switch model {
	case ModelCreditCard:
		b.PlatformFeeCents = PercentOf(subtotal, params.PlatformFeePercent) + params.PlatformFeeFixedCents
		b.ProcessingFeeCents = PercentOf(subtotal+b.PlatformFeeCents, params.ProcessingFeePercent)
	case ModelPrepay:
		b.ProcessingFeeCents = PercentOf(subtotal, params.ProcessingFeePercent)
	case ModelConsignment:
		// Settled once, later. Nothing per order.
	}

	b.TotalCents = subtotal + b.PlatformFeeCents + b.ProcessingFeeCents
	return b
}
