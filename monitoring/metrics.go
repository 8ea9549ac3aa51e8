// Package monitoring exposes Prometheus counters for the engine's money paths.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feeCalculations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fee_calculations_total",
			Help: "Fee calculations performed, by payment model",
		},
		[]string{"model"},
	)

	settlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consignment_settlements_total",
			Help: "Consignment settlement computations, by kind (preview/final)",
		},
		[]string{"kind"},
	)

	settlementAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "consignment_settlement_amount_cents",
			Help:    "Final settlement amounts in cents",
			Buckets: prometheus.ExponentialBuckets(100, 10, 7),
		},
	)

	subSellerAssignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sub_seller_assignments_total",
			Help: "Sub-seller assignment attempts, by outcome",
		},
		[]string{"status"},
	)

	ticketSales = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seller_ticket_sales_total",
			Help: "Tickets recorded as sold through the seller tree, by outcome",
		},
		[]string{"status"},
	)
)

func RecordFeeCalculation(model string) { feeCalculations.WithLabelValues(model).Inc() }

func RecordSettlementPreview() { settlements.WithLabelValues("preview").Inc() }

func RecordSettlementFinal(amountCents int64) {
	settlements.WithLabelValues("final").Inc()
	if amountCents > 0 {
		settlementAmount.Observe(float64(amountCents))
	}
}

func RecordAssignment(ok bool) { subSellerAssignments.WithLabelValues(outcome(ok)).Inc() }

func RecordSale(ok bool) { ticketSales.WithLabelValues(outcome(ok)).Inc() }

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "rejected"
}
