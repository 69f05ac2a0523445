// Package metrics exposes the engine's operation counters on the
// Prometheus registry.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JoinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rosca_joins_total",
		Help: "Group join attempts by outcome.",
	}, []string{"outcome"})

	PaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rosca_payments_total",
		Help: "Recorded installment payments by outcome.",
	}, []string{"outcome"})

	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rosca_period_resolutions_total",
		Help: "Period resolutions by outcome (resolved, idempotent_replay, failed).",
	}, []string{"outcome"})

	AwardsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rosca_awards_total",
		Help: "Awards granted by type.",
	}, []string{"type"})

	AuctionSettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rosca_auction_settlements_total",
		Help: "Auction settlements by outcome (sold, absorbed, buyer_default).",
	}, []string{"outcome"})

	ReserveDebitsRefused = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rosca_reserve_debits_refused_total",
		Help: "Reserve-fund debits refused because the balance was insufficient.",
	})
)

// Handler returns the /metrics endpoint handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
