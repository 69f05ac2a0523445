// Package calculator holds the pure financial math of the engine:
// installment-schedule generation and secondary-market pricing. Everything
// in here is deterministic and side-effect free.
package calculator

import (
	"fmt"
	"math"
	"time"

	"github.com/groupdreaming/rosca-backend/internal/models"
)

// Rates are the configured fee percentages applied on top of the pure
// quota. VATRate is expressed as a fraction (0.21 for 21%).
type Rates struct {
	AdminFeeRate          float64
	LifeInsuranceRate     float64
	SubscriptionRightRate float64
	VATRate               float64
}

// RoundCents rounds a monetary amount to two decimals.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// GenerateSchedule derives the full installment schedule for a group.
// Identical inputs always yield identical schedules; receipts depend on
// that. The pure quota is straight-line (capital / term) with the final
// period absorbing the rounding remainder so the pure quotas sum to the
// capital exactly. Life insurance is charged on the insurable balance,
// which declines by one quota's worth each period. When activation is nil
// (pre-activation preview) due dates are omitted and only the period
// label is set.
func GenerateSchedule(capital float64, term int, activation *time.Time, r Rates) ([]models.Installment, error) {
	if capital <= 0 || term <= 0 {
		return nil, fmt.Errorf("capital=%.2f term=%d: %w", capital, term, models.ErrInvalidScheduleInput)
	}

	baseQuota := RoundCents(capital / float64(term))
	vat := 1 + r.VATRate

	installments := make([]models.Installment, 0, term)
	for n := 1; n <= term; n++ {
		pureQuota := baseQuota
		if n == term {
			pureQuota = RoundCents(capital - baseQuota*float64(term-1))
		}

		insurableBalance := capital - baseQuota*float64(n-1)
		breakdown := models.InstallmentBreakdown{
			PureQuota:     pureQuota,
			AdminFee:      RoundCents(pureQuota * r.AdminFeeRate * vat),
			LifeInsurance: RoundCents(insurableBalance * r.LifeInsuranceRate),
		}
		if n == 1 {
			breakdown.SubscriptionRight = RoundCents(capital * r.SubscriptionRightRate * vat)
		}

		inst := models.Installment{
			Number:    n,
			Label:     fmt.Sprintf("Period %d", n),
			Breakdown: breakdown,
			Total: RoundCents(breakdown.PureQuota + breakdown.AdminFee +
				breakdown.LifeInsurance + breakdown.SubscriptionRight),
		}
		if activation != nil {
			due := activation.AddDate(0, n-1, 0)
			inst.DueDate = &due
		}
		installments = append(installments, inst)
	}
	return installments, nil
}

// CumulativeIssuedTotal sums the totals of all installments issued to
// date, i.e. those with number <= periodsElapsed.
func CumulativeIssuedTotal(installments []models.Installment, periodsElapsed int) float64 {
	var total float64
	for _, inst := range installments {
		if inst.Number > periodsElapsed {
			break
		}
		total += inst.Total
	}
	return RoundCents(total)
}

// PureQuotaTotal sums the pure-quota portion of the given installments.
func PureQuotaTotal(installments []models.Installment) float64 {
	var total float64
	for _, inst := range installments {
		total += inst.Breakdown.PureQuota
	}
	return RoundCents(total)
}
