package calculator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/groupdreaming/rosca-backend/internal/models"
)

var testRates = Rates{
	AdminFeeRate:          0.10,
	LifeInsuranceRate:     0.0008,
	SubscriptionRightRate: 0.02,
	VATRate:               0.21,
}

func TestGenerateSchedule_InvalidInput(t *testing.T) {
	cases := []struct {
		name    string
		capital float64
		term    int
	}{
		{"zero capital", 0, 24},
		{"negative capital", -100, 24},
		{"zero term", 12000, 0},
		{"negative term", 12000, -3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := GenerateSchedule(tc.capital, tc.term, nil, testRates)
			if !errors.Is(err, models.ErrInvalidScheduleInput) {
				t.Errorf("expected ErrInvalidScheduleInput, got %v", err)
			}
		})
	}
}

func TestGenerateSchedule_PureQuotaSumsToCapital(t *testing.T) {
	cases := []struct {
		capital float64
		term    int
	}{
		{12000, 24},
		{50000, 120},
		{15000, 48},
		{10000, 7}, // does not divide evenly, last quota absorbs remainder
		{5000, 24},
	}
	for _, tc := range cases {
		installments, err := GenerateSchedule(tc.capital, tc.term, nil, testRates)
		if err != nil {
			t.Fatalf("GenerateSchedule(%v, %d): %v", tc.capital, tc.term, err)
		}
		if len(installments) != tc.term {
			t.Fatalf("expected %d installments, got %d", tc.term, len(installments))
		}
		if got := PureQuotaTotal(installments); got != tc.capital {
			t.Errorf("capital=%v term=%d: pure quotas sum to %v", tc.capital, tc.term, got)
		}
	}
}

func TestGenerateSchedule_Deterministic(t *testing.T) {
	activation := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a, err := GenerateSchedule(25000, 84, &activation, testRates)
	if err != nil {
		t.Fatal(err)
	}
	b, err := GenerateSchedule(25000, 84, &activation, testRates)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			// Installment contains a *time.Time, compare fields instead
			if a[i].Total != b[i].Total || a[i].Breakdown != b[i].Breakdown ||
				!a[i].DueDate.Equal(*b[i].DueDate) {
				t.Fatalf("installment %d differs between runs", i+1)
			}
		}
	}
}

func TestGenerateSchedule_DueDates(t *testing.T) {
	activation := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	installments, err := GenerateSchedule(12000, 24, &activation, testRates)
	if err != nil {
		t.Fatal(err)
	}
	if !installments[0].DueDate.Equal(activation) {
		t.Errorf("installment 1 due %v, want %v", installments[0].DueDate, activation)
	}
	want := activation.AddDate(0, 11, 0)
	if !installments[11].DueDate.Equal(want) {
		t.Errorf("installment 12 due %v, want %v", installments[11].DueDate, want)
	}
}

func TestGenerateSchedule_PreviewHasNoDueDates(t *testing.T) {
	installments, err := GenerateSchedule(12000, 24, nil, testRates)
	if err != nil {
		t.Fatal(err)
	}
	for _, inst := range installments {
		if inst.DueDate != nil {
			t.Fatalf("installment %d has a due date in preview mode", inst.Number)
		}
	}
	if installments[4].Label != "Period 5" {
		t.Errorf("expected symbolic label 'Period 5', got %q", installments[4].Label)
	}
}

func TestGenerateSchedule_Breakdown(t *testing.T) {
	installments, err := GenerateSchedule(12000, 24, nil, testRates)
	if err != nil {
		t.Fatal(err)
	}

	first := installments[0]
	if first.Breakdown.PureQuota != 500 {
		t.Errorf("pure quota = %v, want 500", first.Breakdown.PureQuota)
	}
	// 500 * 0.10 * 1.21
	if first.Breakdown.AdminFee != 60.5 {
		t.Errorf("admin fee = %v, want 60.5", first.Breakdown.AdminFee)
	}
	// full capital insured on period 1
	if first.Breakdown.LifeInsurance != RoundCents(12000*0.0008) {
		t.Errorf("life insurance = %v", first.Breakdown.LifeInsurance)
	}
	// 12000 * 0.02 * 1.21, period 1 only
	if first.Breakdown.SubscriptionRight != 290.4 {
		t.Errorf("subscription right = %v, want 290.4", first.Breakdown.SubscriptionRight)
	}
	if installments[1].Breakdown.SubscriptionRight != 0 {
		t.Error("subscription right charged past period 1")
	}

	// insurable balance declines, so does the premium
	if installments[1].Breakdown.LifeInsurance >= first.Breakdown.LifeInsurance {
		t.Error("life insurance did not decrease with the insurable balance")
	}
	last := installments[23]
	if last.Breakdown.LifeInsurance != RoundCents((12000-500*23)*0.0008) {
		t.Errorf("last life insurance = %v", last.Breakdown.LifeInsurance)
	}
}

func TestGenerateSchedule_TotalFeeLoad(t *testing.T) {
	const capital, term = 12000.0, 24
	installments, err := GenerateSchedule(capital, term, nil, testRates)
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, inst := range installments {
		sum += inst.Total
	}
	// sum(total) ~ capital * (1 + fee load); fees are bounded well under
	// 20% of capital for these rates, and drift stays within a cent per
	// installment.
	if sum <= capital || sum >= capital*1.2 {
		t.Errorf("schedule total %v outside plausible fee load range", sum)
	}
	var pure float64
	for _, inst := range installments {
		pure += inst.Breakdown.PureQuota
	}
	if math.Abs(pure-capital) > 0.01*float64(term) {
		t.Errorf("pure quota drift %v exceeds one cent per installment", pure-capital)
	}
}

func TestCumulativeIssuedTotal(t *testing.T) {
	installments, err := GenerateSchedule(12000, 24, nil, testRates)
	if err != nil {
		t.Fatal(err)
	}
	if got := CumulativeIssuedTotal(installments, 0); got != 0 {
		t.Errorf("0 periods elapsed: got %v", got)
	}
	want := RoundCents(installments[0].Total + installments[1].Total)
	if got := CumulativeIssuedTotal(installments, 2); got != want {
		t.Errorf("2 periods elapsed: got %v, want %v", got, want)
	}
}
