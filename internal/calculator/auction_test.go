package calculator

import "testing"

func TestPriceListing(t *testing.T) {
	// capital=12000, term=24, cumulative issued total 13000:
	// base 6500, commission 6500*0.02*1.21 = 157.30, net 6342.70
	quote := PriceListing(13000, 0, 0.02, 0.21)
	if quote.BasePrice != 6500 {
		t.Errorf("base price = %v, want 6500", quote.BasePrice)
	}
	if quote.SellerCommission != 157.30 {
		t.Errorf("seller commission = %v, want 157.30", quote.SellerCommission)
	}
	if quote.NetProceeds != 6342.70 {
		t.Errorf("net proceeds = %v, want 6342.70", quote.NetProceeds)
	}
}

func TestPriceListing_OutstandingDebtWithheld(t *testing.T) {
	quote := PriceListing(13000, 500, 0.02, 0.21)
	if quote.NetProceeds != 5842.70 {
		t.Errorf("net proceeds = %v, want 5842.70", quote.NetProceeds)
	}
}

func TestBuyerCommission(t *testing.T) {
	if got := BuyerCommission(7000, 0.02, 0.21); got != 169.40 {
		t.Errorf("buyer commission = %v, want 169.40", got)
	}
}

func TestBuyerDefaultPenalty(t *testing.T) {
	if got := BuyerDefaultPenalty(7000, 0.10, 0.21); got != 847 {
		t.Errorf("default penalty = %v, want 847", got)
	}
}

func TestExitPenalty(t *testing.T) {
	// 10 quotas of 500 contributed, 5% + VAT
	if got := ExitPenalty(5000, 0.05, 0.21); got != 302.50 {
		t.Errorf("exit penalty = %v, want 302.50", got)
	}
}

func TestRetentionSurcharge(t *testing.T) {
	if got := RetentionSurcharge(3000, 0.05, 0.21); got != 181.50 {
		t.Errorf("retention surcharge = %v, want 181.50", got)
	}
}
