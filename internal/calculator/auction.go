package calculator

// auctionBaseFactor is the fraction of the cumulative issued installment
// total that an exiting position lists at on the secondary market.
const auctionBaseFactor = 0.5

// AuctionQuote is the seller side of a secondary-market listing.
type AuctionQuote struct {
	BasePrice        float64 `json:"basePrice"`
	SellerCommission float64 `json:"sellerCommission"`
	NetProceeds      float64 `json:"netProceeds"`
}

// PriceListing computes the seller-side economics of a listing. The base
// price is half the cumulative issued installment total; the sale
// commission is charged on the base price with VAT; any outstanding debt
// of the seller is withheld from the proceeds.
func PriceListing(cumulativeIssuedTotal, outstandingDebt, commissionRate, vatRate float64) AuctionQuote {
	basePrice := RoundCents(cumulativeIssuedTotal * auctionBaseFactor)
	commission := RoundCents(basePrice * commissionRate * (1 + vatRate))
	return AuctionQuote{
		BasePrice:        basePrice,
		SellerCommission: commission,
		NetProceeds:      RoundCents(basePrice - commission - outstandingDebt),
	}
}

// BuyerCommission is charged on the winning bid amount, VAT included.
func BuyerCommission(winningBid, commissionRate, vatRate float64) float64 {
	return RoundCents(winningBid * commissionRate * (1 + vatRate))
}

// BuyerDefaultPenalty is owed by a buyer who misses the settlement window
// before they may bid again.
func BuyerDefaultPenalty(winningBid, penaltyRate, vatRate float64) float64 {
	return RoundCents(winningBid * penaltyRate * (1 + vatRate))
}

// ExitPenalty is withheld from a member leaving the group voluntarily,
// charged on the pure capital contributed so far.
func ExitPenalty(pureCapitalContributed, penaltyRate, vatRate float64) float64 {
	return RoundCents(pureCapitalContributed * penaltyRate * (1 + vatRate))
}

// RetentionSurcharge applies when a bid winner settles in capital-retention
// mode; it is charged over the prepaid pure-quota total.
func RetentionSurcharge(prepaidPureQuota, surchargeRate, vatRate float64) float64 {
	return RoundCents(prepaidPureQuota * surchargeRate * (1 + vatRate))
}
