// Package fee computes the sender-side fee for a transfer.
package fee

// Quote is the fee breakdown for a single amount.
type Quote struct {
	Amount        float64 `json:"amount"`
	FeePercentage float64 `json:"fee_percentage"`
	Fee           float64 `json:"fee"`
	TotalAmount   float64 `json:"total_amount"`
}

// Compute returns fee = amount*pct/100 and total = amount + fee.
func Compute(amount, pct float64) Quote {
	f := amount * pct / 100
	return Quote{
		Amount:        amount,
		FeePercentage: pct,
		Fee:           f,
		TotalAmount:   amount + f,
	}
}

// Payout converts amount to the payout currency at rate.
func Payout(amount, rate float64) float64 {
	return amount * rate
}
