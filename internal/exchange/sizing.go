package exchange

import (
	"fmt"
	"math"

	"perpbot/internal/model"

	"github.com/shopspring/decimal"
)

// Size converts a USD budget and leverage into integer micro-USD collateral
// and notional. Quantization is half-even at 6 decimal places so repeated
// sizing never accumulates sub-micro dust.
func Size(budgetUSD, leverage float64) (collateral, notional int64, err error) {
	if budgetUSD <= 0 || math.IsNaN(budgetUSD) || math.IsInf(budgetUSD, 0) {
		return 0, 0, fmt.Errorf("%w: budget %v", model.ErrInvalidBudget, budgetUSD)
	}
	if leverage <= 0 || math.IsNaN(leverage) || math.IsInf(leverage, 0) {
		return 0, 0, fmt.Errorf("%w: leverage %v", model.ErrInvalidBudget, leverage)
	}

	budget := decimal.NewFromFloat(budgetUSD).RoundBank(6)
	micro := decimal.New(1, 6) // 1e6 micro-units per USD

	collateral = budget.Mul(micro).IntPart()
	notional = budget.Mul(decimal.NewFromFloat(leverage)).RoundBank(6).Mul(micro).IntPart()
	if collateral <= 0 || notional <= 0 {
		return 0, 0, fmt.Errorf("%w: collateral=%d notional=%d", model.ErrInvalidBudget, collateral, notional)
	}
	return collateral, notional, nil
}

// USD renders micro-units back to a USD float for logging.
func USD(micro int64) float64 {
	f, _ := decimal.New(micro, -6).Float64()
	return f
}
