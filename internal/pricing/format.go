package pricing

import "fmt"

// FormatUSD renders a cost per spec.md §4.3 "Cost display formatting":
// amounts under a cent get 6 decimal places, amounts under a dollar get 4,
// everything else gets 2 — so small per-token costs don't round to "$0.00".
func FormatUSD(amount float64) string {
	switch {
	case amount < 0.01:
		return fmt.Sprintf("$%.6f", amount)
	case amount < 1:
		return fmt.Sprintf("$%.4f", amount)
	default:
		return fmt.Sprintf("$%.2f", amount)
	}
}
