package valuation

// BudgetBracket is one of the budget ranges a visitor can pick in the wizard.
type BudgetBracket struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Min   int64  `json:"min"`
	Max   int64  `json:"max"`
}

var brackets = []BudgetBracket{
	{ID: "starter", Label: "Starter (<$5k)", Min: 0, Max: 5000},
	{ID: "standard", Label: "Standard ($5k - $10k)", Min: 5000, Max: 10000},
	{ID: "growth", Label: "Growth ($10k - $25k)", Min: 10000, Max: 25000},
	{ID: "enterprise", Label: "Enterprise ($25k+)", Min: 25000, Max: 999999},
}

// Brackets returns the budget brackets in ascending order.
func Brackets() []BudgetBracket {
	return append([]BudgetBracket(nil), brackets...)
}

// BracketByID looks up a bracket by its id.
func BracketByID(id string) (BudgetBracket, bool) {
	for _, b := range brackets {
		if b.ID == id {
			return b, true
		}
	}
	return BudgetBracket{}, false
}

// Recommend returns the bracket whose [Min, Max) range holds estimateUSD.
// No recommendation is made for a zero estimate.
func Recommend(estimateUSD float64) *BudgetBracket {
	if estimateUSD <= 0 {
		return nil
	}
	for i := range brackets {
		if estimateUSD < float64(brackets[i].Max) {
			b := brackets[i]
			return &b
		}
	}
	b := brackets[len(brackets)-1]
	return &b
}
