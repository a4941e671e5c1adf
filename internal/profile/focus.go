package profile

import "strings"

// focusRule maps merchant vocabulary to a spend category. Rules are checked
// in order and the first hit wins, so travel vocabulary beats the broader
// online/grocery words.
type focusRule struct {
	category string
	words    []string
}

var focusRules = []focusRule{
	{category: "travel", words: []string{"airline", "airways", "hotel", "travel", "flight"}},
	{category: "dining", words: []string{"restaurant", "cafe", "dining", "coffee", "bakery"}},
	{category: "online", words: []string{"online", "amazon", "shopee", "lazada"}},
	{category: "groceries", words: []string{"grocery", "supermarket", "market", "fairprice"}},
	{category: "transport", words: []string{"transport", "transit", "taxi", "grab", "mrt"}},
}

// fallbackCategory absorbs merchants no rule recognizes.
const fallbackCategory = "general"

// DeriveFocus aggregates spend amounts into category shares. Shares are in
// [0, 1] and sum to 1. An empty or zero-amount spend list yields an empty
// map rather than a map of zeroes.
func DeriveFocus(spends []Spend) map[string]float64 {
	totals := make(map[string]float64)
	var total float64

	for _, spend := range spends {
		totals[ClassifyMerchant(spend.Merchant)] += spend.Amount
		total += spend.Amount
	}

	if total == 0 {
		return map[string]float64{}
	}

	focus := make(map[string]float64, len(totals))
	for category, amount := range totals {
		focus[category] = amount / total
	}

	return focus
}

// ClassifyMerchant maps a merchant name to its spend category.
func ClassifyMerchant(merchant string) string {
	lower := strings.ToLower(merchant)
	for _, rule := range focusRules {
		for _, word := range rule.words {
			if strings.Contains(lower, word) {
				return rule.category
			}
		}
	}
	return fallbackCategory
}
