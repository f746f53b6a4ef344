package constants

import (
	"strings"
)

type Category string

const (
	Meals          Category = "Meals"
	Travel         Category = "Travel"
	OfficeSupplies Category = "Office Supplies"
	Software       Category = "Software"
	Entertainment  Category = "Entertainment"
	Other          Category = "Other"
)

var allCategories = []Category{
	Meals,
	Travel,
	OfficeSupplies,
	Software,
	Entertainment,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps a model-supplied label onto the closed category set.
// The bool reports whether the label was recognised; unknown labels map to Other.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]Category{
		"food":             Meals,
		"restaurant":       Meals,
		"dining":           Meals,
		"groceries":        Meals,
		"uber":             Travel,
		"lyft":             Travel,
		"taxi":             Travel,
		"airline":          Travel,
		"hotel":            Travel,
		"fuel":             Travel,
		"travel expenses":  Travel,
		"stationery":       OfficeSupplies,
		"office":           OfficeSupplies,
		"officesupplies":   OfficeSupplies,
		"saas":             Software,
		"subscription":     Software,
		"software license": Software,
		"movies":           Entertainment,
		"events":           Entertainment,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Other, false
}
