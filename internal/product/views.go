package product

import "strings"

const (
	AllCategories    = "All"
	FallbackCategory = "Other"
)

// Categories lists the menu tabs: AllCategories first, then each distinct
// category in first-seen order.
func Categories(products []Product) []string {
	out := []string{AllCategories}
	seen := make(map[string]bool)
	for _, p := range products {
		c := p.DisplayCategory()
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// FilterMenu keeps products whose name contains search, ignoring case, and
// whose category matches. An empty category or AllCategories matches
// everything.
func FilterMenu(products []Product, search, category string) []Product {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		if category != "" && category != AllCategories && p.DisplayCategory() != category {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ImageURL resolves a product image hash against the IPFS gateway.
func ImageURL(gateway string, p Product) string {
	if p.Image == "" {
		return ""
	}
	return strings.TrimRight(gateway, "/") + "/ipfs/" + p.Image
}
