package tracker

// SortOption is a server-side ordering mode for listing queries. The zero
// value is SortBestDeal.
type SortOption uint8

const (
	SortBestDeal SortOption = iota
	SortHighestDiscount
	SortLowestPrice
	SortHighestPrice
	SortMostRecent
	SortLowestFloat
	SortHighestFloat
	SortCreatedAt
	numSortOptions
)

var sortOptionInfo = [numSortOptions]struct{ name, desc string }{
	SortBestDeal:        {"best_deal", "Best value deals (default)"},
	SortHighestDiscount: {"highest_discount", "Highest discount from predicted price"},
	SortLowestPrice:     {"lowest_price", "Lowest price first"},
	SortHighestPrice:    {"highest_price", "Highest price first"},
	SortMostRecent:      {"most_recent", "Most recently listed"},
	SortLowestFloat:     {"lowest_float", "Lowest float value first"},
	SortHighestFloat:    {"highest_float", "Highest float value first"},
	SortCreatedAt:       {"created_at", "Sort by creation time"},
}

const DefaultSort = SortBestDeal

func (s SortOption) String() string {
	if s >= numSortOptions {
		return ""
	}
	return sortOptionInfo[s].name
}

func (s SortOption) Description() string {
	if s >= numSortOptions {
		return ""
	}
	return sortOptionInfo[s].desc
}

// SortOptions returns every option in display order.
func SortOptions() []SortOption {
	out := make([]SortOption, 0, numSortOptions)
	for s := SortOption(0); s < numSortOptions; s++ {
		out = append(out, s)
	}
	return out
}

// ParseSortOption matches the exact wire name.
func ParseSortOption(s string) (SortOption, error) {
	for o := SortOption(0); o < numSortOptions; o++ {
		if sortOptionInfo[o].name == s {
			return o, nil
		}
	}
	return 0, &InvalidSortError{Value: s}
}
