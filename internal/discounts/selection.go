package discounts

import (
	"sort"
	"time"
)

// Select picks the discount consulted for pricing. Among the discounts that
// apply at now it prefers the latest start date, then the higher
// percentage, then the lower id. When none applies it returns the most
// recently started record so callers still see what the user holds. It
// returns nil for an empty list.
func Select(ds []*Discount, now time.Time) *Discount {
	if len(ds) == 0 {
		return nil
	}
	sorted := make([]*Discount, len(ds))
	copy(sorted, ds)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.After(b.StartDate)
		}
		if c := a.Percentage.Cmp(b.Percentage); c != 0 {
			return c > 0
		}
		return a.ID.String() < b.ID.String()
	})
	for _, d := range sorted {
		if d.AppliesAt(now) {
			return d
		}
	}
	return sorted[0]
}
