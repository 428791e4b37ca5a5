package collection

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// sortResources orders resources for display: unused before used, then by
// name with case-insensitive, numeric-aware collation ("img2" < "img10").
// The order depends only on membership and used state.
func sortResources(rs []Resource) {
	// Collators keep internal buffers and are not safe to share.
	col := collate.New(language.Und, collate.IgnoreCase, collate.Numeric)
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.Used != b.Used {
			return !a.Used
		}
		if c := col.CompareString(a.Name, b.Name); c != 0 {
			return c < 0
		}
		return a.Key < b.Key
	})
}
