package core

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortField names a product attribute the listing can be ordered by.
type SortField string

const (
	SortByName         SortField = "name"
	SortByFarmLocation SortField = "farmLocation"
	SortByHarvestDate  SortField = "harvestDate"
)

// SortOrder is the direction of a listing sort.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// ListingQuery captures the listing view state: a free-text filter plus the
// active sort column and direction.
type ListingQuery struct {
	Filter string
	Field  SortField
	Order  SortOrder
}

// DefaultListingQuery is the initial view: newest harvests first, no filter.
func DefaultListingQuery() ListingQuery {
	return ListingQuery{Field: SortByHarvestDate, Order: SortDescending}
}

// Toggle returns the query after the caller selects a sort field. Selecting
// the active field flips its direction; selecting a different field switches
// to it in descending order.
func (q ListingQuery) Toggle(field SortField) ListingQuery {
	if field == q.Field {
		if q.Order == SortAscending {
			q.Order = SortDescending
		} else {
			q.Order = SortAscending
		}
		return q
	}
	q.Field = field
	q.Order = SortDescending
	return q
}

// WithFilter returns the query with the filter text replaced.
func (q ListingQuery) WithFilter(filter string) ListingQuery {
	q.Filter = filter
	return q
}

// ApplyListing filters then sorts a product snapshot according to the query.
// The input slice is not modified.
func ApplyListing(products []Product, q ListingQuery) []Product {
	out := FilterProducts(products, q.Filter)
	SortProducts(out, q.Field, q.Order)
	return out
}

// FilterProducts returns the products whose name, farm location, or variety
// contains the filter as a case-insensitive substring. An empty filter keeps
// everything. The result is always a fresh slice.
func FilterProducts(products []Product, filter string) []Product {
	out := make([]Product, 0, len(products))
	needle := strings.ToLower(strings.TrimSpace(filter))
	for _, p := range products {
		if needle == "" ||
			strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.FarmLocation), needle) ||
			strings.Contains(strings.ToLower(p.Variety), needle) {
			out = append(out, p)
		}
	}
	return out
}

// SortProducts sorts the slice in place by the given field and direction.
// String fields compare with locale-aware collation; the sort is stable so
// ties keep their relative order.
func SortProducts(products []Product, field SortField, order SortOrder) {
	cmp := comparatorFor(field)
	sort.SliceStable(products, func(i, j int) bool {
		c := cmp(products[i], products[j])
		if order == SortDescending {
			return c > 0
		}
		return c < 0
	})
}

// comparatorFor maps a sort field to a three-way comparison. Collators are
// not safe for concurrent use, so each sort builds its own.
func comparatorFor(field SortField) func(a, b Product) int {
	switch field {
	case SortByName:
		col := newCollator()
		return func(a, b Product) int { return col.CompareString(a.Name, b.Name) }
	case SortByFarmLocation:
		col := newCollator()
		return func(a, b Product) int { return col.CompareString(a.FarmLocation, b.FarmLocation) }
	default:
		return func(a, b Product) int {
			switch {
			case a.HarvestDate.Before(b.HarvestDate):
				return -1
			case a.HarvestDate.After(b.HarvestDate):
				return 1
			default:
				return 0
			}
		}
	}
}

func newCollator() *collate.Collator {
	return collate.New(language.Indonesian, collate.IgnoreCase)
}

// recentWindow is how far back a harvest still counts as recent in stats.
const recentWindow = 30 * 24 * time.Hour

// ListingStats summarizes a product snapshot for dashboard consumers.
type ListingStats struct {
	TotalProducts     int `json:"totalProducts"`
	DistinctLocations int `json:"distinctLocations"`
	DistinctVarieties int `json:"distinctVarieties"`
	RecentHarvests    int `json:"recentHarvests"`
}

// CollectStats derives listing statistics from a product snapshot. A harvest
// counts as recent when it falls within the last 30 days of now.
func CollectStats(products []Product, now time.Time) ListingStats {
	stats := ListingStats{TotalProducts: len(products)}
	locations := make(map[string]struct{})
	varieties := make(map[string]struct{})
	cutoff := now.Add(-recentWindow)
	for _, p := range products {
		locations[strings.ToLower(p.FarmLocation)] = struct{}{}
		varieties[strings.ToLower(p.Variety)] = struct{}{}
		harvested := p.HarvestDate.Time()
		if !harvested.Before(cutoff) && !harvested.After(now) {
			stats.RecentHarvests++
		}
	}
	stats.DistinctLocations = len(locations)
	stats.DistinctVarieties = len(varieties)
	return stats
}
