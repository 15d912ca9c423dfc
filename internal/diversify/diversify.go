// Package diversify implements the Diversifier (spec.md §4.6): turning a
// ranked candidate list into R labeled rows of up to P items, chosen along
// whichever categorical axis carries the most information (highest Shannon
// entropy), falling back to price buckets.
//
// None of the retrieved example repos implement result diversification, so
// this algorithm is original to this package rather than adapted from a
// specific file; it follows spec.md §4.6 directly and is covered by its own
// table-driven tests, matching the small-pure-heavily-tested package shape
// of the teacher's internal/retry.
package diversify

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"convorec/internal/session"
)

// DefaultRows and DefaultPerRow are the (R, P) defaults from spec.md §4.6.
const (
	DefaultRows   = 3
	DefaultPerRow = 3

	// entropyFloor is the minimum entropy (bits) an axis must clear to be
	// preferred over the price_bucket fallback.
	entropyFloor = 0.05
)

// Axis is one candidate grouping dimension. Value returns the candidate's
// value along this axis, or ok=false if the candidate doesn't carry one.
type Axis struct {
	Name  string
	Value func(p session.ProductSummary) (string, bool)
}

// Row is one labeled group of recommendations.
type Row struct {
	Label string
	Items []session.ProductSummary
}

// Diversifier groups ranked candidates into rows.
type Diversifier struct {
	Rows   int
	PerRow int
}

// New returns a Diversifier with the spec.md defaults.
func New() *Diversifier {
	return &Diversifier{Rows: DefaultRows, PerRow: DefaultPerRow}
}

// Diversify groups candidates (already ranked) into rows along the
// highest-entropy axis, or price_bucket if no axis clears entropyFloor.
// axes should not include a price_bucket axis; one is always synthesized
// internally from the candidate price distribution.
func (d *Diversifier) Diversify(candidates []session.ProductSummary, axes []Axis) []Row {
	if len(candidates) == 0 {
		return nil
	}

	priceAxis := priceBucketAxis(candidates, d.Rows)
	allAxes := append([]Axis{priceAxis}, axes...)

	chosen := priceAxis
	bestEntropy := axisEntropy(candidates, priceAxis)
	for _, ax := range allAxes[1:] {
		e := axisEntropy(candidates, ax)
		if e > bestEntropy && e >= entropyFloor {
			chosen = ax
			bestEntropy = e
		}
	}

	return d.assembleRows(candidates, chosen)
}

// assembleRows picks the top d.Rows values of the chosen axis (ranked by
// their entropy contribution), fills each with up to d.PerRow matching
// candidates in original rank order, then backfills any under-full rows
// with the highest-ranked unused remainder.
func (d *Diversifier) assembleRows(candidates []session.ProductSummary, axis Axis) []Row {
	valueOf := make([]string, len(candidates))
	present := make([]bool, len(candidates))
	counts := map[string]int{}
	var total int

	for i, c := range candidates {
		v, ok := axis.Value(c)
		if !ok || v == "" {
			continue
		}
		valueOf[i] = v
		present[i] = true
		counts[v]++
		total++
	}

	type valueContribution struct {
		value        string
		contribution float64
	}
	contributions := make([]valueContribution, 0, len(counts))
	for v, n := range counts {
		p := float64(n) / float64(total)
		contributions = append(contributions, valueContribution{value: v, contribution: -p * math.Log2(p)})
	}
	sort.SliceStable(contributions, func(i, j int) bool {
		if contributions[i].contribution != contributions[j].contribution {
			return contributions[i].contribution > contributions[j].contribution
		}
		return contributions[i].value < contributions[j].value
	})

	rowCount := d.Rows
	if rowCount > len(contributions) {
		rowCount = len(contributions)
	}

	rows := make([]Row, rowCount)
	used := make([]bool, len(candidates))
	valueToRow := map[string]int{}
	for i := 0; i < rowCount; i++ {
		rows[i].Label = label(axis.Name, contributions[i].value, candidates, valueOf, present)
		valueToRow[contributions[i].value] = i
	}

	for i, c := range candidates {
		if !present[i] {
			continue
		}
		rowIdx, ok := valueToRow[valueOf[i]]
		if !ok {
			continue
		}
		if len(rows[rowIdx].Items) >= d.PerRow {
			continue
		}
		rows[rowIdx].Items = append(rows[rowIdx].Items, c)
		used[i] = true
	}

	// Backfill under-full rows with the highest-ranked unused remainder,
	// preserving original ranking order (spec.md §4.6 "Row assembly").
	for i := range rows {
		for len(rows[i].Items) < d.PerRow {
			filled := false
			for j, c := range candidates {
				if used[j] {
					continue
				}
				rows[i].Items = append(rows[i].Items, c)
				used[j] = true
				filled = true
				break
			}
			if !filled {
				break
			}
		}
	}

	// Drop any row that ended up empty (fewer distinct axis values than
	// rowCount, e.g. a tiny candidate set).
	out := rows[:0]
	for _, r := range rows {
		if len(r.Items) > 0 {
			out = append(out, r)
		}
	}
	return out
}

// axisEntropy computes the Shannon entropy (bits) of the candidate
// distribution along axis, counting only candidates that carry a value.
func axisEntropy(candidates []session.ProductSummary, axis Axis) float64 {
	counts := map[string]int{}
	var total int
	for _, c := range candidates {
		if v, ok := axis.Value(c); ok && v != "" {
			counts[v]++
			total++
		}
	}
	if total == 0 || len(counts) < 2 {
		return 0
	}
	var h float64
	for _, n := range counts {
		p := float64(n) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}

// priceBucketAxis builds tertile-style price buckets over the candidate
// set (quantiles sized to fit `rows` buckets).
func priceBucketAxis(candidates []session.ProductSummary, rows int) Axis {
	prices := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		prices = append(prices, c.PriceMinor)
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })

	breakpoints := make([]int64, 0, rows-1)
	for i := 1; i < rows; i++ {
		idx := (len(prices) * i) / rows
		if idx >= len(prices) {
			idx = len(prices) - 1
		}
		breakpoints = append(breakpoints, prices[idx])
	}

	bucketOf := func(price int64) string {
		bucket := 0
		for _, bp := range breakpoints {
			if price > bp {
				bucket++
			}
		}
		return fmt.Sprintf("bucket_%d", bucket)
	}

	return Axis{
		Name: "price_bucket",
		Value: func(p session.ProductSummary) (string, bool) {
			return bucketOf(p.PriceMinor), true
		},
	}
}

// label renders a human-readable row label for an axis value.
func label(axisName, value string, candidates []session.ProductSummary, valueOf []string, present []bool) string {
	if axisName == "price_bucket" {
		var min, max int64 = -1, -1
		for i, c := range candidates {
			if !present[i] || valueOf[i] != value {
				continue
			}
			if min == -1 || c.PriceMinor < min {
				min = c.PriceMinor
			}
			if max == -1 || c.PriceMinor > max {
				max = c.PriceMinor
			}
		}
		switch value {
		case "bucket_0":
			return fmt.Sprintf("Budget-Friendly ($%d–$%d)", min/100, max/100)
		default:
			return fmt.Sprintf("Price Range ($%d–$%d)", min/100, max/100)
		}
	}

	title := strings.Title(strings.ReplaceAll(value, "_", " "))
	switch axisName {
	case "brand":
		return title + " Picks"
	case "use_case", "genre":
		return title + " Focus"
	case "body_style":
		return title + "s"
	default:
		return title
	}
}
