package diversify

import (
	"strings"
	"testing"

	"convorec/internal/session"
)

func product(id, brand, bodyStyle string, priceMinor int64, rating float64) session.ProductSummary {
	return session.ProductSummary{
		ID:         id,
		Brand:      brand,
		PriceMinor: priceMinor,
		Rating:     rating,
		Detail:     map[string]any{"body_style": bodyStyle},
	}
}

func bodyStyleAxis() Axis {
	return Axis{
		Name: "body_style",
		Value: func(p session.ProductSummary) (string, bool) {
			v, ok := p.Detail["body_style"].(string)
			return v, ok
		},
	}
}

func TestDiversify_PrefersHighEntropyAxis(t *testing.T) {
	candidates := []session.ProductSummary{
		product("1", "acme", "suv", 2_000_000, 4.5),
		product("2", "acme", "suv", 2_100_000, 4.4),
		product("3", "acme", "sedan", 1_900_000, 4.3),
		product("4", "acme", "sedan", 1_800_000, 4.2),
		product("5", "acme", "truck", 3_000_000, 4.1),
		product("6", "acme", "truck", 3_100_000, 4.0),
	}
	d := New()
	rows := d.Diversify(candidates, []Axis{bodyStyleAxis()})

	if len(rows) == 0 {
		t.Fatalf("expected rows, got none")
	}

	seen := map[string]bool{}
	for _, row := range rows {
		for _, item := range row.Items {
			if seen[item.ID] {
				t.Fatalf("candidate %s appeared in more than one row", item.ID)
			}
			seen[item.ID] = true
		}
	}

	labels := map[string]bool{}
	for _, row := range rows {
		if labels[row.Label] {
			t.Fatalf("duplicate row label %q", row.Label)
		}
		labels[row.Label] = true
	}

	// body_style (three equal groups, 1.58 bits) beats the price buckets
	// (groups of 3, 2 and 1, 1.46 bits), so rows are labeled by body style.
	for _, want := range []string{"Sedans", "Suvs", "Trucks"} {
		if !labels[want] {
			t.Fatalf("expected body_style row %q, got labels %v", want, labels)
		}
	}
}

func TestDiversify_FallsBackToPriceBucketWhenNoVariation(t *testing.T) {
	candidates := []session.ProductSummary{
		product("1", "acme", "suv", 1_000_000, 4.5),
		product("2", "acme", "suv", 2_000_000, 4.4),
		product("3", "acme", "suv", 3_000_000, 4.3),
		product("4", "acme", "suv", 4_000_000, 4.2),
		product("5", "acme", "suv", 5_000_000, 4.1),
		product("6", "acme", "suv", 6_000_000, 4.0),
	}
	d := New()
	rows := d.Diversify(candidates, []Axis{bodyStyleAxis()})

	if len(rows) == 0 {
		t.Fatalf("expected price-bucket fallback rows, got none")
	}
	for _, row := range rows {
		if row.Label == "" {
			t.Fatalf("expected a non-empty price bucket label")
		}
		if !strings.HasPrefix(row.Label, "Budget-Friendly (") && !strings.HasPrefix(row.Label, "Price Range (") {
			t.Fatalf("expected a price bucket label, got %q", row.Label)
		}
	}
}

func TestDiversify_NoCandidateInTwoRows(t *testing.T) {
	var candidates []session.ProductSummary
	styles := []string{"suv", "sedan", "truck", "coupe"}
	for i := 0; i < 20; i++ {
		candidates = append(candidates, product(
			string(rune('a'+i)), "acme", styles[i%len(styles)],
			int64(1_000_000+i*50_000), 5.0-float64(i)*0.01,
		))
	}
	d := New()
	rows := d.Diversify(candidates, []Axis{bodyStyleAxis()})

	seen := map[string]bool{}
	total := 0
	for _, row := range rows {
		for _, item := range row.Items {
			if seen[item.ID] {
				t.Fatalf("candidate %s duplicated across rows", item.ID)
			}
			seen[item.ID] = true
			total++
		}
	}
	if total == 0 {
		t.Fatalf("expected at least one candidate placed")
	}
}

func TestDiversify_EmptyCandidates(t *testing.T) {
	d := New()
	rows := d.Diversify(nil, []Axis{bodyStyleAxis()})
	if rows != nil {
		t.Fatalf("expected nil rows for empty input, got %v", rows)
	}
}
