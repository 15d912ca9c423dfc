package pipeline

import (
	"testing"
	"time"

	"convorec/internal/domain"
	"convorec/internal/session"
)

func TestMergeFilters_SnapsCategoricalAndConvertsPrice(t *testing.T) {
	registry := domain.NewRegistry()
	s := session.New("s1", 3, time.Unix(0, 0))
	s.ActiveDomain = domain.Laptops

	mergeFilters(s, registry, map[string]string{
		"use_case": "Gaming",
		"budget":   "1500",
		"gpu_vendor": "nope-not-a-real-vendor",
	})

	v, ok := s.Filters["use_case"]
	if !ok || v.String() != "gaming" {
		t.Fatalf("expected use_case snapped to lowercase gaming, got %+v", v)
	}
	n, isNum := s.Filters["budget"].Int()
	if !isNum || n != 150000 {
		t.Fatalf("expected budget converted to 150000 minor units, got %d", n)
	}
	if _, present := s.Filters["gpu_vendor"]; present {
		t.Fatalf("expected invalid categorical value to be dropped, not present")
	}
}

func TestMergeFilters_VehicleBudgetScale(t *testing.T) {
	registry := domain.NewRegistry()
	s := session.New("s1", 3, time.Unix(0, 0))
	s.ActiveDomain = domain.Vehicles

	mergeFilters(s, registry, map[string]string{"budget": "20"})

	n, isNum := s.Filters["budget"].Int()
	if !isNum || n != 2_000_000 {
		t.Fatalf("expected vehicle budget '20' (thousands) to scale to 2,000,000 minor units, got %d", n)
	}
}
