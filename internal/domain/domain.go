// Package domain holds the static Domain Registry: the single extension
// point for adding a product vertical. Adding a domain means adding a
// registry entry here plus a SearchBackend binding in internal/search;
// nothing else in the pipeline changes.
package domain

// Domain identifies a product vertical with its own slot schema and search
// backend.
type Domain string

const (
	Vehicles Domain = "vehicles"
	Laptops  Domain = "laptops"
	Books    Domain = "books"
	Unknown  Domain = "unknown"
)

// Valid reports whether d is one of the registry's known domains (Unknown
// counts as valid: it is a legitimate "not yet determined" state).
func (d Domain) Valid() bool {
	switch d {
	case Vehicles, Laptops, Books, Unknown:
		return true
	default:
		return false
	}
}

// Priority orders interview questions: HIGH slots are asked before MEDIUM,
// MEDIUM before LOW.
type Priority int

const (
	LOW Priority = iota
	MEDIUM
	HIGH
)

// PriceContext tells the slot extractor how to interpret a bare number for
// a price_range slot in this domain (spec.md §4.1: "books interpret numeric
// budgets as dollars, vehicles as thousands").
type PriceContext struct {
	Unit  string // e.g. "USD"
	Scale int64  // multiplier applied to the raw extracted number
}

// Slot is a semantic preference dimension on a domain. It is a tagged union
// rather than a single struct with optional fields, so the extractor's
// snap-to-allowed-value guarantee is checkable at the type layer (see
// SPEC_FULL.md §3 / Design Note in DESIGN.md).
type Slot interface {
	Key() string
	Priority() Priority
	RequiredForSearch() bool
	ExamplePrompt() string
	ExampleReplies() []string
	// Accepts reports whether a raw (already-trimmed) value is acceptable
	// for this slot without modification.
	Accepts(value string) bool
}

type baseSlot struct {
	key             string
	priority        Priority
	requiredSearch  bool
	examplePrompt   string
	exampleReplies  []string
}

func (b baseSlot) Key() string              { return b.key }
func (b baseSlot) Priority() Priority       { return b.priority }
func (b baseSlot) RequiredForSearch() bool  { return b.requiredSearch }
func (b baseSlot) ExamplePrompt() string    { return b.examplePrompt }
func (b baseSlot) ExampleReplies() []string { return b.exampleReplies }

// CategoricalSlot restricts filter values to a closed set.
type CategoricalSlot struct {
	baseSlot
	Allowed []string
}

func (s CategoricalSlot) Accepts(value string) bool {
	for _, a := range s.Allowed {
		if a == value {
			return true
		}
	}
	return false
}

// PriceRangeSlot holds a numeric budget interpreted through a PriceContext.
type PriceRangeSlot struct {
	baseSlot
	Context PriceContext
}

func (s PriceRangeSlot) Accepts(value string) bool {
	// Numeric acceptance is enforced by the extractor before the value
	// reaches session.FilterValue; any non-empty string is structurally ok
	// here.
	return value != ""
}

// FreeTextSlot carries unconstrained text (e.g. a book title hint).
type FreeTextSlot struct {
	baseSlot
}

func (s FreeTextSlot) Accepts(value string) bool { return value != "" }

// IntegerSlot carries a bare integer (e.g. number of seats).
type IntegerSlot struct {
	baseSlot
}

func (s IntegerSlot) Accepts(value string) bool { return value != "" }

// Registry is the read-only table of domains and their slots.
type Registry struct {
	slots map[Domain][]Slot
}

// NewRegistry returns the reference registry: vehicles, laptops, books.
func NewRegistry() *Registry {
	return &Registry{slots: map[Domain][]Slot{
		Vehicles: vehicleSlots(),
		Laptops:  laptopSlots(),
		Books:    bookSlots(),
	}}
}

// Domains returns every domain this registry knows about, Unknown excluded.
func (r *Registry) Domains() []Domain {
	return []Domain{Vehicles, Laptops, Books}
}

// Slots returns the slot list for a domain in declaration order (which is
// also priority-descending within each tier, matching interview order).
func (r *Registry) Slots(d Domain) []Slot {
	return r.slots[d]
}

// Slot looks up a single slot by key within a domain.
func (r *Registry) Slot(d Domain, key string) (Slot, bool) {
	for _, s := range r.slots[d] {
		if s.Key() == key {
			return s, true
		}
	}
	return nil, false
}

// OrderedForInterview returns the domain's slots sorted HIGH, then MEDIUM,
// then LOW, preserving declaration order within a tier.
func (r *Registry) OrderedForInterview(d Domain) []Slot {
	all := append([]Slot(nil), r.slots[d]...)
	out := make([]Slot, 0, len(all))
	for _, tier := range []Priority{HIGH, MEDIUM, LOW} {
		for _, s := range all {
			if s.Priority() == tier {
				out = append(out, s)
			}
		}
	}
	return out
}
