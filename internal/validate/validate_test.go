package validate

import (
	"context"
	"testing"
)

func TestValidate_PriceRange(t *testing.T) {
	v := New(nil, "")
	out := v.Validate(context.Background(), "under $2000")
	if !out.Valid || out.Intent != "price" {
		t.Fatalf("expected valid price intent, got %+v", out)
	}
}

func TestValidate_Greeting(t *testing.T) {
	v := New(nil, "")
	out := v.Validate(context.Background(), "hi")
	if !out.Valid || !out.Empty || out.Intent != "greeting" {
		t.Fatalf("expected valid-but-empty greeting, got %+v", out)
	}
}

func TestValidate_TooShort(t *testing.T) {
	v := New(nil, "")
	out := v.Validate(context.Background(), "x")
	if out.Valid {
		t.Fatalf("expected invalid for too-short message")
	}
}

func TestValidate_PurelyDigits(t *testing.T) {
	v := New(nil, "")
	out := v.Validate(context.Background(), "12345")
	if out.Valid {
		t.Fatalf("expected invalid for purely-digit message")
	}
}

func TestValidate_PurelyPunctuation(t *testing.T) {
	v := New(nil, "")
	out := v.Validate(context.Background(), "!!!???")
	if out.Valid {
		t.Fatalf("expected invalid for purely-punctuation message")
	}
}

func TestValidate_GibberishVowelRatio(t *testing.T) {
	v := New(nil, "")
	out := v.Validate(context.Background(), "asdfghjk")
	if out.Valid {
		t.Fatalf("expected invalid for low-vowel-ratio gibberish")
	}
}

func TestValidate_NoCompleterFallsBackToValidChat(t *testing.T) {
	v := New(nil, "")
	out := v.Validate(context.Background(), "looking for a good laptop")
	if !out.Valid || out.Intent != "chat" {
		t.Fatalf("expected valid chat fallback, got %+v", out)
	}
}

func TestCorrectKeywords_FuzzyMatch(t *testing.T) {
	got := correctKeywords("I want a boks please")
	if got != "I want a books please" {
		t.Fatalf("expected fuzzy correction to 'books', got %q", got)
	}
}

func TestCorrectKeywords_LeavesUnrelatedWordsAlone(t *testing.T) {
	got := correctKeywords("show me something nice")
	if got != "show me something nice" {
		t.Fatalf("expected no corrections, got %q", got)
	}
}

func TestCorrectKeywords_AlreadyCanonical(t *testing.T) {
	got := correctKeywords("I want books")
	if got != "I want books" {
		t.Fatalf("expected canonical word left untouched, got %q", got)
	}
}

func TestToleranceFor(t *testing.T) {
	cases := map[int]int{2: 0, 3: 2, 5: 2, 6: 3, 9: 3, 20: 3}
	for length, want := range cases {
		if got := toleranceFor(length); got != want {
			t.Errorf("toleranceFor(%d) = %d, want %d", length, got, want)
		}
	}
}
