package processor

import (
	"math"
	"testing"
)

func TestProcessor_CleanFragment(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "strips emphasis",
			html: `<p>An <em>astonishing</em> debut.</p>`,
			want: "An *astonishing* debut.",
		},
		{
			name: "collapses whitespace",
			html: "<p>Too   many\n\n   spaces.</p>",
			want: "Too many spaces.",
		},
		{
			name: "empty fragment",
			html: "",
			want: "",
		},
	}

	p := New()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.CleanFragment(tt.html)
			if err != nil {
				t.Fatalf("CleanFragment() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CleanFragment() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProcessor_ExtractTitle(t *testing.T) {
	p := New()

	page := `<html><head><title>  The Matrix (1999) - IMDb </title></head><body></body></html>`
	if got := p.ExtractTitle(page); got != "The Matrix (1999) - IMDb" {
		t.Errorf("ExtractTitle() = %q", got)
	}

	if got := p.ExtractTitle("<html><body>no title</body></html>"); got != "" {
		t.Errorf("ExtractTitle() on titleless page = %q, want empty", got)
	}
}

func TestExtractRating(t *testing.T) {
	tests := []struct {
		text string
		want float64
		ok   bool
	}{
		{"8.2/10", 8.2, true},
		{"4/5 stars", 8.0, true},
		{"85%", 8.5, true},
		{"Metascore 73/100", 7.3, true},
		{"7.5", 7.5, true},
		{"92", 9.2, true}, // bare number above 10 assumed 0-100
		{"no score here", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ExtractRating(tt.text)
			if ok != tt.ok {
				t.Fatalf("ExtractRating(%q) ok = %v, want %v", tt.text, ok, tt.ok)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ExtractRating(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractYear(t *testing.T) {
	tests := []struct {
		text string
		want int
		ok   bool
	}{
		{"The Matrix (1999)", 1999, true},
		{"Dune: Part Two (2024) - Metacritic", 2024, true},
		{"No year at all", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ExtractYear(tt.text)
			if ok != tt.ok {
				t.Fatalf("ExtractYear(%q) ok = %v, want %v", tt.text, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("ExtractYear(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}
