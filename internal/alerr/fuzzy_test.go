package alerr

import (
	"strings"
	"testing"
)

// -----------------------------------------------------------------------------
// Levenshtein Distance Tests
// -----------------------------------------------------------------------------

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"20240101_120000", "20240101_120001", 1},
		{"20240101_120000", "20240101120000", 1},
		{"ab", "ba", 2},
	}

	for _, tt := range tests {
		t.Run(tt.s1+"_"+tt.s2, func(t *testing.T) {
			got := levenshteinDistance(tt.s1, tt.s2)
			if got != tt.want {
				t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.s1, tt.s2, got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// FindClosestMatch Tests
// -----------------------------------------------------------------------------

func TestFindClosestMatch(t *testing.T) {
	versions := []string{"20240101_120000", "20240102_120000", "20240103_120000"}

	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"20240102_12000", "20240102_120000", true},
		{"20240103-120000", "20240103_120000", true},
		{"zero", "", false},
		{"19990101_000000", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := FindClosestMatch(tt.input, versions)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("FindClosestMatch(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSuggestSimilar(t *testing.T) {
	if got := SuggestSimilar("20240101_12000", []string{"20240101_120000"}); got != "did you mean '20240101_120000'?" {
		t.Errorf("SuggestSimilar() = %q", got)
	}
	if got := SuggestSimilar("nothing", []string{"20240101_120000"}); got != "" {
		t.Errorf("SuggestSimilar() = %q, want empty", got)
	}
}

func TestNewUnknownTargetError(t *testing.T) {
	err := NewUnknownTargetError("20240101_12000", []string{"20240101_120000"})
	if err.GetCode() != ErrMigrationNotFound {
		t.Errorf("code = %v", err.GetCode())
	}
	if len(err.Helps()) != 1 || !strings.Contains(err.Helps()[0], "20240101_120000") {
		t.Errorf("helps = %v", err.Helps())
	}

	bare := NewUnknownTargetError("nope", nil)
	if len(bare.Helps()) != 0 {
		t.Errorf("no suggestion expected, got %v", bare.Helps())
	}
}
