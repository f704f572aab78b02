package engine

import "testing"

func TestNameSimilarity(t *testing.T) {
	cases := []struct {
		name    string
		invoice string
		ledger  string
		want    float64
	}{
		{"identical", "John Smith", "John Smith", 1.0},
		{"punctuation ignored", "J. Smith", "J Smith", 1.0},
		{"case insensitive", "JOHN SMITH", "john smith", 1.0},
		{"hyphen as space", "Mary-Jane Watson", "Mary Jane Watson", 1.0},
		{"completely different", "John Smith", "Xq Zv", 0.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := nameSimilarity(tc.invoice, tc.ledger)
			if got != tc.want {
				t.Errorf("nameSimilarity(%q, %q) = %.3f, want %.3f", tc.invoice, tc.ledger, got, tc.want)
			}
		})
	}
}

func TestNameSimilarityEmpty(t *testing.T) {
	if got := nameSimilarity("", "John Smith"); got != 0 {
		t.Errorf("Empty invoice name should score 0, got %.3f", got)
	}
	if got := nameSimilarity("John Smith", ""); got != 0 {
		t.Errorf("Empty ledger name should score 0, got %.3f", got)
	}
}

func TestNameSimilarityNearMiss(t *testing.T) {
	got := nameSimilarity("Johnson", "Johnstone")
	if got < 0.7 || got >= 0.8 {
		t.Errorf("Johnson vs Johnstone should land inside [0.7, 0.8), got %.3f", got)
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"SMITH", "SMYTH", 1},
	}
	for _, tc := range cases {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
