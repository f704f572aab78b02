package engine

import (
	"math"
	"strings"
)

// nameSimilarity scores two timekeeper names in [0,1]. Each token of the
// invoice name is matched against its best ledger token by Levenshtein
// distance, so "J. Smith" and "J Smith" score 1.0.
func nameSimilarity(invoiceName, ledgerName string) float64 {
	iTokens := strings.Fields(normalizeName(invoiceName))
	lTokens := strings.Fields(normalizeName(ledgerName))

	if len(iTokens) == 0 || len(lTokens) == 0 {
		return 0
	}

	totalScore := 0.0

	for _, invTok := range iTokens {
		best := 0.0
		for _, ledTok := range lTokens {
			dist := levenshtein(invTok, ledTok)
			maxLen := math.Max(float64(len(invTok)), float64(len(ledTok)))
			sim := 1 - float64(dist)/maxLen
			if sim > best {
				best = sim
			}
		}
		totalScore += best
	}

	return totalScore / float64(len(iTokens))
}

func normalizeName(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.TrimSpace(s)
	return s
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
	}

	for i := 0; i <= len(a); i++ {
		dp[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		dp[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			dp[i][j] = min3(
				dp[i-1][j]+1,
				dp[i][j-1]+1,
				dp[i-1][j-1]+cost,
			)
		}
	}
	return dp[len(a)][len(b)]
}

func min3(a, b, c int) int {
	if a < b && a < c {
		return a
	}
	if b < c {
		return b
	}
	return c
}
