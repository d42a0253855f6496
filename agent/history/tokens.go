package history

// EstimateTokens estimates the token count of a text with a Unicode-aware
// heuristic: ASCII runs at ~4 chars per token, non-ASCII (CJK, Cyrillic,
// emoji) at ~1 char per token.
func EstimateTokens(text string) int {
	weight := 0
	for _, r := range text {
		if r <= 127 {
			weight += 1
		} else {
			weight += 4
		}
	}
	return (weight + 3) / 4
}
