package names

// Similarity computes a 0-1 similarity between two raw names. Both inputs
// are normalized first; identical normalized forms short-circuit to 1.0
// without paying the edit-distance cost. Otherwise the score is
// 1 - levenshtein(a, b) / max(len(a), len(b)). Symmetric by construction.
func Similarity(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)

	if na == nb {
		if na == "" {
			return 0
		}
		return 1.0
	}

	maxLen := len([]rune(na))
	if l := len([]rune(nb)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 0
	}

	dist := levenshtein(na, nb)
	sim := 1.0 - float64(dist)/float64(maxLen)
	if sim < 0 {
		return 0
	}
	return sim
}

// levenshtein computes unit-cost edit distance using the two-row method.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
