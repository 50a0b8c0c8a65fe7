// Package textmatch provides the string similarity scoring used by transaction
// classification and fuzzy reconciliation.
//
// All scores are integers in the range [0, 100], where 100 means the two inputs
// are identical after normalization. Four scorers are provided:
//
//   - Ratio: plain edit-distance similarity over the whole strings
//   - PartialRatio: best similarity of the shorter string against any
//     equal-length window of the longer string (tolerates surrounding noise,
//     e.g. "EFT Comm" inside "EFT COMMISSION CHARGE")
//   - TokenSortRatio: similarity after splitting into tokens and sorting them,
//     making the score insensitive to word order ("99881 JDoe payment" vs
//     "payment JDoe 99881")
//   - TokenSetRatio: best per-token alignment of the side with fewer tokens,
//     ignoring the longer side's leftover tokens, for references embedded in
//     longer free-text narratives ("99881 JDoe payment" inside "Payment to
//     John Doe ref 99881")
//
// The scorer choice and thresholds per gateway are deliberately configurable;
// bank exports differ enough that no single pairing works everywhere.
package textmatch

import (
	"sort"
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Normalize lowercases the input, replaces every non-alphanumeric rune with a
// space and collapses runs of whitespace to a single space.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Ratio returns the edit-distance similarity of a and b after normalization.
func Ratio(a, b string) int {
	return ratio(Normalize(a), Normalize(b))
}

// PartialRatio returns the best Ratio of the shorter input against every
// window of the same length in the longer input.
func PartialRatio(a, b string) int {
	s1, s2 := Normalize(a), Normalize(b)
	if len(s1) == 0 || len(s2) == 0 {
		return ratio(s1, s2)
	}

	shorter, longer := []rune(s1), []rune(s2)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	best := 0
	for start := 0; start+len(shorter) <= len(longer); start++ {
		window := longer[start : start+len(shorter)]
		if score := runeRatio(shorter, window); score > best {
			best = score
		}
		if best == 100 {
			break
		}
	}
	return best
}

// TokenSortRatio tokenizes both inputs, sorts the tokens and scores the
// re-joined strings, so reordered words still compare as equal.
func TokenSortRatio(a, b string) int {
	return ratio(sortTokens(a), sortTokens(b))
}

// TokenSetRatio aligns each token of the side with fewer tokens against its
// best-scoring unclaimed counterpart on the other side and returns the
// length-weighted average. Leftover tokens on the longer side do not count
// against the score, so a short ledger reference compares well against the
// narrative that embeds it among other words, e.g. "99881 JDoe payment"
// inside "Payment to John Doe ref 99881".
func TokenSetRatio(a, b string) int {
	ta := strings.Fields(Normalize(a))
	tb := strings.Fields(Normalize(b))
	if len(ta) == 0 || len(tb) == 0 {
		return ratio(strings.Join(ta, " "), strings.Join(tb, " "))
	}
	if len(ta) > len(tb) {
		ta, tb = tb, ta
	}

	claimed := make([]bool, len(tb))
	var weighted, totalWeight float64
	for _, token := range ta {
		best, bestIdx := 0, -1
		for j, other := range tb {
			if claimed[j] {
				continue
			}
			if score := ratio(token, other); score > best {
				best, bestIdx = score, j
			}
		}
		if bestIdx >= 0 {
			claimed[bestIdx] = true
		}
		weight := float64(len([]rune(token)))
		weighted += weight * float64(best)
		totalWeight += weight
	}
	return int(weighted/totalWeight + 0.5)
}

func sortTokens(s string) string {
	tokens := strings.Fields(Normalize(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func ratio(a, b string) int {
	return runeRatio([]rune(a), []rune(b))
}

func runeRatio(a, b []rune) int {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}

	// DefaultOptions charge 2 for a substitution, so the distance equals
	// len(a)+len(b) minus twice the matched characters. Dividing by the
	// combined length yields the SequenceMatcher-style ratio the thresholds
	// are calibrated against: one substitution in four characters scores 75,
	// not 50.
	distance := levenshtein.DistanceForStrings(a, b, levenshtein.DefaultOptions)
	score := float64(total-distance) / float64(total) * 100
	return int(score + 0.5)
}
