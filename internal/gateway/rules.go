package gateway

import "strings"

// NarrativeRule pairs a prefix matcher with an extraction function. Rules are
// data, not code branches: adding a gateway means adding table entries, never
// touching the matching engine.
type NarrativeRule struct {
	// Prefix is the case-insensitive token the narrative must start with.
	Prefix string

	// Extract recovers the embedded reference from a matching narrative.
	// Returning empty means the rule could not parse this narrative after all.
	Extract func(narrative string) string
}

// Matches reports whether the narrative starts with the rule's prefix.
func (r NarrativeRule) Matches(narrative string) bool {
	return strings.HasPrefix(
		strings.ToUpper(strings.TrimSpace(narrative)),
		strings.ToUpper(r.Prefix),
	)
}

// SplitTakeFromEnd builds an extraction function that splits the narrative on
// sep and returns the segment counted from the end (1 = last, 2 = second to
// last). Equity narratives like "TPG/REF123/EXTRA" carry the reference in the
// second-to-last slash segment.
func SplitTakeFromEnd(sep string, fromEnd int) func(string) string {
	return func(narrative string) string {
		parts := strings.Split(strings.TrimSpace(narrative), sep)
		if len(parts) < fromEnd || fromEnd < 1 {
			return ""
		}
		return strings.TrimSpace(parts[len(parts)-fromEnd])
	}
}

// SplitStripPrefix builds an extraction function that splits on sep and
// strips the given prefix from the first segment. M-Pesa bulk narratives like
// "B2C-REF998 payment" embed the reference directly after the prefix token.
func SplitStripPrefix(sep, prefix string) func(string) string {
	return func(narrative string) string {
		parts := strings.Split(strings.TrimSpace(narrative), sep)
		if len(parts) == 0 {
			return ""
		}
		first := strings.TrimSpace(parts[0])
		upper := strings.ToUpper(first)
		if !strings.HasPrefix(upper, strings.ToUpper(prefix)) {
			return ""
		}
		rest := first[len(prefix):]
		return strings.Trim(rest, "-_/ ")
	}
}
