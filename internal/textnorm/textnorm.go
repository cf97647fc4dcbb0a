// Package textnorm provides the text normalization shared by the resolver,
// the relevance filter and the query builder. All matching happens on folded
// text: accents stripped, lowercased, umlauts reduced to their base letters.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	matchTokenRe = regexp.MustCompile(`[a-z0-9]+`)
)

// stopTokens are query tokens too generic to identify a catalog item.
// A query consisting only of these must not resolve.
var stopTokens = map[string]struct{}{
	"tonie": {}, "tonies": {}, "toniebox": {},
	"figur": {}, "figuren": {},
	"hoerfigur": {}, "horfigur": {},
	"hoerspiel": {}, "horspiel": {},
	"geschichte": {}, "geschichten": {},
	"folge": {}, "edition": {},
	"der": {}, "die": {}, "das": {}, "dem": {}, "den": {}, "des": {},
	"ein": {}, "eine": {}, "einer": {},
	"und": {}, "mit": {}, "von": {}, "fur": {}, "fuer": {},
}

// genericMatchTokens carry no signal when matching listing titles against a
// catalog item: franchise-wide words, condition words, filler.
var genericMatchTokens = map[string]struct{}{
	"tonie": {}, "tonies": {}, "toniebox": {},
	"figur": {}, "figuren": {},
	"hoerfigur": {}, "horfigur": {},
	"hoerspiel": {}, "horspiel": {},
	"auswahl": {}, "neu": {}, "gebraucht": {}, "set": {},
	"original": {}, "echt": {},
	"der": {}, "die": {}, "das": {}, "und": {}, "mit": {}, "von": {},
}

// Fold strips combining marks (NFKD) and lowercases. Punctuation and digits
// are preserved, so the result is suitable for substring and phrase checks.
func Fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

// Normalize reduces text to a canonical space-separated form: folded,
// ampersand expanded, everything non-alphanumeric collapsed to single spaces.
func Normalize(s string) string {
	t := Fold(s)
	t = strings.ReplaceAll(t, "&", " und ")
	t = nonAlnumRe.ReplaceAllString(t, " ")
	t = whitespaceRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// Tokens splits normalized text into tokens of length >= 2.
func Tokens(normalized string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range strings.Fields(normalized) {
		if len(t) >= 2 {
			out[t] = struct{}{}
		}
	}
	return out
}

// InformativeTokens returns Tokens minus the stop-token set.
func InformativeTokens(normalized string) map[string]struct{} {
	out := Tokens(normalized)
	for t := range stopTokens {
		delete(out, t)
	}
	return out
}

// MatchTokens extracts the tokens used for listing-title relevance matching:
// folded, length >= 3, generic franchise/filler words removed.
func MatchTokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range matchTokenRe.FindAllString(Fold(s), -1) {
		if len(t) < 3 {
			continue
		}
		if _, generic := genericMatchTokens[t]; generic {
			continue
		}
		out[t] = struct{}{}
	}
	return out
}

// Overlap counts tokens present in both sets.
func Overlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for t := range a {
		if _, ok := b[t]; ok {
			n++
		}
	}
	return n
}
