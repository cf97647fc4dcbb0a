// Package relevance decides whether noisy marketplace listings genuinely
// refer to a given catalog item, builds the bounded search-query variants for
// that item, and owns listing deduplication and URL canonicalization.
package relevance

import (
	"regexp"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/FalkoBaeker/tonie-app/internal/catalog"
	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
	"github.com/FalkoBaeker/tonie-app/internal/textnorm"
)

var dashSplitRe = regexp.MustCompile(`\s+[–—-]\s+`)

// fuzzyFallbackRatio accepts punctuation/word-order variants the token
// overlap misses, but only combined with real overlap and a specific token.
const fuzzyFallbackRatio = 0.78

// IsRelevant reports whether a listing title genuinely refers to the target
// catalog item.
//
// Generic overlap alone (the shared franchise name) is never enough: at least
// one target-specific token must appear, and media-noise terms are hard
// excludes regardless of any other signal.
func IsRelevant(listingTitle string, target catalog.Item, requireContext bool) bool {
	folded := textnorm.Fold(listingTitle)
	if strings.TrimSpace(folded) == "" {
		return false
	}

	if requireContext && !containsAnyPhrase(folded, contextTerms) {
		return false
	}
	if containsAnyPhrase(folded, mediaNoiseKeywords) {
		return false
	}

	listingTokens := textnorm.MatchTokens(folded)
	specific := specificTokens(target)
	specificHit := len(specific) == 0 || textnorm.Overlap(listingTokens, specific) > 0

	for _, targetText := range targetCandidates(target) {
		targetFolded := textnorm.Fold(targetText)
		if strings.TrimSpace(targetFolded) == "" {
			continue
		}

		if strings.Contains(folded, targetFolded) && specificHit {
			return true
		}

		targetTokens := textnorm.MatchTokens(targetFolded)
		overlap := textnorm.Overlap(listingTokens, targetTokens)
		size := len(targetTokens)

		overlapMatch := false
		switch {
		case size == 0:
		case size <= 2 && overlap >= 1:
			overlapMatch = true
		case size <= 4 && overlap >= 2:
			overlapMatch = true
		case size >= 5 && (overlap >= 3 || float64(overlap)/float64(size) >= 0.55):
			overlapMatch = true
		}
		if overlapMatch && specificHit {
			return true
		}

		ratio := float64(fuzzy.Ratio(folded, targetFolded)) / 100.0
		if ratio >= fuzzyFallbackRatio && overlap >= 1 && specificHit {
			return true
		}
	}

	return false
}

// FilterForTarget applies the relevance test to listings from the scoped
// sources only; listings from any other source pass through unchanged, since
// each marketplace has its own noise profile and is filtered independently.
func FilterForTarget(listings []models.MarketListing, target catalog.Item, scopedSources, contextRequiredSources map[string]struct{}) []models.MarketListing {
	out := make([]models.MarketListing, 0, len(listings))

	for _, l := range listings {
		source := strings.ToLower(strings.TrimSpace(l.Source))
		if _, scoped := scopedSources[source]; !scoped {
			out = append(out, l)
			continue
		}

		title := strings.TrimSpace(l.Title)
		if title == "" {
			continue
		}

		_, requireContext := contextRequiredSources[source]
		if IsRelevant(title, target, requireContext) {
			out = append(out, l)
		}
	}

	return out
}

// QueryRelevant is the cheap per-query gate applied by source adapters: it
// requires informative-token overlap between a listing title and the search
// query that produced it.
func QueryRelevant(listingTitle, query string) bool {
	queryTokens := textnorm.MatchTokens(query)
	if len(queryTokens) == 0 {
		return false
	}

	overlap := textnorm.Overlap(textnorm.MatchTokens(listingTitle), queryTokens)

	switch {
	case len(queryTokens) <= 2:
		return overlap >= 1
	case len(queryTokens) <= 4:
		return overlap >= 2
	default:
		return overlap >= 3
	}
}

// specificTokens computes the tokens that distinguish the target from the
// rest of its series. Series-only tokens are subtracted so that generic
// franchise words do not count as identifying.
func specificTokens(target catalog.Item) map[string]struct{} {
	seriesTokens := textnorm.MatchTokens(target.Series)

	collect := func(value string) map[string]struct{} {
		folded := textnorm.Fold(value)
		if strings.TrimSpace(folded) == "" {
			return nil
		}

		chunks := []string{folded}
		if parts := dashSplitRe.Split(folded, 2); len(parts) == 2 {
			if right := strings.TrimSpace(parts[1]); right != "" {
				chunks = append(chunks, right)
			}
		}

		tokens := make(map[string]struct{})
		for _, chunk := range chunks {
			for t := range textnorm.MatchTokens(chunk) {
				tokens[t] = struct{}{}
			}
		}
		for t := range seriesTokens {
			delete(tokens, t)
		}
		return tokens
	}

	out := collect(target.Title)
	if out == nil {
		out = make(map[string]struct{})
	}
	for _, alias := range target.Aliases {
		for t := range collect(alias) {
			out[t] = struct{}{}
		}
	}
	return out
}

// targetCandidates lists the texts a listing title may be matched against.
func targetCandidates(target catalog.Item) []string {
	out := []string{target.Title}
	if target.Series != "" {
		out = append(out, target.Series, target.Series+" "+target.Title)
	}
	out = append(out, target.Aliases...)
	return out
}

// containsAnyPhrase reports whether any phrase occurs in the folded text as a
// whole word (no alphanumeric neighbors on either side).
func containsAnyPhrase(folded string, phrases []string) bool {
	for _, p := range phrases {
		if containsPhrase(folded, p) {
			return true
		}
	}
	return false
}

func containsPhrase(folded, phrase string) bool {
	p := strings.TrimSpace(textnorm.Fold(phrase))
	if p == "" {
		return false
	}

	for from := 0; ; {
		idx := strings.Index(folded[from:], p)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(p)

		beforeOK := start == 0 || !isAlnum(folded[start-1])
		afterOK := end == len(folded) || !isAlnum(folded[end])
		if beforeOK && afterOK {
			return true
		}
		from = start + 1
	}
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
