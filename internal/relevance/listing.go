package relevance

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/FalkoBaeker/tonie-app/internal/textnorm"

	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
)

var (
	itemURLRe = regexp.MustCompile(`/itm/(?:[^/]*/)?(\d{8,20})`)

	priceRe      = regexp.MustCompile(`(\d{1,3}(?:\.\d{3})*(?:,\d{1,2})?|\d+(?:\.\d{1,2})?)`)
	priceRangeRe = regexp.MustCompile(`\d\s+(?:bis|to)\s+(?:eur\s*|€\s*)?\d`)

	multiItemRe = regexp.MustCompile(`\b(?:[2-9]|[1-9]\d)\s*(?:x|er|stk|stuck|stueck|tonies?)\b`)
)

// CanonicalURL collapses marketplace listing URLs that differ only in
// tracking parameters or SEO slugs down to a stable identity. eBay item URLs
// reduce to /itm/<id>; anything else is stripped of its query and fragment.
func CanonicalURL(rawURL string) string {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return ""
	}

	if m := itemURLRe.FindStringSubmatch(u); m != nil {
		base := u
		if i := strings.Index(base, "/itm/"); i > 0 {
			base = base[:i]
		} else {
			base = ""
		}
		return base + "/itm/" + m[1]
	}

	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.TrimRight(u, "/")
}

// ParsePrice extracts a EUR amount from marketplace price text. German
// ("12,50") and dotted-thousands ("1.299,00") formats are both handled.
// Price ranges and values outside the raw sanity bounds are rejected.
func ParsePrice(text string, rawMin, rawMax float64) (float64, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return 0, false
	}
	if priceRangeRe.MatchString(t) {
		return 0, false
	}

	m := priceRe.FindString(t)
	if m == "" {
		return 0, false
	}

	if strings.Contains(m, ",") {
		m = strings.ReplaceAll(m, ".", "")
		m = strings.ReplaceAll(m, ",", ".")
	} else if dots := strings.Count(m, "."); dots == 1 {
		// A lone dot followed by exactly three digits is a thousands
		// separator, not decimals.
		if i := strings.Index(m, "."); len(m)-i-1 == 3 {
			m = strings.ReplaceAll(m, ".", "")
		}
	} else if dots > 1 {
		m = strings.ReplaceAll(m, ".", "")
	}

	var v float64
	if _, err := fmt.Sscanf(m, "%f", &v); err != nil {
		return 0, false
	}
	if math.IsNaN(v) || v < rawMin || v > rawMax {
		return 0, false
	}
	return math.Round(v*100) / 100, true
}

// ValidListingTitle rejects titles describing bundles, accessories, damaged
// or counterfeit goods, and explicit multi-item lots. Single-figure listings
// are the only thing the price model should ever see.
func ValidListingTitle(title string) bool {
	folded := textnorm.Fold(title)
	if strings.TrimSpace(folded) == "" {
		return false
	}
	if containsAnyPhrase(folded, excludeKeywords) {
		return false
	}
	if containsAnyPhrase(folded, accessoryKeywords) {
		return false
	}
	if containsAnyPhrase(folded, bundleKeywords) {
		return false
	}
	if multiItemRe.MatchString(folded) {
		return false
	}
	return true
}

// HasContext reports whether a title mentions the figure product context at
// all. Sources whose result pages mix product categories require it.
func HasContext(title string) bool {
	return containsAnyPhrase(textnorm.Fold(title), contextTerms)
}

// Dedupe removes duplicate listings. Identity is the canonical URL when one
// exists, plus the (normalized title, price cents) pair to catch relists of
// the same offer under a fresh URL.
func Dedupe(listings []models.MarketListing) []models.MarketListing {
	seenURL := make(map[string]struct{}, len(listings))
	seenTitle := make(map[string]struct{}, len(listings))
	out := make([]models.MarketListing, 0, len(listings))

	for _, l := range listings {
		if u := CanonicalURL(l.URL); u != "" {
			if _, dup := seenURL[u]; dup {
				continue
			}
			seenURL[u] = struct{}{}
		}

		key := fmt.Sprintf("%s|%d", textnorm.Normalize(l.Title), int(math.Round(l.Price*100)))
		if _, dup := seenTitle[key]; dup {
			continue
		}
		seenTitle[key] = struct{}{}

		out = append(out, l)
	}
	return out
}
