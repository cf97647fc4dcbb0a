package relevance

import (
	"regexp"
	"strings"

	"github.com/FalkoBaeker/tonie-app/internal/catalog"
	"github.com/FalkoBaeker/tonie-app/internal/textnorm"
)

var (
	queryDashRe  = regexp.MustCompile(`[–—]`)
	queryPunctRe = regexp.MustCompile(`[^\p{L}\p{N}\s-]`)
	querySpaceRe = regexp.MustCompile(`\s+`)
)

// normalizeSearchQuery keeps queries marketplace-friendly: ampersands become
// "und", typographic dashes become spaces, remaining punctuation is stripped
// and whitespace collapsed. Case and umlauts are preserved, search engines
// handle those better than a folded string.
func normalizeSearchQuery(q string) string {
	q = strings.ReplaceAll(q, "&", " und ")
	q = queryDashRe.ReplaceAllString(q, " ")
	q = queryPunctRe.ReplaceAllString(q, " ")
	q = querySpaceRe.ReplaceAllString(q, " ")
	return strings.TrimSpace(q)
}

// BuildQueryVariants produces the ordered, deduplicated search queries for an
// item. Context-biased variants ("Tonie <title>") come first so that sources
// stopping early still search the most precise queries.
func BuildQueryVariants(item catalog.Item, limit int) []string {
	if limit <= 0 {
		limit = 8
	}

	var raw []string
	add := func(q string) {
		q = normalizeSearchQuery(q)
		if q != "" {
			raw = append(raw, q)
		}
	}

	add("Tonie " + item.Title)
	if item.Series != "" {
		add("Tonie " + item.Series + " " + item.Title)
	}
	add(item.Title)
	if item.Series != "" {
		add(item.Series + " " + item.Title)
	}

	// The subtitle after a dash is often how sellers title the figure.
	if parts := dashSplitRe.Split(item.Title, 2); len(parts) == 2 {
		if right := strings.TrimSpace(parts[1]); right != "" {
			add("Tonie " + right)
			add(right)
		}
	}

	if item.Series != "" {
		add("Tonie " + item.Series)
		add(item.Series)
	}

	for _, alias := range item.Aliases {
		add("Tonie " + alias)
		add(alias)
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, limit)
	for _, q := range raw {
		key := textnorm.Normalize(q)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
		if len(out) == limit {
			break
		}
	}
	return out
}
