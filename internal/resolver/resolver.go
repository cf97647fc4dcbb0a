// Package resolver maps free-text or identifier queries to catalog items with
// a calibrated confidence. A wrong automatic match silently prices the wrong
// figure, so the thresholds are deliberately stricter for "resolved" than for
// "needs confirmation".
package resolver

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/FalkoBaeker/tonie-app/internal/catalog"
	"github.com/FalkoBaeker/tonie-app/internal/textnorm"
)

// Status is the resolution outcome.
type Status string

const (
	StatusResolved          Status = "resolved"
	StatusNeedsConfirmation Status = "needs_confirmation"
	StatusNotFound          Status = "not_found"
)

// Candidate is one ranked catalog match.
type Candidate struct {
	ItemID string  `json:"item_id"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
}

// Result carries the resolution status and ranked candidates.
type Result struct {
	Status     Status      `json:"status"`
	Candidates []Candidate `json:"candidates"`
}

// searchEntry is one normalized search variant (title, alias, series+title)
// pointing back to its catalog item.
type searchEntry struct {
	itemID string
	title  string
	norm   string
	tokens map[string]struct{}
}

// Resolver holds the immutable search index over the catalog.
type Resolver struct {
	catalog *catalog.Catalog
	entries []searchEntry
}

var itemIDRe = regexp.MustCompile(`^tn_?(\d{1,5})$`)

const defaultCandidateLimit = 5

// Combined-score weighting and cutoffs. Asymmetric on purpose: ambiguity is a
// normal outcome, a confident wrong answer is not.
const (
	fuzzyWeight   = 0.82
	overlapWeight = 0.18

	minTopScore        = 0.60
	minTopOverlap      = 0.34
	overlapWaiverScore = 0.88
	zeroOverlapWaiver  = 0.93

	soloResolveScore   = 0.86
	strongResolveScore = 0.92
	strongOverlap      = 0.60
	strongMargin       = 0.06
)

// New builds the search-entry index for a catalog.
func New(c *catalog.Catalog) *Resolver {
	r := &Resolver{catalog: c}

	for _, item := range c.Items() {
		variants := make([]string, 0, len(item.Aliases)+2)
		variants = append(variants, item.Title)
		variants = append(variants, item.Aliases...)
		if item.Series != "" {
			variants = append(variants, item.Series+" "+item.Title)
		}

		seen := make(map[string]struct{}, len(variants))
		for _, variant := range variants {
			norm := textnorm.Normalize(variant)
			if norm == "" {
				continue
			}
			if _, dup := seen[norm]; dup {
				continue
			}
			seen[norm] = struct{}{}

			r.entries = append(r.entries, searchEntry{
				itemID: item.ID,
				title:  item.Title,
				norm:   norm,
				tokens: textnorm.InformativeTokens(norm),
			})
		}
	}

	return r
}

// Resolve maps a query to catalog candidates with the default limit.
func (r *Resolver) Resolve(query string) Result {
	return r.ResolveN(query, defaultCandidateLimit)
}

// ResolveN is Resolve with an explicit candidate limit.
func (r *Resolver) ResolveN(query string, limit int) Result {
	if limit < 1 {
		limit = 1
	}

	qn := textnorm.Normalize(query)
	if len(qn) < 2 {
		return Result{Status: StatusNotFound, Candidates: []Candidate{}}
	}

	if res, ok := r.resolveByID(qn); ok {
		return res
	}
	if res, ok := r.resolveExactVariant(qn); ok {
		return res
	}
	return r.resolveFuzzy(qn, limit)
}

// resolveByID handles identifier-shaped queries ("tn 12", "tn_012").
func (r *Resolver) resolveByID(qn string) (Result, bool) {
	compact := strings.ReplaceAll(qn, " ", "")
	m := itemIDRe.FindStringSubmatch(compact)
	if m == nil {
		return Result{}, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Result{}, false
	}

	id := fmt.Sprintf("tn_%03d", n)
	item, ok := r.catalog.ByID(id)
	if !ok {
		return Result{Status: StatusNotFound, Candidates: []Candidate{}}, true
	}

	return Result{
		Status:     StatusResolved,
		Candidates: []Candidate{{ItemID: id, Title: item.Title, Score: 1.0}},
	}, true
}

// resolveExactVariant matches the query against normalized variants verbatim.
// Multiple distinct items sharing a variant is an alias collision and needs
// user confirmation.
func (r *Resolver) resolveExactVariant(qn string) (Result, bool) {
	var candidates []Candidate
	seen := make(map[string]struct{})

	for _, e := range r.entries {
		if e.norm != qn {
			continue
		}
		if _, dup := seen[e.itemID]; dup {
			continue
		}
		seen[e.itemID] = struct{}{}
		candidates = append(candidates, Candidate{ItemID: e.itemID, Title: e.title, Score: 1.0})
	}

	switch len(candidates) {
	case 0:
		return Result{}, false
	case 1:
		return Result{Status: StatusResolved, Candidates: candidates}, true
	default:
		return Result{Status: StatusNeedsConfirmation, Candidates: candidates}, true
	}
}

type rankedCandidate struct {
	candidate Candidate
	overlap   float64
}

func (r *Resolver) resolveFuzzy(qn string, limit int) Result {
	queryTokens := textnorm.InformativeTokens(qn)
	if len(queryTokens) == 0 {
		// Generic queries like "tonie figur" must not resolve: any match
		// would be a false positive.
		return Result{Status: StatusNotFound, Candidates: []Candidate{}}
	}

	best := make(map[string]rankedCandidate)

	for _, e := range r.entries {
		fuzzyScore := float64(fuzzy.WRatio(qn, e.norm)) / 100.0
		overlapScore := tokenOverlapScore(queryTokens, e.tokens)

		// Hard-reject confident-looking string matches on unrelated items.
		if overlapScore <= 0 && fuzzyScore < zeroOverlapWaiver {
			continue
		}
		if overlapScore < minTopOverlap && fuzzyScore < overlapWaiverScore {
			continue
		}

		combined := math.Min(1.0, fuzzyWeight*fuzzyScore+overlapWeight*overlapScore)

		prev, exists := best[e.itemID]
		if !exists || combined > prev.candidate.Score {
			best[e.itemID] = rankedCandidate{
				candidate: Candidate{ItemID: e.itemID, Title: e.title, Score: combined},
				overlap:   overlapScore,
			}
		}
	}

	ranked := make([]rankedCandidate, 0, len(best))
	for _, rc := range best {
		ranked = append(ranked, rc)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].candidate.Score != ranked[j].candidate.Score {
			return ranked[i].candidate.Score > ranked[j].candidate.Score
		}
		return ranked[i].candidate.ItemID < ranked[j].candidate.ItemID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	if len(ranked) == 0 {
		return Result{Status: StatusNotFound, Candidates: []Candidate{}}
	}

	candidates := make([]Candidate, len(ranked))
	for i, rc := range ranked {
		candidates[i] = rc.candidate
	}

	top := candidates[0].Score
	second := 0.0
	if len(candidates) > 1 {
		second = candidates[1].Score
	}
	topOverlap := ranked[0].overlap

	if top < minTopScore {
		return Result{Status: StatusNotFound, Candidates: []Candidate{}}
	}
	if topOverlap < minTopOverlap && top < overlapWaiverScore {
		return Result{Status: StatusNotFound, Candidates: []Candidate{}}
	}

	if len(candidates) == 1 && top >= soloResolveScore {
		return Result{Status: StatusResolved, Candidates: candidates[:1]}
	}
	if top >= strongResolveScore && top-second >= strongMargin && topOverlap >= strongOverlap {
		return Result{Status: StatusResolved, Candidates: candidates[:1]}
	}

	return Result{Status: StatusNeedsConfirmation, Candidates: candidates}
}

// tokenOverlapScore emphasizes how much of the query is covered by candidate
// terms, with a small reward for concise candidates.
func tokenOverlapScore(queryTokens, candidateTokens map[string]struct{}) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	overlap := textnorm.Overlap(queryTokens, candidateTokens)
	if overlap <= 0 {
		return 0
	}

	queryCoverage := float64(overlap) / float64(len(queryTokens))
	candidateCoverage := float64(overlap) / math.Max(1, float64(len(candidateTokens)))
	return queryCoverage*0.85 + candidateCoverage*0.15
}
