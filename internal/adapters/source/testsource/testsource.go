// Package testsource generates deterministic synthetic listings for test
// data mode. The same query always yields the same listings, which makes the
// full pipeline exercisable without network access.
package testsource

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
)

// Adapter implements the SourcePort interface with synthetic data
type Adapter struct {
	name       string
	basePrice  float64
	spread     float64
	sampleSize int
}

// New creates a synthetic source publishing under the given source name.
func New(name string, basePrice, spread float64, sampleSize int) *Adapter {
	if basePrice <= 0 {
		basePrice = 18
	}
	if spread <= 0 {
		spread = 6
	}
	if sampleSize <= 0 {
		sampleSize = 12
	}
	return &Adapter{name: name, basePrice: basePrice, spread: spread, sampleSize: sampleSize}
}

func (a *Adapter) Name() string { return a.name }

// Fetch returns listings derived solely from the query hash.
func (a *Adapter) Fetch(ctx context.Context, query string, maxItems int) ([]models.MarketListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	n := a.sampleSize
	if maxItems > 0 && maxItems < n {
		n = maxItems
	}

	seed := hash64(a.name + "|" + query)
	out := make([]models.MarketListing, 0, n)

	for i := 0; i < n; i++ {
		h := hash64(fmt.Sprintf("%d|%d", seed, i))

		// Spread prices symmetrically around the base, cent precision.
		offset := (float64(h%2001)/1000.0 - 1.0) * a.spread
		price := a.basePrice + offset
		if price < 1 {
			price = 1
		}
		price = float64(int(price*100)) / 100

		out = append(out, models.MarketListing{
			Source: a.name,
			Title:  fmt.Sprintf("Tonie %s Angebot %d", query, i+1),
			Price:  price,
			URL:    fmt.Sprintf("https://market.test/itm/%08d%04d", seed%100000000, i),
		})
	}
	return out, nil
}

func hash64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
