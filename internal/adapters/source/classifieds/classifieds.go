// Package classifieds scrapes a classifieds portal's search results for
// current asking prices.
package classifieds

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/FalkoBaeker/tonie-app/internal/config"
	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
	"github.com/FalkoBaeker/tonie-app/internal/relevance"
)

const SourceName = models.SourceClassifieds

var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
}

// Adapter implements the SourcePort interface for classifieds search pages
type Adapter struct {
	cfg     config.ClassifiedsConfig
	market  config.MarketConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func New(cfg config.ClassifiedsConfig, market config.MarketConfig, logger *slog.Logger) *Adapter {
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 0.5
	}
	timeout := time.Duration(cfg.TimeoutSeconds * float64(time.Second))
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Adapter{
		cfg:     cfg,
		market:  market,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
	}
}

func (a *Adapter) Name() string { return SourceName }

// Fetch scrapes the classifieds results for one query. Asking-price listings
// do not require the product-context keyword in the title; the category page
// already scopes them, and the per-target relevance filter runs later.
// Retries on 403/429 and transport errors with linear backoff; a query that
// stays blocked yields an empty result, not an error.
func (a *Adapter) Fetch(ctx context.Context, query string, maxItems int) ([]models.MarketListing, error) {
	if maxItems <= 0 {
		maxItems = 60
	}

	base := strings.TrimRight(a.cfg.BaseURL, "/")
	searchURL := fmt.Sprintf("%s/s-suchanfrage.html?keywords=%s", base, url.QueryEscape(query))

	maxAttempts := a.cfg.Retries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, status, err := a.get(ctx, searchURL, base)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.logger.Debug("classifieds request failed", "query", query, "attempt", attempt, "error", err)
			if attempt < maxAttempts {
				if err := sleepCtx(ctx, backoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, nil
		}

		if status == http.StatusForbidden || status == http.StatusTooManyRequests {
			a.logger.Debug("classifieds request blocked", "query", query, "status", status, "attempt", attempt)
			if attempt < maxAttempts {
				if err := sleepCtx(ctx, backoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, nil
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("classifieds: unexpected status %d", status)
		}

		raw, err := a.parse(body, base)
		if err != nil {
			return nil, err
		}

		cleaned := relevance.Dedupe(raw)
		relevant := make([]models.MarketListing, 0, len(cleaned))
		for _, l := range cleaned {
			if relevance.QueryRelevant(l.Title, query) {
				relevant = append(relevant, l)
			}
		}
		if len(relevant) > maxItems {
			relevant = relevant[:maxItems]
		}
		return relevant, nil
	}

	return nil, nil
}

func (a *Adapter) get(ctx context.Context, rawURL, base string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Referer", base+"/")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", 0, err
	}
	return string(body), resp.StatusCode, nil
}

func backoff(attempt int) time.Duration {
	return time.Duration(attempt) * 600 * time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (a *Adapter) parse(body, base string) ([]models.MarketListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	var out []models.MarketListing
	doc.Find("article.aditem").Each(func(_ int, card *goquery.Selection) {
		linkEl := card.Find("a.ellipsis").First()
		priceEl := card.Find("p.aditem-main--middle--price-shipping--price").First()
		if linkEl.Length() == 0 || priceEl.Length() == 0 {
			return
		}

		title := strings.TrimSpace(linkEl.Text())
		if title == "" || !relevance.ValidListingTitle(title) {
			return
		}

		price, ok := relevance.ParsePrice(priceEl.Text(), a.market.PriceMin, a.market.RawPriceMax)
		if !ok {
			return
		}

		href, _ := linkEl.Attr("href")
		href = strings.TrimSpace(href)
		if strings.HasPrefix(href, "/") {
			href = base + href
		}
		u := relevance.CanonicalURL(href)
		if u == "" {
			return
		}

		out = append(out, models.MarketListing{
			Source: SourceName,
			Title:  title,
			Price:  price,
			URL:    u,
		})
	})
	return out, nil
}
