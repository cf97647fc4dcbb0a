// Package soldpages scrapes public sold/completed listing result pages.
// Compliant-first: no anti-bot bypass, rate limited, backs off on 403/429
// and on challenge pages.
package soldpages

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

const SourceName = models.SourceSoldPages

var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
}

var botPageMarkers = []string{
	"pardon our interruption",
	"automated access",
	"captcha",
	"enable javascript",
	"robot check",
}

// Adapter implements the SourcePort interface for sold-listing result pages
type Adapter struct {
	cfg     config.SoldPagesConfig
	market  config.MarketConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func New(cfg config.SoldPagesConfig, market config.MarketConfig, logger *slog.Logger) *Adapter {
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

func (a *Adapter) searchURL(query string) string {
	base := strings.TrimRight(a.cfg.BaseURL, "/")
	return fmt.Sprintf("%s/sch/i.html?_nkw=%s&LH_Complete=1&LH_Sold=1&_sop=13&rt=nc",
		base, url.QueryEscape(query))
}

// Fetch scrapes the sold-listing results for one query. Retries on 403/429
// and on challenge pages with linear backoff; a query that stays blocked
// yields an empty result, not an error, callers treat that as no data.
func (a *Adapter) Fetch(ctx context.Context, query string, maxItems int) ([]models.MarketListing, error) {
	if maxItems <= 0 {
		maxItems = 80
	}

	maxAttempts := a.cfg.Retries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, status, err := a.get(ctx, a.searchURL(query))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.logger.Debug("sold pages request failed", "query", query, "attempt", attempt, "error", err)
			if attempt < maxAttempts {
				if err := sleepCtx(ctx, backoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, nil
		}

		if status == http.StatusForbidden || status == http.StatusTooManyRequests {
			a.logger.Debug("sold pages request blocked", "query", query, "status", status, "attempt", attempt)
			if attempt < maxAttempts {
				if err := sleepCtx(ctx, backoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, nil
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("sold pages: unexpected status %d", status)
		}

		if looksLikeBotPage(body) {
			a.logger.Debug("sold pages challenge page", "query", query, "attempt", attempt)
			if attempt < maxAttempts {
				if err := sleepCtx(ctx, backoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, nil
		}

		raw, err := a.parse(body)
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

func (a *Adapter) get(ctx context.Context, rawURL string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Referer", strings.TrimRight(a.cfg.BaseURL, "/")+"/")

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

func (a *Adapter) parse(body string) ([]models.MarketListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	var out []models.MarketListing
	doc.Find("li.s-card, li.s-item").Each(func(_ int, li *goquery.Selection) {
		titleEl := li.Find(".s-card__title .su-styled-text.primary, .s-card__title, .s-item__title").First()
		priceEl := li.Find(".s-card__price, .s-item__price").First()
		linkEl := li.Find("a.s-card__link, a.s-item__link").First()
		if titleEl.Length() == 0 || priceEl.Length() == 0 || linkEl.Length() == 0 {
			return
		}

		title := strings.TrimSpace(titleEl.Text())
		if title == "" || strings.EqualFold(title, "shop on ebay") {
			return
		}
		if !relevance.ValidListingTitle(title) || !relevance.HasContext(title) {
			return
		}

		price, ok := relevance.ParsePrice(priceEl.Text(), a.market.PriceMin, a.market.RawPriceMax)
		if !ok {
			return
		}

		href, _ := linkEl.Attr("href")
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

func looksLikeBotPage(body string) bool {
	if body == "" {
		return true
	}
	lowered := strings.ToLower(body)
	for _, marker := range botPageMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	// Very tiny responses are usually challenge or blocked placeholders.
	return len(strings.TrimSpace(lowered)) < 2000
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
