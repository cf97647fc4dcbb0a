// Package browseapi fetches current listings through a marketplace browse
// API using a server-side OAuth client-credentials token.
package browseapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/FalkoBaeker/tonie-app/internal/config"
	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
	"github.com/FalkoBaeker/tonie-app/internal/relevance"
)

const SourceName = models.SourceBrowseAPI

// ErrNotConfigured is returned when the adapter is constructed without
// credentials.
var ErrNotConfigured = errors.New("browse api: client credentials missing")

type accessToken struct {
	value     string
	expiresAt time.Time
}

// A token close to expiry is treated as invalid to avoid racing the server.
func (t accessToken) valid() bool {
	return t.value != "" && time.Until(t.expiresAt) > time.Minute
}

// Adapter implements the SourcePort interface for the browse API
type Adapter struct {
	cfg    config.BrowseAPIConfig
	market config.MarketConfig
	client *http.Client
	logger *slog.Logger

	mu    sync.Mutex
	token accessToken
}

func New(cfg config.BrowseAPIConfig, market config.MarketConfig, logger *slog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, ErrNotConfigured
	}

	timeout := time.Duration(cfg.TimeoutSeconds * float64(time.Second))
	if timeout < 3*time.Second {
		timeout = 15 * time.Second
	}

	return &Adapter{
		cfg:    cfg,
		market: market,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

func (a *Adapter) Name() string { return SourceName }

func (a *Adapter) getToken(ctx context.Context, forceRefresh bool) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !forceRefresh && a.token.valid() {
		return a.token.value, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	scope := strings.TrimSpace(a.cfg.Scope)
	if scope == "" {
		scope = "https://api.ebay.com/oauth/api_scope"
	}
	form.Set("scope", scope)

	tokenURL := strings.TrimRight(a.cfg.IdentityURL, "/") + "/identity/v1/oauth2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(a.cfg.ClientID, a.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("browse api: token request failed with status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("browse api: decode token response: %w", err)
	}
	if payload.AccessToken == "" || payload.ExpiresIn <= 0 {
		return "", errors.New("browse api: token response missing access_token/expires_in")
	}

	a.token = accessToken{
		value:     payload.AccessToken,
		expiresAt: time.Now().Add(time.Duration(max(60, payload.ExpiresIn)) * time.Second),
	}
	return a.token.value, nil
}

type itemSummary struct {
	Title           string     `json:"title"`
	ItemWebURL      string     `json:"itemWebUrl"`
	AffiliateWebURL string     `json:"itemAffiliateWebUrl"`
	Price           *apiAmount `json:"price"`
	CurrentBidPrice *apiAmount `json:"currentBidPrice"`
}

type apiAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// Fetch searches current item summaries for one query. Returns EUR listings
// only; 401/403 triggers a token refresh retry, 429 and 5xx back off.
func (a *Adapter) Fetch(ctx context.Context, query string, maxItems int) ([]models.MarketListing, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if maxItems <= 0 {
		maxItems = 80
	}
	limit := min(200, max(1, maxItems))

	maxAttempts := a.cfg.Retries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		token, err := a.getToken(ctx, attempt > 1)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				if err := sleepCtx(ctx, time.Duration(attempt)*600*time.Millisecond); err != nil {
					return nil, err
				}
				continue
			}
			break
		}

		searchURL := fmt.Sprintf("%s/buy/browse/v1/item_summary/search?q=%s&limit=%d",
			strings.TrimRight(a.cfg.BaseURL, "/"), url.QueryEscape(query), limit)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-EBAY-C-MARKETPLACE-ID", a.marketplaceID())
		req.Header.Set("Accept", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt < maxAttempts {
				if err := sleepCtx(ctx, time.Duration(attempt)*600*time.Millisecond); err != nil {
					return nil, err
				}
				continue
			}
			break
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			lastErr = fmt.Errorf("browse api: auth failure status %d", resp.StatusCode)
			if attempt < maxAttempts {
				if err := sleepCtx(ctx, time.Duration(attempt)*300*time.Millisecond); err != nil {
					return nil, err
				}
				continue
			}
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("browse api: status %d", resp.StatusCode)
			if attempt < maxAttempts {
				if err := sleepCtx(ctx, time.Duration(attempt)*600*time.Millisecond); err != nil {
					return nil, err
				}
				continue
			}
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("browse api: unexpected status %d", resp.StatusCode)
		default:
			var payload struct {
				ItemSummaries []itemSummary `json:"itemSummaries"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				return nil, fmt.Errorf("browse api: decode search response: %w", err)
			}
			return a.convert(payload.ItemSummaries, query, maxItems), nil
		}
	}

	return nil, fmt.Errorf("browse api: search failed: %w", lastErr)
}

func (a *Adapter) marketplaceID() string {
	if id := strings.TrimSpace(a.cfg.MarketplaceID); id != "" {
		return id
	}
	return "EBAY_DE"
}

func (a *Adapter) convert(rows []itemSummary, query string, maxItems int) []models.MarketListing {
	out := make([]models.MarketListing, 0, len(rows))
	for _, row := range rows {
		title := strings.TrimSpace(row.Title)
		if title == "" {
			continue
		}
		if !relevance.ValidListingTitle(title) || !relevance.HasContext(title) {
			continue
		}
		if !relevance.QueryRelevant(title, query) {
			continue
		}

		price, ok := a.extractPrice(row)
		if !ok {
			continue
		}

		rawURL := row.ItemWebURL
		if rawURL == "" {
			rawURL = row.AffiliateWebURL
		}
		u := relevance.CanonicalURL(rawURL)
		if u == "" {
			continue
		}

		out = append(out, models.MarketListing{
			Source: SourceName,
			Title:  title,
			Price:  price,
			URL:    u,
		})
	}

	out = relevance.Dedupe(out)
	if len(out) > maxItems {
		out = out[:maxItems]
	}
	return out
}

func (a *Adapter) extractPrice(row itemSummary) (float64, bool) {
	amount := row.Price
	if amount == nil {
		amount = row.CurrentBidPrice
	}
	if amount == nil {
		return 0, false
	}

	currency := strings.ToUpper(strings.TrimSpace(amount.Currency))
	if currency != "" && currency != "EUR" {
		return 0, false
	}

	return relevance.ParsePrice(amount.Value, a.market.PriceMin, a.market.RawPriceMax)
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
