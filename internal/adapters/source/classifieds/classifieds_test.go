package classifieds

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FalkoBaeker/tonie-app/internal/config"
)

const resultPage = `<html><body>
<article class="aditem">
  <a class="ellipsis" href="/s-anzeige/tonie-benjamin/123456">Tonie Benjamin Blümchen Gute Nacht Geschichten</a>
  <p class="aditem-main--middle--price-shipping--price">19,50 €</p>
</article>
</body></html>`

func testAdapter(t *testing.T, baseURL string, retries int) *Adapter {
	t.Helper()
	cfg := config.ClassifiedsConfig{
		Enabled:        true,
		BaseURL:        baseURL,
		TimeoutSeconds: 5,
		Retries:        retries,
		RatePerSecond:  1000,
	}
	market := config.MarketConfig{PriceMin: 3, PriceMax: 250, RawPriceMax: 500}
	return New(cfg, market, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFetchRetriesAfterRateLimit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(resultPage))
	}))
	defer srv.Close()

	a := testAdapter(t, srv.URL, 1)
	listings, err := a.Fetch(context.Background(), "Benjamin Blümchen", 10)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, 19.50, listings[0].Price)
	assert.Equal(t, SourceName, listings[0].Source)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchExhaustedRetriesYieldEmpty(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	a := testAdapter(t, srv.URL, 0)
	listings, err := a.Fetch(context.Background(), "Benjamin Blümchen", 10)
	require.NoError(t, err)
	assert.Empty(t, listings)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchUnexpectedStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := testAdapter(t, srv.URL, 2)
	_, err := a.Fetch(context.Background(), "Benjamin Blümchen", 10)
	require.Error(t, err)
}
