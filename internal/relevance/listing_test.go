package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
)

func TestCanonicalURLCollapsesItemURLs(t *testing.T) {
	got := CanonicalURL("https://www.ebay.de/itm/Tonie-Figur-Bibi/256012345678?hash=abc&var=0")
	assert.Equal(t, "https://www.ebay.de/itm/256012345678", got)

	got = CanonicalURL("https://www.ebay.de/itm/256012345678")
	assert.Equal(t, "https://www.ebay.de/itm/256012345678", got)
}

func TestCanonicalURLStripsQueryAndFragment(t *testing.T) {
	got := CanonicalURL("https://www.kleinanzeigen.de/s-anzeige/tonie/2345678901-23?utm=x#top")
	assert.Equal(t, "https://www.kleinanzeigen.de/s-anzeige/tonie/2345678901-23", got)
	assert.Equal(t, "", CanonicalURL("   "))
}

func TestParsePriceGermanFormats(t *testing.T) {
	cases := map[string]float64{
		"12,50 €":     12.50,
		"EUR 9":       9,
		"1.299,00 €":  1299,
		"15 € VB":     15,
		"ca. 19,99":   19.99,
	}
	for text, want := range cases {
		got, ok := ParsePrice(text, 1, 2000)
		require.True(t, ok, text)
		assert.InDelta(t, want, got, 0.001, text)
	}
}

func TestParsePriceRejectsRangesAndOutOfBounds(t *testing.T) {
	_, ok := ParsePrice("10 bis 20 €", 3, 500)
	assert.False(t, ok)

	_, ok = ParsePrice("1.299,00 €", 3, 500)
	assert.False(t, ok)

	_, ok = ParsePrice("1,00 €", 3, 500)
	assert.False(t, ok)

	_, ok = ParsePrice("Preis auf Anfrage", 3, 500)
	assert.False(t, ok)
}

func TestDedupeByURLAndTitlePrice(t *testing.T) {
	listings := []models.MarketListing{
		{Title: "Tonie Bibi", Price: 15, URL: "https://www.ebay.de/itm/11111111111?a=1"},
		{Title: "Tonie Bibi anders", Price: 15, URL: "https://www.ebay.de/itm/11111111111?b=2"},
		{Title: "Tonie Bibi", Price: 15, URL: "https://www.ebay.de/itm/22222222222"},
		{Title: "Tonie Tina", Price: 18, URL: "https://www.ebay.de/itm/33333333333"},
	}

	out := Dedupe(listings)
	require.Len(t, out, 2)
	assert.Equal(t, 15.0, out[0].Price)
	assert.Equal(t, 18.0, out[1].Price)
}
