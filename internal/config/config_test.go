package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.json"))
	_, err := Load()
	assert.Error(t, err, "explicit CONFIG_FILE must exist")

	t.Setenv("CONFIG_FILE", "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "live", cfg.DataMode)
	assert.Equal(t, 5, cfg.Market.MinSamples)
	assert.Equal(t, 360, cfg.Market.CacheTTLMinutes)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"data_mode":"test","market":{"min_samples":7},"database":{"host":"db.example"}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.DataMode)
	assert.Equal(t, 7, cfg.Market.MinSamples)
	assert.Equal(t, "db.example", cfg.Database.Host)
	// Untouched fields keep their defaults.
	assert.Equal(t, 250.0, cfg.Market.PriceMax)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"bad data mode":     `{"data_mode":"demo"}`,
		"bad min samples":   `{"market":{"min_samples":0}}`,
		"bad price bounds":  `{"market":{"price_min":10,"price_max":5}}`,
		"bad instant ratio": `{"market":{"instant_min_ratio":1.5}}`,
		"api no creds":      `{"sources":{"browse_api":{"enabled":true}}}`,
	}

	for name, data := range cases {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
		t.Setenv("CONFIG_FILE", path)

		_, err := Load()
		assert.Error(t, err, name)
	}
}

func TestSourceWeight(t *testing.T) {
	m := Default().Market

	assert.Equal(t, 1.0, m.SourceWeight("sold_pages"))
	assert.Equal(t, 0.35, m.SourceWeight("classifieds_offer"))
	assert.Equal(t, 1.0, m.SourceWeight("somewhere_else"))

	m.SourceWeights["negative"] = -2
	assert.Equal(t, 0.0, m.SourceWeight("negative"))
}

func TestHighTrust(t *testing.T) {
	m := Default().Market

	assert.True(t, m.HighTrust("sold_pages"))
	assert.True(t, m.HighTrust("browse_api"))
	assert.False(t, m.HighTrust("classifieds_offer"))
}
