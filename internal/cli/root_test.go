package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeTestConfig wires a throwaway config for test data mode: synthetic
// sources, in-memory storage, no log file.
func writeTestConfig(t *testing.T) {
	t.Helper()
	dir := t.TempDir()

	catalogPath := filepath.Join(dir, "catalog.json")
	catalogJSON := `[
		{"id":"tn_001","title":"Benjamin Blümchen - Gute Nacht Geschichten","series":"Benjamin Blümchen"},
		{"id":"tn_002","title":"Bibi & Tina - Der verschwundene Schatz","series":"Bibi und Tina"}
	]`
	require.NoError(t, os.WriteFile(catalogPath, []byte(catalogJSON), 0o644))

	configPath := filepath.Join(dir, "config.json")
	configJSON := fmt.Sprintf(`{
		"data_mode": "test",
		"catalog": {"path": %q},
		"logging": {"file": "", "level": "error"}
	}`, catalogPath)
	require.NoError(t, os.WriteFile(configPath, []byte(configJSON), 0o644))

	t.Setenv("CONFIG_FILE", configPath)
}

func TestResolveCommand(t *testing.T) {
	writeTestConfig(t)

	rootCmd.SetArgs([]string{"resolve", "tn 1"})
	require.NoError(t, rootCmd.Execute())
}

func TestPriceCommandEndToEnd(t *testing.T) {
	writeTestConfig(t)

	rootCmd.SetArgs([]string{"price", "tn_002", "--condition", "very_good"})
	require.NoError(t, rootCmd.Execute())
}
