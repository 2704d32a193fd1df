package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuotationFields(t *testing.T) {
	budget, err := parseBudget("1499.90")
	require.NoError(t, err)
	assert.Equal(t, 1499.90, budget)

	for _, bad := range []string{"", "cheap", "0", "-10"} {
		_, err := parseBudget(bad)
		assert.Error(t, err, bad)
	}

	quantity, err := parseQuantity("3")
	require.NoError(t, err)
	assert.Equal(t, 3, quantity)

	for _, bad := range []string{"", "1.5", "0"} {
		_, err := parseQuantity(bad)
		assert.Error(t, err, bad)
	}

	date, err := parseDeliveryDate("2026-11-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.November, 2, 0, 0, 0, 0, time.UTC), date)

	_, err = parseDeliveryDate("02/11/2026")
	assert.Error(t, err)
}

func TestParseImagePath(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "couch.jpg")
	require.NoError(t, os.WriteFile(image, []byte("jpeg"), 0o600))

	path, err := parseImagePath("")
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = parseImagePath(image)
	require.NoError(t, err)
	assert.Equal(t, image, path)

	_, err = parseImagePath(dir)
	assert.Error(t, err)

	_, err = parseImagePath(filepath.Join(dir, "missing.jpg"))
	assert.Error(t, err)
}

func TestMigrateAndRollbackCommands(t *testing.T) {
	database := filepath.Join(t.TempDir(), "catalogue.db")
	missingConfig := filepath.Join(t.TempDir(), "couchmatch.toml")

	require.NoError(t, RootApp().Run([]string{"couchmatch", "--log-level", "error", "migrate", "--database", database}))
	require.NoError(t, RootApp().Run([]string{"couchmatch", "--log-level", "error", "rollback", "--database", database}))

	assert.Error(t, RootApp().Run([]string{"couchmatch", "--config", missingConfig, "migrate", "--database", database}))
}

func TestInvalidLogLevel(t *testing.T) {
	err := RootApp().Run([]string{"couchmatch", "--log-level", "loud", "migrate", "--database", ":memory:"})
	assert.Error(t, err)
}
