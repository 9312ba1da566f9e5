package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery_deals/internal/models"
)

var sampleDeals = []models.Deal{
	{Date: "2026-10-15", Store: "Fresh Co", Product: "Organic Eggs", Price: "4.99", PromoText: "Organic Eggs, $4.99", URL: "https://fresh.example/p/eggs", ID: "a1"},
	{Date: "2026-10-15", Store: "Fresh Co", Product: models.ErrorProduct, PromoText: "https://fresh.example/x -> timeout", URL: "https://fresh.example/x", ID: "e1"},
}

func TestWriteSnapshot_Overwrites(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "data"))

	_, err := w.WriteSnapshot("2026-10-15", sampleDeals)
	require.NoError(t, err)
	path, err := w.WriteSnapshot("2026-10-15", sampleDeals[:1])
	require.NoError(t, err)

	assert.Equal(t, "daily-2026-10-15.csv", filepath.Base(path))
	deals, err := ReadDeals(path)
	require.NoError(t, err)
	assert.Equal(t, sampleDeals[:1], deals)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), strings.Join(models.CSVHeader, ",")+"\n"))
}

func TestAppendHistory_HeaderOnce(t *testing.T) {
	w := NewWriter(t.TempDir())

	_, err := w.AppendHistory(sampleDeals[:1])
	require.NoError(t, err)
	path, err := w.AppendHistory(sampleDeals)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), "date,store,product"))

	deals, err := ReadDeals(path)
	require.NoError(t, err)
	require.Len(t, deals, 3)
	assert.True(t, deals[2].IsError())
}

func TestReadDeals_ShortRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all.csv")
	content := "date,store,product,price,unit,promo_text,valid_from,valid_to,url,id\n" +
		"2025-01-02,Fresh Co,soda,5,3 for $5,\"soda, 3 for $5\",,,https://fresh.example,abc\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	deals, err := ReadDeals(path)

	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, "soda, 3 for $5", deals[0].PromoText)
	assert.Equal(t, "abc", deals[0].ID)
	assert.Empty(t, deals[0].ImageURL)
}

func TestRecentSnapshots(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"daily-2026-10-13.csv", "daily-2026-10-15.csv", "daily-2026-10-14.csv", "all.csv", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	paths, err := RecentSnapshots(dir, 2)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "daily-2026-10-15.csv", filepath.Base(paths[0]))
	assert.Equal(t, "daily-2026-10-14.csv", filepath.Base(paths[1]))

	latest, err := LatestSnapshot(dir)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", SnapshotDate(latest))
}

func TestRecentSnapshots_MissingDir(t *testing.T) {
	paths, err := RecentSnapshots(filepath.Join(t.TempDir(), "nope"), 10)
	require.NoError(t, err)
	assert.Empty(t, paths)

	latest, err := LatestSnapshot(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, latest)
}
