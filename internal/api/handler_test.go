package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery_deals/internal/config"
	"grocery_deals/internal/export"
	"grocery_deals/internal/models"
	"grocery_deals/internal/repository"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type staticSource struct {
	deals []models.Deal
	err   error
}

func (s staticSource) LatestDeals(context.Context) ([]models.Deal, error) {
	return s.deals, s.err
}

var latest = []models.Deal{
	{Date: "2026-10-15", Store: "Fresh Co", Product: "Organic Eggs", Price: "4.99", ID: "a"},
	{Date: "2026-10-15", Store: "Fresh Co", Product: "Whole Milk", Price: "3.49", ID: "b"},
	{Date: "2026-10-15", Store: "Corner Mart", Product: "Brown Eggs", Price: "3.99", ID: "c"},
}

type dealsResponse struct {
	Count int           `json:"count"`
	Deals []models.Deal `json:"deals"`
}

func newRouter(t *testing.T, source DealSource, cfg *config.Config) *gin.Engine {
	t.Helper()
	logger, _ := test.NewNullLogger()
	if cfg == nil {
		cfg = &config.Config{}
	}
	return SetupRouter(NewHandler(source, NewCatalog(cfg), logger), logger)
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	w := get(t, newRouter(t, staticSource{}, nil), "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestListDeals_Filters(t *testing.T) {
	router := newRouter(t, staticSource{deals: latest}, nil)

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{name: "all", target: "/api/deals", want: []string{"a", "b", "c"}},
		{name: "by store", target: "/api/deals?store=fresh%20co", want: []string{"a", "b"}},
		{name: "by product", target: "/api/deals?q=EGGS", want: []string{"a", "c"}},
		{name: "both", target: "/api/deals?store=Corner%20Mart&q=egg", want: []string{"c"}},
		{name: "no match", target: "/api/deals?q=bread", want: []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := get(t, router, tc.target)
			require.Equal(t, http.StatusOK, w.Code)

			var resp dealsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			got := make([]string, 0, len(resp.Deals))
			for _, d := range resp.Deals {
				got = append(got, d.ID)
			}
			assert.Equal(t, tc.want, got)
			assert.Equal(t, len(tc.want), resp.Count)
		})
	}
}

func TestListDeals_SourceError(t *testing.T) {
	w := get(t, newRouter(t, staticSource{err: errors.New("db down")}, nil), "/api/deals")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestListDeals_FromSnapshots(t *testing.T) {
	dir := t.TempDir()
	w := export.NewWriter(dir)
	_, err := w.WriteSnapshot("2026-10-14", latest[:1])
	require.NoError(t, err)
	_, err = w.WriteSnapshot("2026-10-15", latest[1:])
	require.NoError(t, err)

	rec := get(t, newRouter(t, FromSnapshots(dir), nil), "/api/deals")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dealsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "Whole Milk", resp.Deals[0].Product)
}

func TestListDeals_NoSnapshotsYet(t *testing.T) {
	rec := get(t, newRouter(t, FromSnapshots(filepath.Join(t.TempDir(), "data")), nil), "/api/deals")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0,"deals":[]}`, rec.Body.String())
}

func TestListDeals_FromRepository(t *testing.T) {
	repo, err := repository.OpenSQLiteDealRepository(":memory:")
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.Init(context.Background()))
	_, err = repo.InsertDeals(context.Background(), latest)
	require.NoError(t, err)

	rec := get(t, newRouter(t, FromRepository(repo), nil), "/api/deals?store=Corner%20Mart")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dealsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Deals, 1)
	assert.Equal(t, "Brown Eggs", resp.Deals[0].Product)
}

func TestListStores_Reload(t *testing.T) {
	logger, _ := test.NewNullLogger()
	catalog := NewCatalog(&config.Config{
		Keywords: []string{"egg"},
		Stores:   []models.Store{{Name: "Fresh Co", URLs: []string{"https://fresh.example/weekly"}}},
	})
	router := SetupRouter(NewHandler(staticSource{}, catalog, logger), logger)

	w := get(t, router, "/api/stores")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"keywords":["egg"],"stores":[{"name":"Fresh Co","urls":["https://fresh.example/weekly"]}]}`, w.Body.String())

	catalog.Update(&config.Config{})
	w = get(t, router, "/api/stores")
	assert.JSONEq(t, `{"keywords":[],"stores":[]}`, w.Body.String())
}
