package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery_deals/internal/models"
)

func newMemoryRepository(t *testing.T) *SQLiteDealRepository {
	t.Helper()
	repo, err := OpenSQLiteDealRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func TestSQLiteDealRepository_InsertIgnoresDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepository(t)
	deals := []models.Deal{
		{Date: "2026-10-15", Store: "Fresh Co", Product: "Organic Eggs", Price: "4.99", ID: "a"},
		{Date: "2026-10-15", Store: "Fresh Co", Product: "Milk", Price: "3.49", ID: "b"},
	}

	n, err := repo.InsertDeals(ctx, deals)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.InsertDeals(ctx, deals)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	count, err := repo.CountDeals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSQLiteDealRepository_SameIDOtherDateIsKept(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepository(t)

	_, err := repo.InsertDeals(ctx, []models.Deal{{Date: "2026-10-14", Store: "Fresh Co", Product: "Eggs", ID: "a"}})
	require.NoError(t, err)
	n, err := repo.InsertDeals(ctx, []models.Deal{{Date: "2026-10-15", Store: "Fresh Co", Product: "Eggs", ID: "a"}})
	require.NoError(t, err)

	assert.Equal(t, 1, n)
}

func TestSQLiteDealRepository_GetLatestDeals(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepository(t)

	_, err := repo.InsertDeals(ctx, []models.Deal{
		{Date: "2026-10-14", Store: "Fresh Co", Product: "Old Eggs", ID: "old"},
	})
	require.NoError(t, err)
	_, err = repo.InsertDeals(ctx, []models.Deal{
		{Date: "2026-10-15", Store: "Market", Product: "Zucchini", ID: "z", ImageURL: "https://m.example/z.jpg"},
		{Date: "2026-10-15", Store: "Fresh Co", Product: "Apples", ID: "a", Unit: "/lb"},
	})
	require.NoError(t, err)

	deals, err := repo.GetLatestDeals(ctx)

	require.NoError(t, err)
	require.Len(t, deals, 2)
	assert.Equal(t, "Zucchini", deals[0].Product)
	assert.Equal(t, "https://m.example/z.jpg", deals[0].ImageURL)
	assert.Equal(t, "Apples", deals[1].Product)
	assert.Equal(t, "/lb", deals[1].Unit)
}

func TestSQLiteDealRepository_EmptyHistory(t *testing.T) {
	repo := newMemoryRepository(t)

	deals, err := repo.GetLatestDeals(context.Background())

	require.NoError(t, err)
	assert.Empty(t, deals)
}
