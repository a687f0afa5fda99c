package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *repository.ProductRepository {
	// Use in-memory database for tests
	repo, err := repository.NewProductRepository(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test repository: %v", err)
	}

	if err := repo.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() { repo.Close() })
	return repo
}

func ids(products []domain.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestFind_EmptyFilterReturnsAllNewestFirst(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.Find(context.Background(), catalog.BuildQuery(domain.Filter{}))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"vestido-lucia", "vestido-blanca", "vestido-marina",
		"vestido-olivia", "vestido-celeste", "vestido-aurora",
	}, ids(products))
}

func TestFind_CategoryAndPriceAsc(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.Find(context.Background(), catalog.BuildQuery(domain.Filter{
		Category: domain.CategoryGraduation,
		Sort:     domain.SortPriceAsc,
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"vestido-marina", "vestido-olivia"}, ids(products))
}

func TestFind_ContainsColorAndSize(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.Find(context.Background(), catalog.BuildQuery(domain.Filter{Color: "Azul"}))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vestido-celeste", "vestido-marina"}, ids(products))

	products, err = repo.Find(context.Background(), catalog.BuildQuery(domain.Filter{Color: "Azul", Size: "L"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"vestido-celeste"}, ids(products))
}

func TestFind_PriceRangeInclusive(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.Find(context.Background(), catalog.BuildQuery(domain.Filter{
		PriceMin: decimal.RequireFromString("89.10"),
		PriceMax: decimal.RequireFromString("157.50"),
		Sort:     domain.SortPriceDesc,
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"vestido-lucia", "vestido-olivia", "vestido-marina"}, ids(products))
}

func TestFind_OnSaleOnly(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.Find(context.Background(), catalog.BuildQuery(domain.Filter{OnSaleOnly: true}))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vestido-celeste", "vestido-marina", "vestido-lucia"}, ids(products))
	for _, p := range products {
		assert.True(t, p.OnSale)
		assert.True(t, p.FinalPrice.LessThanOrEqual(p.OriginalPrice))
	}
}

func TestFind_NoMatchesIsEmptySlice(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.Find(context.Background(), catalog.BuildQuery(domain.Filter{Color: "Dorado"}))
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestFind_RelatedExcludesProductAndLimits(t *testing.T) {
	repo := setupTestDB(t)

	p, err := repo.Get(context.Background(), "vestido-aurora")
	require.NoError(t, err)

	products, err := repo.Find(context.Background(), catalog.RelatedQuery(p))
	require.NoError(t, err)
	assert.Equal(t, []string{"vestido-celeste"}, ids(products))

	limited, err := repo.Find(context.Background(), catalog.NewQuery().WithLimit(2))
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestFind_CancelledContext(t *testing.T) {
	repo := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Find(ctx, catalog.NewQuery())
	require.ErrorContains(t, err, "failed to query products")
}

func TestFind_UnsupportedContains(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.Find(context.Background(), catalog.NewQuery().Where(catalog.FieldCategory, catalog.OpContains, "Boda"))
	require.ErrorContains(t, err, "contains is not supported")
}

func TestGet_ReturnsProduct(t *testing.T) {
	repo := setupTestDB(t)

	p, err := repo.Get(context.Background(), "vestido-celeste")
	require.NoError(t, err)
	assert.Equal(t, "Celeste", p.Name)
	assert.Equal(t, domain.CategoryQuinceanera, p.Category)
	assert.Equal(t, []string{"S", "M", "L"}, p.Sizes)
	assert.Equal(t, []string{"Azul", "Blanco"}, p.Colors)
	assert.Equal(t, "176", p.FinalPrice.String())
	assert.Equal(t, 20, p.DiscountPercent)
	assert.Equal(t, 2025, p.CreatedAt.Year())
}

func TestGet_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.Get(context.Background(), "nope")
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestInsert_DeduplicatesLabels(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	err := repo.Insert(ctx, &domain.Product{
		ID:            "vestido-nueva",
		Name:          "Nueva",
		Category:      domain.CategoryWedding,
		OriginalPrice: decimal.NewFromInt(300),
		FinalPrice:    decimal.NewFromInt(300),
		Sizes:         []string{"M", "M", "L"},
		Colors:        []string{"Blanco", "", "Blanco"},
		Stock:         2,
		CreatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	p, err := repo.Get(ctx, "vestido-nueva")
	require.NoError(t, err)
	assert.Equal(t, []string{"M", "L"}, p.Sizes)
	assert.Equal(t, []string{"Blanco"}, p.Colors)

	newest, err := repo.Find(ctx, catalog.BuildQuery(domain.Filter{}).WithLimit(1))
	require.NoError(t, err)
	assert.Equal(t, "vestido-nueva", newest[0].ID)
}
