package shop_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sacoche_back_end/internal/models"
	"sacoche_back_end/internal/shop"
)

func ids(ps []models.Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestSortNewestFirst(t *testing.T) {
	ps := []models.Product{
		{ID: "legacy"},
		{ID: "product_100"},
		{ID: "product_300"},
		{ID: "abc"},
		{ID: "product_200"},
		{ID: "other_200"},
	}
	shop.SortNewestFirst(ps)

	assert.Equal(t,
		[]string{"product_300", "other_200", "product_200", "product_100", "abc", "legacy"},
		ids(ps))
}

func TestPaginate(t *testing.T) {
	var ps []models.Product
	for i := 0; i < 23; i++ {
		ps = append(ps, models.Product{ID: fmt.Sprintf("product_%d", i)})
	}

	first := shop.Paginate(ps, 1)
	assert.Len(t, first.Items, 10)
	assert.Equal(t, 3, first.TotalPages)
	assert.Equal(t, 23, first.TotalItems)

	last := shop.Paginate(ps, 3)
	assert.Len(t, last.Items, 3)

	beyond := shop.Paginate(ps, 9)
	assert.NotNil(t, beyond.Items)
	assert.Empty(t, beyond.Items)

	assert.Equal(t, 1, shop.Paginate(ps, -2).Page)

	empty := shop.Paginate(nil, 1)
	assert.Equal(t, 0, empty.TotalPages)
	assert.NotNil(t, empty.Items)
}

func TestCatalogPageFiltersByTitle(t *testing.T) {
	env := newCatalogEnv(t)

	page, err := env.Catalog.Page(context.Background(), "  CABAS ", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"product_3", "product_1"}, ids(page.Items))
	assert.Equal(t, 1, page.TotalPages)
}

func TestCatalogSearchFallsBackWhenIndexFails(t *testing.T) {
	env := newCatalogEnv(t)
	env.Index.Err = errors.New("cluster down")

	results, err := env.Catalog.Search(context.Background(), "pochette")
	require.NoError(t, err)
	assert.Equal(t, []string{"product_2"}, ids(results))
	assert.Equal(t, 1, env.Index.Searches)
}

func TestCatalogSearchUsesIndexOrder(t *testing.T) {
	env := newCatalogEnv(t)
	for _, p := range []string{"product_1", "product_3"} {
		prod, err := env.Products.GetProduct(context.Background(), p)
		require.NoError(t, err)
		require.NoError(t, env.Index.IndexProduct(context.Background(), *prod))
	}
	// produit indexé mais supprimé du catalogue
	require.NoError(t, env.Index.IndexProduct(context.Background(), models.Product{ID: "product_0", Title: "Cabas fantôme"}))

	results, err := env.Catalog.Search(context.Background(), "cabas")
	require.NoError(t, err)
	assert.Equal(t, []string{"product_1", "product_3"}, ids(results))
}
