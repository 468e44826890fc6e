package repository

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"sacoche_back_end/internal/models"
	"sacoche_back_end/internal/shop"
)

const (
	ProductsCacheKey = "products:all"
	ProductsCacheTTL = time.Hour
)

// CachedProducts met la collection complète en cache Redis.
// Toute écriture invalide la clé ; une panne Redis retombe sur le store.
type CachedProducts struct {
	shop.ProductStore
	rdb *redis.Client
}

func NewCachedProducts(store shop.ProductStore, rdb *redis.Client) *CachedProducts {
	return &CachedProducts{ProductStore: store, rdb: rdb}
}

func (c *CachedProducts) ListProducts(ctx context.Context) ([]models.Product, error) {
	data, err := c.rdb.Get(ctx, ProductsCacheKey).Bytes()
	if err == nil {
		var products []models.Product
		if json.Unmarshal(data, &products) == nil {
			return products, nil
		}
	} else if err != redis.Nil {
		log.Printf("⚠️ Cache produits indisponible: %v", err)
	}

	products, err := c.ProductStore.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(products); err == nil {
		if err := c.rdb.Set(ctx, ProductsCacheKey, payload, ProductsCacheTTL).Err(); err != nil {
			log.Printf("⚠️ Mise en cache des produits impossible: %v", err)
		}
	}
	return products, nil
}

func (c *CachedProducts) SaveProduct(ctx context.Context, p models.Product) error {
	if err := c.ProductStore.SaveProduct(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *CachedProducts) DeleteProduct(ctx context.Context, id string) error {
	if err := c.ProductStore.DeleteProduct(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *CachedProducts) invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, ProductsCacheKey).Err(); err != nil {
		log.Printf("⚠️ Invalidation du cache produits impossible: %v", err)
	}
}
