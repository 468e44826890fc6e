package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"sacoche_back_end/internal/models"
	"sacoche_back_end/internal/shop"
)

const (
	CartTTL         = 30 * 24 * time.Hour
	cartKeyPrefix   = "cart:"
	cartMaxAttempts = 5
)

func CartKey(email string) string {
	return cartKeyPrefix + email
}

// RedisCarts garde le panier de chaque utilisateur en un seul document JSON
// sous cart:<email>. Les écritures passent par WATCH/MULTI : une écriture
// concurrente fait échouer la transaction, qui est rejouée sur la nouvelle version.
type RedisCarts struct {
	rdb         *redis.Client
	maxAttempts int
}

func NewRedisCarts(rdb *redis.Client) *RedisCarts {
	return &RedisCarts{rdb: rdb, maxAttempts: cartMaxAttempts}
}

func (r *RedisCarts) GetCart(ctx context.Context, email string) ([]models.CartItem, error) {
	return readCart(ctx, r.rdb, CartKey(email))
}

func (r *RedisCarts) UpdateCart(ctx context.Context, email string, fn func([]models.CartItem) ([]models.CartItem, error)) ([]models.CartItem, error) {
	key := CartKey(email)
	var result []models.CartItem

	txf := func(tx *redis.Tx) error {
		current, err := readCart(ctx, tx, key)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if errors.Is(err, shop.ErrCartUnchanged) {
			result = current
			return nil
		}
		if err != nil {
			return err
		}
		if next == nil {
			next = []models.CartItem{}
		}
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, CartTTL)
			return nil
		})
		if err == nil {
			result = next
		}
		return err
	}

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		err := r.rdb.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("panier %s modifié en parallèle: %w", email, shop.ErrConflict)
}

func (r *RedisCarts) DeleteCart(ctx context.Context, email string) error {
	return r.rdb.Del(ctx, CartKey(email)).Err()
}

// CartOwners parcourt les clés cart:* par SCAN
func (r *RedisCarts) CartOwners(ctx context.Context) ([]string, error) {
	var owners []string
	iter := r.rdb.Scan(ctx, 0, cartKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		owners = append(owners, strings.TrimPrefix(iter.Val(), cartKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan des paniers: %w", err)
	}
	return owners, nil
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readCart(ctx context.Context, c stringGetter, key string) ([]models.CartItem, error) {
	data, err := c.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return []models.CartItem{}, nil
	}
	if err != nil {
		return nil, err
	}
	if data == "" {
		return []models.CartItem{}, nil
	}
	var cart []models.CartItem
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return nil, fmt.Errorf("décodage panier %s: %w", key, err)
	}
	if cart == nil {
		cart = []models.CartItem{}
	}
	return cart, nil
}
