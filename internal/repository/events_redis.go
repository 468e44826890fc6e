package repository

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"sacoche_back_end/internal/models"
)

const (
	CartUpdatedPayload = "updated"
	OrdersChannel      = "orders:new"
)

// CartChannel est le canal pub/sub d'un panier (même nom que la clé, espace distinct)
func CartChannel(email string) string {
	return cartKeyPrefix + email
}

// RedisEvents publie les changements de panier et les nouvelles commandes
type RedisEvents struct {
	rdb *redis.Client
}

func NewRedisEvents(rdb *redis.Client) *RedisEvents {
	return &RedisEvents{rdb: rdb}
}

func (e *RedisEvents) CartUpdated(ctx context.Context, email string) {
	if err := e.rdb.Publish(ctx, CartChannel(email), CartUpdatedPayload).Err(); err != nil {
		log.Printf("⚠️ Publication panier %s impossible: %v", email, err)
	}
}

func (e *RedisEvents) OrderPlaced(ctx context.Context, o models.Order) {
	payload, err := json.Marshal(o)
	if err != nil {
		log.Printf("⚠️ Encodage commande %s impossible: %v", o.ID, err)
		return
	}
	if err := e.rdb.Publish(ctx, OrdersChannel, payload).Err(); err != nil {
		log.Printf("⚠️ Publication commande %s impossible: %v", o.ID, err)
	}
}

func (e *RedisEvents) SubscribeCart(ctx context.Context, email string) *redis.PubSub {
	return e.rdb.Subscribe(ctx, CartChannel(email))
}

func (e *RedisEvents) SubscribeOrders(ctx context.Context) *redis.PubSub {
	return e.rdb.Subscribe(ctx, OrdersChannel)
}
