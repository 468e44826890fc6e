package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGuard regroupe la blacklist JWT et les compteurs de rate limit
type RedisGuard struct {
	rdb *redis.Client
}

func NewRedisGuard(rdb *redis.Client) *RedisGuard {
	return &RedisGuard{rdb: rdb}
}

// Revoke blackliste un jti jusqu'à l'expiration du token
func (g *RedisGuard) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return g.rdb.Set(ctx, "blacklist:"+jti, "revoked", ttl).Err()
}

func (g *RedisGuard) IsRevoked(ctx context.Context, jti string) bool {
	exists, err := g.rdb.Exists(ctx, "blacklist:"+jti).Result()
	if err != nil {
		log.Printf("⚠️ Erreur vérification blacklist: %v", err)
		return false
	}
	return exists > 0
}

// Hit incrémente le compteur de la fenêtre et renvoie sa valeur.
// INCR et EXPIRE NX partent dans la même transaction : fenêtre fixe, clé toujours expirable.
func (g *RedisGuard) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	key = fmt.Sprintf("ratelimit:%s", key)
	var incr *redis.IntCmd
	_, err := g.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("compteur %s: %w", key, err)
	}
	return incr.Val(), nil
}
