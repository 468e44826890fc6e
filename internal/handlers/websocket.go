package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"sacoche_back_end/internal/repository"
	"sacoche_back_end/internal/shop"
)

const pingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	// Origine déjà filtrée par CORS + token obligatoire
	CheckOrigin: func(r *http.Request) bool { return true },
}

// CartWebSocket pousse le panier à jour dès qu'un autre onglet le modifie
func (h *Handlers) CartWebSocket(c *gin.Context) {
	s := session(c)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go watchClose(conn, cancel)

	pubsub := h.Events.SubscribeCart(ctx, s.Email)
	defer pubsub.Close()

	if !send(conn, gin.H{"type": "connected", "message": "Synchronisation panier activée"}) {
		return
	}

	relay(ctx, conn, pubsub, func(msg *redis.Message) (interface{}, bool) {
		if msg.Payload != repository.CartUpdatedPayload {
			return nil, false
		}
		items, err := h.Carts.Get(ctx, s)
		if err != nil {
			log.Printf("⚠️ Lecture panier %s pour WebSocket: %v", s.Email, err)
			return nil, false
		}
		ids := make([]string, len(items))
		for i, item := range items {
			ids[i] = item.ProductID
		}
		return gin.H{
			"type":  "cart_updated",
			"items": items,
			"total": shop.ComputeTotal(items, ids),
			"count": len(items),
		}, true
	})
}

// LiveOrders diffuse aux admins chaque nouvelle commande
func (h *Handlers) LiveOrders(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go watchClose(conn, cancel)

	pubsub := h.Events.SubscribeOrders(ctx)
	defer pubsub.Close()

	relay(ctx, conn, pubsub, func(msg *redis.Message) (interface{}, bool) {
		return gin.H{"type": "order_placed", "order": json.RawMessage(msg.Payload)}, true
	})
}

// relay écrit sur la socket chaque message Redis retenu par build, avec un ping toutes les 30s
func relay(ctx context.Context, conn *websocket.Conn, pubsub *redis.PubSub, build func(*redis.Message) (interface{}, bool)) {
	ch := pubsub.Channel()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			out, keep := build(msg)
			if !keep {
				continue
			}
			if !send(conn, out) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type jsonWriter interface {
	WriteJSON(v interface{}) error
}

// send renvoie false si la socket est inutilisable
func send(w jsonWriter, v interface{}) bool {
	if err := w.WriteJSON(v); err != nil {
		log.Printf("❌ Erreur envoi WebSocket: %v", err)
		return false
	}
	return true
}

// watchClose lit la socket jusqu'à la déconnexion du client
func watchClose(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
