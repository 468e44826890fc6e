package shop

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"sacoche_back_end/internal/models"
)

// Carts regroupe les lignes du panier par produit.
type Carts struct {
	Products ProductStore
	Store    CartStore
	Events   Events
}

func NewCarts(products ProductStore, store CartStore, events Events) *Carts {
	return &Carts{Products: products, Store: store, Events: eventsOrNoop(events)}
}

func (c *Carts) Get(ctx context.Context, s Session) ([]models.CartItem, error) {
	return c.Store.GetCart(ctx, s.Email)
}

func (c *Carts) AddItem(ctx context.Context, s Session, productID string) ([]models.CartItem, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, invalid("productId", "obligatoire")
	}
	product, err := c.Products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return c.mutate(ctx, s, func(items []models.CartItem) ([]models.CartItem, error) {
		return AddLine(items, *product), nil
	})
}

func (c *Carts) RemoveItem(ctx context.Context, s Session, productID string) ([]models.CartItem, error) {
	return c.mutate(ctx, s, func(items []models.CartItem) ([]models.CartItem, error) {
		next, removed := RemoveLine(items, productID)
		if !removed {
			return nil, ErrCartUnchanged
		}
		return next, nil
	})
}

// MaxLineQuantity borne la quantité d'une ligne de panier
const MaxLineQuantity = 99

// ChangeQuantity applique delta ; la quantité reste entre 1 et MaxLineQuantity.
func (c *Carts) ChangeQuantity(ctx context.Context, s Session, productID string, delta int) ([]models.CartItem, error) {
	if delta == 0 {
		return nil, invalid("delta", "doit être non nul")
	}
	if delta > MaxLineQuantity || delta < -MaxLineQuantity {
		return nil, invalid("delta", fmt.Sprintf("doit être compris entre -%d et %d", MaxLineQuantity, MaxLineQuantity))
	}
	return c.mutate(ctx, s, func(items []models.CartItem) ([]models.CartItem, error) {
		next, found := ChangeLine(items, productID, delta)
		if !found {
			return nil, ErrNotFound
		}
		for _, item := range next {
			if item.ProductID == productID && item.Quantity > MaxLineQuantity {
				return nil, invalid("delta", fmt.Sprintf("quantité maximale %d", MaxLineQuantity))
			}
		}
		return next, nil
	})
}

func (c *Carts) Clear(ctx context.Context, s Session) error {
	if err := c.Store.DeleteCart(ctx, s.Email); err != nil {
		return err
	}
	c.Events.CartUpdated(ctx, s.Email)
	return nil
}

// Total calcule le montant des seules lignes sélectionnées du panier courant
func (c *Carts) Total(ctx context.Context, s Session, selected []string) (float64, error) {
	items, err := c.Store.GetCart(ctx, s.Email)
	if err != nil {
		return 0, err
	}
	return ComputeTotal(items, selected), nil
}

func (c *Carts) mutate(ctx context.Context, s Session, fn func([]models.CartItem) ([]models.CartItem, error)) ([]models.CartItem, error) {
	items, err := c.Store.UpdateCart(ctx, s.Email, fn)
	if err != nil {
		return nil, err
	}
	c.Events.CartUpdated(ctx, s.Email)
	return items, nil
}

// AddLine incrémente la ligne existante ou en ajoute une nouvelle à quantité 1
func AddLine(items []models.CartItem, p models.Product) []models.CartItem {
	next := make([]models.CartItem, len(items), len(items)+1)
	copy(next, items)
	for i := range next {
		if next[i].ProductID == p.ID {
			next[i].Quantity++
			return next
		}
	}
	return append(next, models.CartItem{
		ProductID: p.ID,
		Title:     p.Title,
		Price:     p.UnitPrice(),
		Image:     p.Image,
		Quantity:  1,
	})
}

func RemoveLine(items []models.CartItem, productID string) ([]models.CartItem, bool) {
	next := make([]models.CartItem, 0, len(items))
	removed := false
	for _, item := range items {
		if item.ProductID == productID {
			removed = true
			continue
		}
		next = append(next, item)
	}
	return next, removed
}

func ChangeLine(items []models.CartItem, productID string, delta int) ([]models.CartItem, bool) {
	next := make([]models.CartItem, len(items))
	copy(next, items)
	for i := range next {
		if next[i].ProductID != productID {
			continue
		}
		q := next[i].Quantity + delta
		if q < 1 {
			q = 1
		}
		next[i].Quantity = q
		return next, true
	}
	return next, false
}

// ComputeTotal somme prix × quantité sur les lignes sélectionnées uniquement
func ComputeTotal(items []models.CartItem, selected []string) float64 {
	want := make(map[string]bool, len(selected))
	for _, id := range selected {
		want[id] = true
	}
	total := decimal.Zero
	for _, item := range items {
		if !want[item.ProductID] {
			continue
		}
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line)
	}
	return total.Round(2).InexactFloat64()
}
