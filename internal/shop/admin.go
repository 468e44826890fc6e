package shop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"

	"sacoche_back_end/internal/models"
)

type ProductInput struct {
	Title           string            `json:"title"`
	OriginalPrice   float64           `json:"originalPrice"`
	DiscountedPrice float64           `json:"discountedPrice"`
	Image           string            `json:"image"`
	Details         map[string]string `json:"details"`
}

type DeleteReport struct {
	ProductID    string `json:"productId"`
	CartsUpdated int    `json:"cartsUpdated"`
	CartsFailed  int    `json:"cartsFailed"`
}

type Stats struct {
	Orders           int            `json:"orders"`
	Revenue          float64        `json:"revenue"`
	ByPaymentStatus  map[string]int `json:"byPaymentStatus"`
	ByDeliveryStatus map[string]int `json:"byDeliveryStatus"`
	Products         int            `json:"products"`
	Users            int            `json:"users"`
}

// Admin regroupe les mutations réservées au rôle admin.
type Admin struct {
	Products ProductStore
	Carts    CartStore
	Orders   OrderStore
	Users    UserStore
	Index    SearchIndex
	Events   Events
	Now      func() time.Time
}

// ValidateProduct exige chaque champ et chaque détail non vide
func ValidateProduct(in ProductInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return invalid("title", "obligatoire")
	}
	if in.OriginalPrice <= 0 {
		return invalid("originalPrice", "doit être positif")
	}
	if in.DiscountedPrice <= 0 {
		return invalid("discountedPrice", "doit être positif")
	}
	if strings.TrimSpace(in.Image) == "" {
		return invalid("image", "obligatoire")
	}
	if len(in.Details) == 0 {
		return invalid("details", "au moins un détail")
	}
	for k, v := range in.Details {
		if strings.TrimSpace(k) == "" {
			return invalid("details", "nom de détail vide")
		}
		if strings.TrimSpace(v) == "" {
			return invalid("details."+k, "obligatoire")
		}
	}
	return nil
}

func (a *Admin) CreateProduct(ctx context.Context, s Session, in ProductInput) (*models.Product, error) {
	if err := s.requireAdmin(); err != nil {
		return nil, err
	}
	if err := ValidateProduct(in); err != nil {
		return nil, err
	}

	now := a.now()
	id, err := a.freeProductID(ctx, now)
	if err != nil {
		return nil, err
	}
	p := productFromInput(id, in)
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := a.Products.SaveProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("création produit: %w", err)
	}
	a.index(ctx, p)
	log.Printf("✅ Produit créé: %s (%s)", p.Title, p.ID)
	return &p, nil
}

func (a *Admin) UpdateProduct(ctx context.Context, s Session, id string, in ProductInput) (*models.Product, error) {
	if err := s.requireAdmin(); err != nil {
		return nil, err
	}
	if err := ValidateProduct(in); err != nil {
		return nil, err
	}
	existing, err := a.Products.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	p := productFromInput(id, in)
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = a.now()
	if err := a.Products.SaveProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("mise à jour produit: %w", err)
	}
	a.index(ctx, p)
	return &p, nil
}

// DeleteProduct retire le produit du catalogue puis de chaque panier, un par un.
// Un échec sur un panier n'arrête pas les autres ; les commandes ne sont pas touchées.
func (a *Admin) DeleteProduct(ctx context.Context, s Session, id string) (*DeleteReport, error) {
	if err := s.requireAdmin(); err != nil {
		return nil, err
	}
	if _, err := a.Products.GetProduct(ctx, id); err != nil {
		return nil, err
	}
	if err := a.Products.DeleteProduct(ctx, id); err != nil {
		return nil, fmt.Errorf("suppression produit: %w", err)
	}
	if a.Index != nil {
		if err := a.Index.DeleteProduct(ctx, id); err != nil {
			log.Printf("⚠️ Désindexation de %s impossible: %v", id, err)
		}
	}

	report := &DeleteReport{ProductID: id}
	owners, err := a.Carts.CartOwners(ctx)
	if err != nil {
		return report, fmt.Errorf("lecture des paniers: %w", err)
	}
	events := eventsOrNoop(a.Events)
	for _, email := range owners {
		changed := false
		_, err := a.Carts.UpdateCart(ctx, email, func(items []models.CartItem) ([]models.CartItem, error) {
			next, removed := RemoveLine(items, id)
			if !removed {
				return nil, ErrCartUnchanged
			}
			changed = true
			return next, nil
		})
		if err != nil {
			report.CartsFailed++
			log.Printf("❌ Panier de %s non nettoyé: %v", email, err)
			continue
		}
		if changed {
			report.CartsUpdated++
			events.CartUpdated(ctx, email)
		}
	}

	log.Printf("🗑️ Produit %s supprimé (%d panier(s) nettoyé(s), %d échec(s))", id, report.CartsUpdated, report.CartsFailed)
	return report, nil
}

// ListProducts sert l'export : pas de cache ni de pagination
func (a *Admin) ListProducts(ctx context.Context, s Session) ([]models.Product, error) {
	if err := s.requireAdmin(); err != nil {
		return nil, err
	}
	products, err := a.Products.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	SortNewestFirst(products)
	return products, nil
}

func (a *Admin) ListOrders(ctx context.Context, s Session) ([]models.Order, error) {
	if err := s.requireAdmin(); err != nil {
		return nil, err
	}
	return a.Orders.ListOrders(ctx)
}

// UpdateOrderStatus accepte n'importe quelle transition tant que la valeur est connue.
// deliveryChanged est vrai seulement si le statut de livraison diffère de l'ancien.
func (a *Admin) UpdateOrderStatus(ctx context.Context, s Session, id string, update StatusUpdate) (order *models.Order, deliveryChanged bool, err error) {
	if err := s.requireAdmin(); err != nil {
		return nil, false, err
	}
	if update.PaymentStatus == nil && update.DeliveryStatus == nil {
		return nil, false, invalid("status", "rien à mettre à jour")
	}
	if update.PaymentStatus != nil && !slices.Contains(models.PaymentStatuses, *update.PaymentStatus) {
		return nil, false, invalid("paymentStatus", "statut inconnu")
	}
	if update.DeliveryStatus != nil && !slices.Contains(models.DeliveryStatuses, *update.DeliveryStatus) {
		return nil, false, invalid("deliveryStatus", "statut inconnu")
	}

	before, err := a.Orders.GetOrder(ctx, id)
	if err != nil {
		return nil, false, err
	}
	order, err = a.Orders.UpdateOrderStatus(ctx, id, update)
	if err != nil {
		return nil, false, err
	}
	deliveryChanged = update.DeliveryStatus != nil && before.DeliveryStatus != order.DeliveryStatus
	return order, deliveryChanged, nil
}

func (a *Admin) ListUsers(ctx context.Context, s Session) ([]models.User, error) {
	if err := s.requireAdmin(); err != nil {
		return nil, err
	}
	return a.Users.ListUsers(ctx)
}

// SetUserRole : un admin ne peut pas changer son propre rôle.
func (a *Admin) SetUserRole(ctx context.Context, s Session, email, role string) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == s.Email {
		return ErrForbidden
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return invalid("role", "rôle inconnu")
	}
	if err := a.Users.SetRole(ctx, email, role); err != nil {
		return err
	}
	log.Printf("✅ Rôle de %s → %s (par %s)", email, role, s.Email)
	return nil
}

func (a *Admin) Stats(ctx context.Context, s Session) (*Stats, error) {
	if err := s.requireAdmin(); err != nil {
		return nil, err
	}
	orders, err := a.Orders.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	products, err := a.Products.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	users, err := a.Users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Orders:           len(orders),
		ByPaymentStatus:  map[string]int{},
		ByDeliveryStatus: map[string]int{},
		Products:         len(products),
		Users:            len(users),
	}
	revenue := decimal.Zero
	for _, o := range orders {
		stats.ByPaymentStatus[o.PaymentStatus]++
		stats.ByDeliveryStatus[o.DeliveryStatus]++
		revenue = revenue.Add(decimal.NewFromFloat(o.Total))
	}
	stats.Revenue = revenue.Round(2).InexactFloat64()
	return stats, nil
}

// freeProductID choisit product_<millis> et avance d'une milliseconde en cas de collision
func (a *Admin) freeProductID(ctx context.Context, now time.Time) (string, error) {
	ms := now.UnixMilli()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("product_%d", ms+int64(i))
		_, err := a.Products.GetProduct(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", ErrConflict
}

func (a *Admin) index(ctx context.Context, p models.Product) {
	if a.Index == nil {
		return
	}
	if err := a.Index.IndexProduct(ctx, p); err != nil {
		log.Printf("⚠️ Indexation de %s impossible: %v", p.ID, err)
	}
}

func (a *Admin) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

func productFromInput(id string, in ProductInput) models.Product {
	details := make(map[string]string, len(in.Details))
	for k, v := range in.Details {
		details[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return models.Product{
		ID:              id,
		Title:           strings.TrimSpace(in.Title),
		Slug:            slug.Make(in.Title),
		OriginalPrice:   in.OriginalPrice,
		DiscountedPrice: in.DiscountedPrice,
		Image:           strings.TrimSpace(in.Image),
		Details:         details,
	}
}
