// Package shoptest fournit des implémentations en mémoire des ports du package shop.
package shoptest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"sacoche_back_end/internal/models"
	"sacoche_back_end/internal/shop"
)

type Products struct {
	mu    sync.Mutex
	items map[string]models.Product
}

func NewProducts(ps ...models.Product) *Products {
	s := &Products{items: map[string]models.Product{}}
	for _, p := range ps {
		s.items[p.ID] = p
	}
	return s
}

func (s *Products) ListProducts(context.Context) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Product, 0, len(s.items))
	for _, p := range s.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Products) GetProduct(_ context.Context, id string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return nil, shop.ErrNotFound
	}
	return &p, nil
}

func (s *Products) SaveProduct(_ context.Context, p models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.ID] = p
	return nil
}

func (s *Products) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

type Carts struct {
	mu    sync.Mutex
	carts map[string][]models.CartItem
	// FailFor fait échouer UpdateCart pour ces emails
	FailFor map[string]bool
	Writes  int
}

func NewCarts() *Carts {
	return &Carts{carts: map[string][]models.CartItem{}, FailFor: map[string]bool{}}
}

func (s *Carts) Put(email string, items ...models.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[email] = append([]models.CartItem{}, items...)
}

func (s *Carts) GetCart(_ context.Context, email string) ([]models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CartItem{}, s.carts[email]...), nil
}

func (s *Carts) UpdateCart(_ context.Context, email string, fn func([]models.CartItem) ([]models.CartItem, error)) ([]models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailFor[email] {
		return nil, fmt.Errorf("panier %s: %w", email, shop.ErrConflict)
	}
	current := append([]models.CartItem{}, s.carts[email]...)
	next, err := fn(current)
	if errors.Is(err, shop.ErrCartUnchanged) {
		return current, nil
	}
	if err != nil {
		return nil, err
	}
	s.carts[email] = next
	s.Writes++
	return next, nil
}

func (s *Carts) DeleteCart(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, email)
	return nil
}

func (s *Carts) CartOwners(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.carts))
	for email := range s.carts {
		out = append(out, email)
	}
	sort.Strings(out)
	return out, nil
}

type Users struct {
	mu    sync.Mutex
	users map[string]models.User
	// DeleteErr est renvoyée par DeleteUser si non nil
	DeleteErr error
}

func NewUsers(us ...models.User) *Users {
	s := &Users{users: map[string]models.User{}}
	for _, u := range us {
		if u.Cards == nil {
			u.Cards = map[string]models.Card{}
		}
		s.users[u.Email] = u
	}
	return s
}

func (s *Users) GetUser(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, shop.ErrNotFound
	}
	cards := make(map[string]models.Card, len(u.Cards))
	for k, v := range u.Cards {
		cards[k] = v
	}
	u.Cards = cards
	return &u, nil
}

func (s *Users) CreateUser(_ context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Email]; ok {
		return shop.ErrConflict
	}
	s.users[u.Email] = u
	return nil
}

func (s *Users) update(email string, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return shop.ErrNotFound
	}
	if u.Cards == nil {
		u.Cards = map[string]models.Card{}
	}
	fn(&u)
	s.users[email] = u
	return nil
}

func (s *Users) UpdateProfile(_ context.Context, email, username, profilePic string) error {
	return s.update(email, func(u *models.User) {
		u.Username = username
		u.ProfilePic = profilePic
	})
}

func (s *Users) SetAddress(_ context.Context, email, address string) error {
	return s.update(email, func(u *models.User) { u.Address = address })
}

func (s *Users) SetCard(_ context.Context, email string, card models.Card) error {
	return s.update(email, func(u *models.User) { u.Cards[card.ID] = card })
}

func (s *Users) RemoveCard(_ context.Context, email, cardID string) error {
	return s.update(email, func(u *models.User) { delete(u.Cards, cardID) })
}

func (s *Users) SetStripeCustomer(_ context.Context, email, customerID string) error {
	return s.update(email, func(u *models.User) { u.StripeCustomerID = customerID })
}

func (s *Users) SetRole(_ context.Context, email, role string) error {
	return s.update(email, func(u *models.User) { u.Role = role })
}

func (s *Users) ListUsers(context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *Users) DeleteUser(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.users, email)
	return nil
}

type Orders struct {
	mu     sync.Mutex
	orders map[string]models.Order
	// CreateErr est renvoyée par CreateOrder si non nil
	CreateErr error
}

func NewOrders(os ...models.Order) *Orders {
	s := &Orders{orders: map[string]models.Order{}}
	for _, o := range os {
		s.orders[o.ID] = o
	}
	return s
}

func (s *Orders) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *Orders) CreateOrder(_ context.Context, o models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	if _, ok := s.orders[o.ID]; ok {
		return shop.ErrConflict
	}
	s.orders[o.ID] = o
	return nil
}

func (s *Orders) GetOrder(_ context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, shop.ErrNotFound
	}
	return &o, nil
}

func (s *Orders) list(keep func(models.Order) bool) []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Order{}
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Orders) ListOrdersByUser(_ context.Context, email string) ([]models.Order, error) {
	return s.list(func(o models.Order) bool { return o.UserEmail == email }), nil
}

func (s *Orders) ListOrders(context.Context) ([]models.Order, error) {
	return s.list(func(models.Order) bool { return true }), nil
}

func (s *Orders) UpdateOrderStatus(_ context.Context, id string, update shop.StatusUpdate) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, shop.ErrNotFound
	}
	if update.PaymentStatus != nil {
		o.PaymentStatus = *update.PaymentStatus
	}
	if update.DeliveryStatus != nil {
		o.DeliveryStatus = *update.DeliveryStatus
	}
	s.orders[id] = o
	return &o, nil
}

func (s *Orders) MarkPaidByIntent(_ context.Context, intentID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, o := range s.orders {
		if o.PaymentIntentID == intentID {
			o.PaymentStatus = models.PaymentCompleted
			s.orders[id] = o
			return &o, nil
		}
	}
	return nil, shop.ErrNotFound
}

// Index est un index de recherche naïf sur le titre
type Index struct {
	mu       sync.Mutex
	docs     map[string]models.Product
	Err      error
	Searches int
}

func NewIndex() *Index {
	return &Index{docs: map[string]models.Product{}}
}

func (x *Index) IndexProduct(_ context.Context, p models.Product) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.docs[p.ID] = p
	return nil
}

func (x *Index) DeleteProduct(_ context.Context, id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.docs, id)
	return nil
}

func (x *Index) Has(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.docs[id]
	return ok
}

func (x *Index) Search(_ context.Context, query string) ([]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.Searches++
	if x.Err != nil {
		return nil, x.Err
	}
	var ids []string
	for id, p := range x.docs {
		if strings.Contains(strings.ToLower(p.Title), strings.ToLower(query)) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type Payments struct {
	mu        sync.Mutex
	Charges   []shop.ChargeRequest
	Cancelled []string
	Detached  []string
	ChargeErr error
	customers int
}

func (p *Payments) EnsureCustomer(_ context.Context, u models.User) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customers++
	return fmt.Sprintf("cus_%d", p.customers), nil
}

func (p *Payments) AttachCard(_ context.Context, customerID, paymentMethodID string) (*models.Card, error) {
	return &models.Card{ID: paymentMethodID, Brand: "visa", Last4: "4242", ExpMonth: 12, ExpYear: 2030}, nil
}

func (p *Payments) DetachCard(_ context.Context, paymentMethodID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Detached = append(p.Detached, paymentMethodID)
	return nil
}

func (p *Payments) Charge(_ context.Context, req shop.ChargeRequest) (*shop.Charge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ChargeErr != nil {
		return nil, p.ChargeErr
	}
	p.Charges = append(p.Charges, req)
	n := len(p.Charges)
	return &shop.Charge{
		IntentID:     fmt.Sprintf("pi_%d", n),
		ClientSecret: fmt.Sprintf("pi_%d_secret", n),
		Status:       "processing",
	}, nil
}

func (p *Payments) CancelCharge(_ context.Context, ch shop.Charge) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Cancelled = append(p.Cancelled, ch.IntentID)
	return nil
}

type Notifier struct {
	mu   sync.Mutex
	Sent []models.Order
	Err  error
}

func (n *Notifier) OrderPlaced(_ context.Context, o models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Sent = append(n.Sent, o)
	return nil
}

type Events struct {
	mu     sync.Mutex
	Carts  []string
	Orders []string
}

func (e *Events) CartUpdated(_ context.Context, email string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Carts = append(e.Carts, email)
}

func (e *Events) OrderPlaced(_ context.Context, o models.Order) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Orders = append(e.Orders, o.ID)
}

type Identity struct {
	Deleted []string
	Err     error
}

func (i *Identity) DeleteAccount(_ context.Context, email string) error {
	if i.Err != nil {
		return i.Err
	}
	i.Deleted = append(i.Deleted, email)
	return nil
}

type Objects struct {
	Prefixes []string
}

func (o *Objects) RemovePrefix(_ context.Context, prefix string) (int, error) {
	o.Prefixes = append(o.Prefixes, prefix)
	return 0, nil
}

// Clock renvoie une horloge fixe qui avance d'une seconde à chaque appel
func Clock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := t
		t = t.Add(time.Second)
		return now
	}
}

// Env assemble les services du shop branchés sur les fakes
type Env struct {
	Products *Products
	Carts    *Carts
	Users    *Users
	Orders   *Orders
	Index    *Index
	Payments *Payments
	Notifier *Notifier
	Events   *Events
	Identity *Identity
	Objects  *Objects

	Catalog  *shop.Catalog
	Cart     *shop.Carts
	Accounts *shop.Accounts
	Checkout *shop.Checkout
	Admin    *shop.Admin
}

func NewEnv(now time.Time) *Env {
	e := &Env{
		Products: NewProducts(),
		Carts:    NewCarts(),
		Users:    NewUsers(),
		Orders:   NewOrders(),
		Index:    NewIndex(),
		Payments: &Payments{},
		Notifier: &Notifier{},
		Events:   &Events{},
		Identity: &Identity{},
		Objects:  &Objects{},
	}
	clock := Clock(now)
	e.Catalog = shop.NewCatalog(e.Products, e.Index)
	e.Cart = shop.NewCarts(e.Products, e.Carts, e.Events)
	e.Accounts = &shop.Accounts{
		Users: e.Users, Carts: e.Carts, Payments: e.Payments,
		Identity: e.Identity, Objects: e.Objects, Now: clock,
	}
	e.Checkout = &shop.Checkout{
		Users: e.Users, Carts: e.Carts, Orders: e.Orders, Payments: e.Payments,
		Notifier: e.Notifier, Events: e.Events, Now: clock,
	}
	e.Admin = &shop.Admin{
		Products: e.Products, Carts: e.Carts, Orders: e.Orders, Users: e.Users,
		Index: e.Index, Events: e.Events, Now: clock,
	}
	return e
}
