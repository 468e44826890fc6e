package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"

	"sacoche_back_end/internal/models"
	"sacoche_back_end/internal/shop"
)

// ScyllaUsers stocke un profil par email dans le keyspace utilisateurs.
// Les cartes sont une map id → JSON pour pouvoir en ajouter ou retirer une seule.
//
//	CREATE TABLE users (
//	    email text PRIMARY KEY,
//	    username text, profile_pic text, role text, address text,
//	    cards map<text, text>, stripe_customer_id text,
//	    created_at timestamp
//	);
type ScyllaUsers struct {
	session *gocql.Session
}

func NewScyllaUsers(session *gocql.Session) *ScyllaUsers {
	return &ScyllaUsers{session: session}
}

const userColumns = `email, username, profile_pic, role, address, cards, stripe_customer_id, created_at`

type userRow struct {
	models.User
	cards     map[string]string
	createdAt time.Time
}

func (row *userRow) dest() []interface{} {
	return []interface{}{
		&row.Email, &row.Username, &row.ProfilePic, &row.Role, &row.Address,
		&row.cards, &row.StripeCustomerID, &row.createdAt,
	}
}

func (row *userRow) user() models.User {
	u := row.User
	u.CreatedAt = row.createdAt.UTC()
	u.Cards = make(map[string]models.Card, len(row.cards))
	for id, raw := range row.cards {
		var card models.Card
		if err := json.Unmarshal([]byte(raw), &card); err != nil {
			log.Printf("⚠️ Carte %s illisible pour %s: %v", id, u.Email, err)
			continue
		}
		u.Cards[id] = card
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	return u
}

func (r *ScyllaUsers) GetUser(ctx context.Context, email string) (*models.User, error) {
	var row userRow
	err := r.session.Query(`SELECT `+userColumns+` FROM users WHERE email = ?`, email).
		WithContext(ctx).Scan(row.dest()...)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, shop.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lecture utilisateur %s: %w", email, err)
	}
	u := row.user()
	return &u, nil
}

// CreateUser échoue avec ErrConflict si l'email existe déjà (LWT IF NOT EXISTS)
func (r *ScyllaUsers) CreateUser(ctx context.Context, u models.User) error {
	cards, err := encodeCards(u.Cards)
	if err != nil {
		return err
	}
	applied, err := r.session.Query(`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`,
		u.Email, u.Username, u.ProfilePic, u.Role, u.Address, cards, u.StripeCustomerID, u.CreatedAt,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("création utilisateur %s: %w", u.Email, err)
	}
	if !applied {
		return shop.ErrConflict
	}
	return nil
}

func (r *ScyllaUsers) UpdateProfile(ctx context.Context, email, username, profilePic string) error {
	return r.updateExisting(ctx, `UPDATE users SET username = ?, profile_pic = ? WHERE email = ? IF EXISTS`,
		username, profilePic, email)
}

func (r *ScyllaUsers) SetAddress(ctx context.Context, email, address string) error {
	return r.updateExisting(ctx, `UPDATE users SET address = ? WHERE email = ? IF EXISTS`, address, email)
}

func (r *ScyllaUsers) SetCard(ctx context.Context, email string, card models.Card) error {
	raw, err := json.Marshal(card)
	if err != nil {
		return err
	}
	return r.updateExisting(ctx, `UPDATE users SET cards[?] = ? WHERE email = ? IF EXISTS`, card.ID, string(raw), email)
}

func (r *ScyllaUsers) RemoveCard(ctx context.Context, email, cardID string) error {
	return r.updateExisting(ctx, `DELETE cards[?] FROM users WHERE email = ? IF EXISTS`, cardID, email)
}

func (r *ScyllaUsers) SetStripeCustomer(ctx context.Context, email, customerID string) error {
	return r.updateExisting(ctx, `UPDATE users SET stripe_customer_id = ? WHERE email = ? IF EXISTS`, customerID, email)
}

func (r *ScyllaUsers) SetRole(ctx context.Context, email, role string) error {
	return r.updateExisting(ctx, `UPDATE users SET role = ? WHERE email = ? IF EXISTS`, role, email)
}

func (r *ScyllaUsers) ListUsers(ctx context.Context) ([]models.User, error) {
	iter := r.session.Query(`SELECT ` + userColumns + ` FROM users`).WithContext(ctx).Iter()

	users := []models.User{}
	for {
		var row userRow
		if !iter.Scan(row.dest()...) {
			break
		}
		users = append(users, row.user())
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("lecture utilisateurs: %w", err)
	}
	return users, nil
}

func (r *ScyllaUsers) DeleteUser(ctx context.Context, email string) error {
	return r.session.Query(`DELETE FROM users WHERE email = ?`, email).WithContext(ctx).Exec()
}

// updateExisting exécute une LWT IF EXISTS ; ligne absente → ErrNotFound
func (r *ScyllaUsers) updateExisting(ctx context.Context, stmt string, args ...interface{}) error {
	applied, err := r.session.Query(stmt, args...).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("mise à jour utilisateur: %w", err)
	}
	if !applied {
		return shop.ErrNotFound
	}
	return nil
}

func encodeCards(cards map[string]models.Card) (map[string]string, error) {
	out := make(map[string]string, len(cards))
	for id, card := range cards {
		raw, err := json.Marshal(card)
		if err != nil {
			return nil, err
		}
		out[id] = string(raw)
	}
	return out, nil
}
