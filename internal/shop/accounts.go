package shop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"sacoche_back_end/internal/models"
)

// Accounts gère le profil, l'adresse, les cartes et la suppression de compte.
type Accounts struct {
	Users    UserStore
	Carts    CartStore
	Payments PaymentGateway
	Identity IdentityProvider
	Objects  ObjectRemover
	Now      func() time.Time
}

// SignIn crée l'utilisateur au premier passage (rôle "user") et ne touche jamais au rôle existant.
func (a *Accounts) SignIn(ctx context.Context, id models.Identity) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email == "" {
		return nil, invalid("email", "absent de l'identité")
	}

	user, err := a.Users.GetUser(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	username := id.Name
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}
	fresh := models.User{
		Email:      email,
		Username:   username,
		ProfilePic: id.Picture,
		Role:       models.RoleUser,
		Cards:      map[string]models.Card{},
		CreatedAt:  a.now(),
	}
	if err := a.Users.CreateUser(ctx, fresh); err != nil {
		// connexion concurrente du même compte : l'autre a gagné
		if errors.Is(err, ErrConflict) {
			return a.Users.GetUser(ctx, email)
		}
		return nil, err
	}
	log.Printf("✅ Nouvel utilisateur %s", email)
	return &fresh, nil
}

func (a *Accounts) Profile(ctx context.Context, s Session) (*models.User, error) {
	return a.Users.GetUser(ctx, s.Email)
}

// UpdateProfile ne modifie que le nom et la photo ; le rôle n'est pas modifiable ici.
func (a *Accounts) UpdateProfile(ctx context.Context, s Session, username, profilePic string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalid("username", "obligatoire")
	}
	user, err := a.Users.GetUser(ctx, s.Email)
	if err != nil {
		return nil, err
	}
	if profilePic == "" {
		profilePic = user.ProfilePic
	}
	if err := a.Users.UpdateProfile(ctx, s.Email, username, profilePic); err != nil {
		return nil, err
	}
	user.Username = username
	user.ProfilePic = profilePic
	return user, nil
}

func (a *Accounts) SetAddress(ctx context.Context, s Session, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return invalid("address", "obligatoire")
	}
	if _, err := a.Users.GetUser(ctx, s.Email); err != nil {
		return err
	}
	return a.Users.SetAddress(ctx, s.Email, address)
}

// SaveCard rattache une carte déjà tokenisée côté client au client Stripe de l'utilisateur.
func (a *Accounts) SaveCard(ctx context.Context, s Session, paymentMethodID string) (*models.Card, error) {
	paymentMethodID = strings.TrimSpace(paymentMethodID)
	if paymentMethodID == "" {
		return nil, invalid("paymentMethodId", "obligatoire")
	}
	user, err := a.Users.GetUser(ctx, s.Email)
	if err != nil {
		return nil, err
	}

	customerID := user.StripeCustomerID
	if customerID == "" {
		customerID, err = a.Payments.EnsureCustomer(ctx, *user)
		if err != nil {
			return nil, fmt.Errorf("client stripe: %w", err)
		}
		if err := a.Users.SetStripeCustomer(ctx, s.Email, customerID); err != nil {
			return nil, err
		}
	}

	card, err := a.Payments.AttachCard(ctx, customerID, paymentMethodID)
	if err != nil {
		return nil, fmt.Errorf("rattachement carte: %w", err)
	}
	if err := a.Users.SetCard(ctx, s.Email, *card); err != nil {
		return nil, err
	}
	return card, nil
}

func (a *Accounts) RemoveCard(ctx context.Context, s Session, cardID string) error {
	user, err := a.Users.GetUser(ctx, s.Email)
	if err != nil {
		return err
	}
	if _, ok := user.Cards[cardID]; !ok {
		return ErrNotFound
	}
	if err := a.Payments.DetachCard(ctx, cardID); err != nil {
		log.Printf("⚠️ Détachement Stripe de %s impossible: %v", cardID, err)
	}
	return a.Users.RemoveCard(ctx, s.Email, cardID)
}

// DeleteUser supprime le profil, le panier puis le compte d'identité.
// Pas de rollback : une suppression partielle reste partielle.
func (a *Accounts) DeleteUser(ctx context.Context, s Session, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return invalid("email", "obligatoire")
	}
	if email != s.Email && !s.IsAdmin() {
		return ErrForbidden
	}

	log.Printf("🗑️ Suppression du compte %s (demandée par %s)", email, s.Email)

	if err := a.Users.DeleteUser(ctx, email); err != nil {
		return fmt.Errorf("suppression profil: %w", err)
	}
	if err := a.Carts.DeleteCart(ctx, email); err != nil {
		return fmt.Errorf("suppression panier: %w", err)
	}
	if a.Identity != nil {
		if err := a.Identity.DeleteAccount(ctx, email); err != nil {
			return fmt.Errorf("suppression compte d'identité: %w", err)
		}
	}

	if a.Objects != nil {
		n, err := a.Objects.RemovePrefix(ctx, "users/"+email+"/")
		if err != nil {
			log.Printf("⚠️ Suppression des fichiers de %s incomplète: %v", email, err)
		} else {
			log.Printf("✅ %d fichier(s) supprimé(s) pour %s", n, email)
		}
	}

	log.Printf("✅ Compte %s supprimé", email)
	return nil
}

func (a *Accounts) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}
