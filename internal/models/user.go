package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Card est une référence de carte tokenisée chez Stripe (jamais le numéro)
type Card struct {
	ID       string `json:"id"`
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int64  `json:"expMonth"`
	ExpYear  int64  `json:"expYear"`
}

type User struct {
	Email            string          `json:"email"`
	Username         string          `json:"username"`
	ProfilePic       string          `json:"profilePic"`
	Role             string          `json:"role"`
	Address          string          `json:"address"`
	Cards            map[string]Card `json:"cards"`
	StripeCustomerID string          `json:"-"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// Identity est ce que le fournisseur d'identité nous dit de l'utilisateur
type Identity struct {
	Email   string
	Name    string
	Picture string
}
