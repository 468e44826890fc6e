package services

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"sacoche_back_end/internal/models"
)

// FirebaseIdentity vérifie les ID tokens Firebase et supprime les comptes
type FirebaseIdentity struct {
	client *auth.Client
}

func NewFirebaseIdentity(ctx context.Context, projectID string, credentialsJSON []byte) (*FirebaseIdentity, error) {
	// Sans JSON, les Application Default Credentials prennent le relais
	var opts []option.ClientOption
	if len(credentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialisation Firebase: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("client Firebase Auth: %w", err)
	}
	return &FirebaseIdentity{client: client}, nil
}

func (f *FirebaseIdentity) Verify(ctx context.Context, idToken string) (models.Identity, error) {
	token, err := f.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		return models.Identity{}, err
	}
	return IdentityFromClaims(token.Claims), nil
}

func IdentityFromClaims(claims map[string]interface{}) models.Identity {
	str := func(k string) string {
		v, _ := claims[k].(string)
		return v
	}
	return models.Identity{Email: str("email"), Name: str("name"), Picture: str("picture")}
}

// DeleteAccount supprime le compte Firebase ; un compte déjà absent n'est pas une erreur
func (f *FirebaseIdentity) DeleteAccount(ctx context.Context, email string) error {
	u, err := f.client.GetUserByEmail(ctx, email)
	if auth.IsUserNotFound(err) {
		log.Printf("⚠️ Aucun compte Firebase pour %s", email)
		return nil
	}
	if err != nil {
		return err
	}
	if err := f.client.DeleteUser(ctx, u.UID); err != nil && !auth.IsUserNotFound(err) {
		return err
	}
	return nil
}
