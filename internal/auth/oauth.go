package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/facebook"
	"github.com/markbates/goth/providers/google"
)

type OAuthConfig struct {
	BaseURL              string
	SessionSecret        string
	SecureCookie         bool
	GoogleClientID       string
	GoogleClientSecret   string
	FacebookClientID     string
	FacebookClientSecret string
}

// Setup configure gothic et enregistre les fournisseurs renseignés.
// Renvoie le nombre de fournisseurs actifs.
func Setup(cfg OAuthConfig) (int, error) {
	if cfg.SessionSecret == "" {
		return 0, errors.New("SESSION_SECRET manquant")
	}

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.MaxAge(86400 * 30)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = store
	gothic.GetProviderName = ProviderName

	providers := Providers(cfg)
	if len(providers) == 0 {
		log.Println("⚠️ Aucun provider OAuth configuré")
		return 0, nil
	}
	goth.UseProviders(providers...)
	log.Printf("✅ %d OAuth provider(s) initialisé(s)", len(providers))
	return len(providers), nil
}

// Providers construit les fournisseurs dont les identifiants sont présents
func Providers(cfg OAuthConfig) []goth.Provider {
	var providers []goth.Provider
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		providers = append(providers, google.New(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.BaseURL+"/api/auth/google/callback",
			"email", "profile",
		))
		log.Println("✅ Google OAuth activé")
	}
	if cfg.FacebookClientID != "" && cfg.FacebookClientSecret != "" {
		providers = append(providers, facebook.New(
			cfg.FacebookClientID,
			cfg.FacebookClientSecret,
			cfg.BaseURL+"/api/auth/facebook/callback",
			"email",
		))
		log.Println("✅ Facebook OAuth activé")
	}
	return providers
}

// ProviderName lit le fournisseur dans la query, puis dans le formulaire
func ProviderName(req *http.Request) (string, error) {
	if provider := req.URL.Query().Get("provider"); provider != "" {
		return provider, nil
	}
	if provider := req.FormValue("provider"); provider != "" {
		return provider, nil
	}
	return "", errors.New("provider not found")
}
