package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"

	"sacoche_back_end/internal/middleware"
	"sacoche_back_end/internal/models"
	"sacoche_back_end/internal/utils"
)

// FirebaseLogin échange un ID token Firebase contre notre JWT
func (h *Handlers) FirebaseLogin(c *gin.Context) {
	var input struct {
		IDToken string `json:"idToken"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.IDToken == "" {
		badRequest(c, "idToken requis")
		return
	}

	id, err := h.Identity.Verify(c.Request.Context(), input.IDToken)
	if err != nil {
		log.Printf("❌ ID token Firebase refusé: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token Firebase invalide"})
		return
	}
	h.signIn(c, id)
}

// BeginOAuth redirige vers le fournisseur (google, facebook)
func (h *Handlers) BeginOAuth(c *gin.Context) {
	withProvider(c)
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

func (h *Handlers) OAuthCallback(c *gin.Context) {
	withProvider(c)
	user, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		log.Printf("❌ OAuth %s: %v", c.Param("provider"), err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentification refusée"})
		return
	}
	h.signIn(c, models.Identity{Email: user.Email, Name: user.Name, Picture: user.AvatarURL})
}

// Logout révoque le token courant jusqu'à son expiration
func (h *Handlers) Logout(c *gin.Context) {
	claims, ok := c.MustGet(middleware.KeyClaims).(*utils.Claims)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token invalide"})
		return
	}
	if err := h.Revoker.Revoke(c.Request.Context(), claims.ID, claims.Remaining(time.Now())); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Déconnecté"})
}

func (h *Handlers) signIn(c *gin.Context, id models.Identity) {
	user, err := h.Accounts.SignIn(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := h.Tokens.Issue(user.Email, user.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Printf("✅ Connexion de %s", user.Email)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// withProvider recopie :provider dans la query, là où gothic.GetProviderName le cherche
func withProvider(c *gin.Context) {
	q := c.Request.URL.Query()
	q.Set("provider", c.Param("provider"))
	c.Request.URL.RawQuery = q.Encode()
}
