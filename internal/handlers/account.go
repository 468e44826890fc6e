package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"sacoche_back_end/internal/shop"
)

func (h *Handlers) GetAccount(c *gin.Context) {
	user, err := h.Accounts.Profile(c.Request.Context(), session(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateAccount : PUT /api/account {username, profilePic}
func (h *Handlers) UpdateAccount(c *gin.Context) {
	var input struct {
		Username   string `json:"username"`
		ProfilePic string `json:"profilePic"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Données invalides")
		return
	}
	user, err := h.Accounts.UpdateProfile(c.Request.Context(), session(c), input.Username, input.ProfilePic)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UploadAvatar : POST /api/account/avatar (multipart, champ "file")
func (h *Handlers) UploadAvatar(c *gin.Context) {
	s := session(c)
	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "Fichier manquant")
		return
	}
	user, err := h.Accounts.Profile(c.Request.Context(), s)
	if err != nil {
		respondError(c, err)
		return
	}

	url, err := h.Images.Upload(c.Request.Context(), "users/"+s.Email, file)
	if err != nil {
		respondError(c, err)
		return
	}
	user, err = h.Accounts.UpdateProfile(c.Request.Context(), s, user.Username, url)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handlers) SetAddress(c *gin.Context) {
	var input struct {
		Address string `json:"address"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Données invalides")
		return
	}
	if err := h.Accounts.SetAddress(c.Request.Context(), session(c), input.Address); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Adresse enregistrée", "address": input.Address})
}

// AddCard : POST /api/account/cards {paymentMethodId}
func (h *Handlers) AddCard(c *gin.Context) {
	var input struct {
		PaymentMethodID string `json:"paymentMethodId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Données invalides")
		return
	}
	card, err := h.Accounts.SaveCard(c.Request.Context(), session(c), input.PaymentMethodID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

func (h *Handlers) RemoveCard(c *gin.Context) {
	if err := h.Accounts.RemoveCard(c.Request.Context(), session(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Carte supprimée"})
}

// DeleteUser : POST /delete-user {email}
// 400 si le corps est illisible ou sans email, 200 si tout est supprimé, sinon 500 générique, même après une suppression partielle.
func (h *Handlers) DeleteUser(c *gin.Context) {
	var input struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Données invalides")
		return
	}

	err := h.Accounts.DeleteUser(c.Request.Context(), session(c), input.Email)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Utilisateur supprimé"})
	case shop.IsValidation(err):
		badRequest(c, "Email requis")
	case errors.Is(err, shop.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
	default:
		log.Printf("❌ Suppression utilisateur %s: %v", input.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Échec de la suppression de l'utilisateur"})
	}
}
