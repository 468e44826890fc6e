package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sacoche_back_end/internal/models"
)

func cartResponse(items []models.CartItem) gin.H {
	return gin.H{"items": items, "count": len(items)}
}

func (h *Handlers) GetCart(c *gin.Context) {
	items, err := h.Carts.Get(c.Request.Context(), session(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(items))
}

// AddCartItem : POST /api/cart/items {productId}
func (h *Handlers) AddCartItem(c *gin.Context) {
	var input struct {
		ProductID string `json:"productId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Données invalides")
		return
	}
	items, err := h.Carts.AddItem(c.Request.Context(), session(c), input.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(items))
}

func (h *Handlers) RemoveCartItem(c *gin.Context) {
	items, err := h.Carts.RemoveItem(c.Request.Context(), session(c), c.Param("productId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(items))
}

// ChangeCartQuantity : PATCH /api/cart/items/:productId {delta}
func (h *Handlers) ChangeCartQuantity(c *gin.Context) {
	var input struct {
		Delta int `json:"delta"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Données invalides")
		return
	}
	items, err := h.Carts.ChangeQuantity(c.Request.Context(), session(c), c.Param("productId"), input.Delta)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(items))
}

func (h *Handlers) ClearCart(c *gin.Context) {
	if err := h.Carts.Clear(c.Request.Context(), session(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse([]models.CartItem{}))
}

// CartTotal : POST /api/cart/total {selectedIds}
func (h *Handlers) CartTotal(c *gin.Context) {
	var input struct {
		SelectedIDs []string `json:"selectedIds"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Données invalides")
		return
	}
	total, err := h.Carts.Total(c.Request.Context(), session(c), input.SelectedIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total})
}
