package handlers

import (
	"bytes"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"

	"sacoche_back_end/internal/shop"
	"sacoche_back_end/internal/utils"
)

func (h *Handlers) CreateProduct(c *gin.Context) {
	var input shop.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Données invalides")
		return
	}
	p, err := h.Admin.CreateProduct(c.Request.Context(), session(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handlers) UpdateProduct(c *gin.Context) {
	var input shop.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Données invalides")
		return
	}
	p, err := h.Admin.UpdateProduct(c.Request.Context(), session(c), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handlers) DeleteProduct(c *gin.Context) {
	report, err := h.Admin.DeleteProduct(c.Request.Context(), session(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// UploadProductImage : POST /api/admin/products/image (multipart, champ "file")
func (h *Handlers) UploadProductImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "Fichier manquant")
		return
	}
	url, err := h.Images.Upload(c.Request.Context(), "products", file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func (h *Handlers) ListAllOrders(c *gin.Context) {
	orders, err := h.Admin.ListOrders(c.Request.Context(), session(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// UpdateOrderStatus : PATCH /api/admin/orders/:id {paymentStatus?, deliveryStatus?}
// Le client est prévenu par e-mail quand la livraison change ; un échec d'envoi ne bloque pas.
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	var update shop.StatusUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, "Données invalides")
		return
	}
	order, deliveryChanged, err := h.Admin.UpdateOrderStatus(c.Request.Context(), session(c), c.Param("id"), update)
	if err != nil {
		respondError(c, err)
		return
	}

	if deliveryChanged && h.StatusMail != nil {
		if err := h.StatusMail.OrderStatusChanged(c.Request.Context(), *order); err != nil {
			log.Printf("⚠️ E-mail de suivi non envoyé pour %s: %v", order.ID, err)
		}
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.Admin.ListUsers(c.Request.Context(), session(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// SetUserRole : PUT /api/admin/users/:email/role {role}
func (h *Handlers) SetUserRole(c *gin.Context) {
	var input struct {
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Données invalides")
		return
	}
	if err := h.Admin.SetUserRole(c.Request.Context(), session(c), c.Param("email"), input.Role); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rôle mis à jour", "role": input.Role})
}

func (h *Handlers) Stats(c *gin.Context) {
	stats, err := h.Admin.Stats(c.Request.Context(), session(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handlers) ExportProducts(c *gin.Context) {
	products, err := h.Admin.ListProducts(c.Request.Context(), session(c))
	if err != nil {
		respondError(c, err)
		return
	}
	file, err := utils.ProductsWorkbook(products)
	if err != nil {
		respondError(c, err)
		return
	}
	sendWorkbook(c, "produits.xlsx", file)
}

func (h *Handlers) ExportOrders(c *gin.Context) {
	orders, err := h.Admin.ListOrders(c.Request.Context(), session(c))
	if err != nil {
		respondError(c, err)
		return
	}
	file, err := utils.OrdersWorkbook(orders)
	if err != nil {
		respondError(c, err)
		return
	}
	sendWorkbook(c, "commandes.xlsx", file)
}

func sendWorkbook(c *gin.Context, name string, file *xlsx.File) {
	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, utils.XLSXContentType, buf.Bytes())
}
