package models

import "time"

const (
	PaymentPending   = "Pending"
	PaymentCompleted = "Completed"

	DeliveryPending   = "Pending"
	DeliveryShipped   = "Shipped"
	DeliveryDelivered = "Delivered"

	PaymentMethodCOD  = "cod"
	PaymentMethodCard = "card"
)

var (
	PaymentStatuses  = []string{PaymentPending, PaymentCompleted}
	DeliveryStatuses = []string{DeliveryPending, DeliveryShipped, DeliveryDelivered}
)

// OrderUser est la copie des infos client au moment de l'achat
type OrderUser struct {
	Email    string `json:"email" bson:"email"`
	Username string `json:"username" bson:"username"`
	Address  string `json:"address" bson:"address"`
}

// OrderItem est figé à la commande : aucun lien vivant vers Product
type OrderItem struct {
	ProductID string  `json:"productId" bson:"productId"`
	Name      string  `json:"name" bson:"name"`
	Price     float64 `json:"price" bson:"price"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	Image     string  `json:"image" bson:"image"`
}

type Order struct {
	ID              string      `json:"id" bson:"_id"`
	UserEmail       string      `json:"userEmail" bson:"userEmail"`
	User            OrderUser   `json:"user" bson:"user"`
	Items           []OrderItem `json:"items" bson:"items"`
	Subtotal        float64     `json:"subtotal" bson:"subtotal"`
	Total           float64     `json:"total" bson:"total"`
	PaymentMethod   string      `json:"paymentMethod" bson:"paymentMethod"`
	PaymentStatus   string      `json:"paymentStatus" bson:"paymentStatus"`
	DeliveryStatus  string      `json:"deliveryStatus" bson:"deliveryStatus"`
	PaymentIntentID string      `json:"paymentIntentId,omitempty" bson:"paymentIntentId,omitempty"`
	CreatedAt       time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt       *time.Time  `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}
