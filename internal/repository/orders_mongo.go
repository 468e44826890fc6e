package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sacoche_back_end/internal/models"
	"sacoche_back_end/internal/shop"
)

// MongoOrders stocke les commandes dans la collection orders.
// _id = <email>_<millis> ; userEmail remplace la sous-collection par utilisateur.
type MongoOrders struct {
	col *mongo.Collection
	now func() time.Time
}

func NewMongoOrders(db *mongo.Database) *MongoOrders {
	return &MongoOrders{
		col: db.Collection("orders"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes crée les index utilisés par les listes et le webhook Stripe
func (r *MongoOrders) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userEmail", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "paymentIntentId", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	return err
}

func (r *MongoOrders) CreateOrder(ctx context.Context, o models.Order) error {
	_, err := r.col.InsertOne(ctx, o)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("commande %s: %w", o.ID, shop.ErrConflict)
	}
	return err
}

func (r *MongoOrders) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, shop.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *MongoOrders) ListOrdersByUser(ctx context.Context, email string) ([]models.Order, error) {
	return r.find(ctx, bson.M{"userEmail": email})
}

func (r *MongoOrders) ListOrders(ctx context.Context) ([]models.Order, error) {
	return r.find(ctx, bson.M{})
}

// UpdateOrderStatus ne fait qu'un $set sur les champs fournis
func (r *MongoOrders) UpdateOrderStatus(ctx context.Context, id string, update shop.StatusUpdate) (*models.Order, error) {
	set := bson.M{"updatedAt": r.now()}
	if update.PaymentStatus != nil {
		set["paymentStatus"] = *update.PaymentStatus
	}
	if update.DeliveryStatus != nil {
		set["deliveryStatus"] = *update.DeliveryStatus
	}
	return r.findAndSet(ctx, bson.M{"_id": id}, set)
}

func (r *MongoOrders) MarkPaidByIntent(ctx context.Context, intentID string) (*models.Order, error) {
	return r.findAndSet(ctx, bson.M{"paymentIntentId": intentID}, bson.M{
		"paymentStatus": models.PaymentCompleted,
		"updatedAt":     r.now(),
	})
}

func (r *MongoOrders) findAndSet(ctx context.Context, filter, set bson.M) (*models.Order, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var o models.Order
	err := r.col.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, shop.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *MongoOrders) find(ctx context.Context, filter bson.M) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
