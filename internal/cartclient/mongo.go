// Package cartclient reads and clears buyer carts stored in MongoDB. The
// cart collection is owned by the storefront; fulfillment only consumes it
// at checkout and empties it after an order is placed.
package cartclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
)

type cartItem struct {
	ProductID   int64   `bson:"product_id"`
	ProductName string  `bson:"product_name"`
	Quantity    int     `bson:"quantity"`
	UnitPrice   float64 `bson:"unit_price"`
}

type cartDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Items     []cartItem         `bson:"items"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

type MongoProvider struct {
	collection *mongo.Collection
}

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

func NewMongoProvider(db *mongo.Database) *MongoProvider {
	return &MongoProvider{collection: db.Collection("carts")}
}

// GetCart returns the user's cart. A user with no cart document gets an
// empty cart, which checkout then rejects.
func (p *MongoProvider) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var doc cartDocument

	filter := bson.M{"user_id": userID}
	err := p.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &domain.Cart{UserID: userID}, nil
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	items := make([]domain.CartLine, len(doc.Items))
	for i, item := range doc.Items {
		items[i] = domain.CartLine{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}

	return &domain.Cart{ID: doc.ID.Hex(), UserID: userID, Items: items}, nil
}

// ClearCart empties the cart in place rather than deleting the document, so
// the storefront's TTL index and timestamps stay intact. Clearing an
// already-empty cart is not an error.
func (p *MongoProvider) ClearCart(ctx context.Context, cartID string) error {
	id, err := primitive.ObjectIDFromHex(cartID)
	if err != nil {
		return fmt.Errorf("invalid cart id %q: %w", cartID, err)
	}

	filter := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{
			"items":      []cartItem{},
			"updated_at": time.Now(),
		},
	}

	if _, err := p.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
