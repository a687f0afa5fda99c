package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const cartTTL = 90 * 24 * time.Hour

type cartDocument struct {
	ID        any            `bson:"_id,omitempty"`
	SessionID string         `bson:"session_id"`
	Items     []lineDocument `bson:"items"`
	CreatedAt time.Time      `bson:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

// unit prices are stored as decimal strings so no precision is lost
type lineDocument struct {
	ProductID string `bson:"product_id"`
	Size      string `bson:"size"`
	Color     string `bson:"color"`
	UnitPrice string `bson:"unit_price"`
	Quantity  int    `bson:"quantity"`
	Name      string `bson:"name"`
	PhotoURL  string `bson:"photo_url"`
	Category  string `bson:"category"`
}

type MongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{
		collection: db.Collection("carts"),
	}
}

func (m *MongoCartRepository) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	var doc cartDocument

	filter := bson.M{"session_id": sessionID}
	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return fromDocument(&doc)
}

func (m *MongoCartRepository) UpsertCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now().UTC()
	cart.UpdatedAt = now

	filter := bson.M{"session_id": cart.SessionID}
	update := bson.M{
		"$set": bson.M{
			"items":      toLineDocuments(cart.Items),
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"session_id": cart.SessionID,
			"created_at": now,
		},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	return nil
}

func (m *MongoCartRepository) DeleteCart(ctx context.Context, sessionID string) error {
	filter := bson.M{"session_id": sessionID}

	result, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (m *MongoCartRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(cartTTL.Seconds())),
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func toLineDocuments(items []domain.LineItem) []lineDocument {
	docs := make([]lineDocument, len(items))
	for i, item := range items {
		docs[i] = lineDocument{
			ProductID: item.ProductID,
			Size:      item.Size,
			Color:     item.Color,
			UnitPrice: item.UnitPrice.String(),
			Quantity:  item.Quantity,
			Name:      item.Name,
			PhotoURL:  item.PhotoURL,
			Category:  string(item.Category),
		}
	}
	return docs
}

func fromDocument(doc *cartDocument) (*domain.Cart, error) {
	cart := &domain.Cart{
		SessionID: doc.SessionID,
		Items:     make([]domain.LineItem, len(doc.Items)),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	for i, d := range doc.Items {
		price, err := decimal.NewFromString(d.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("invalid unit price %q in cart %s: %w", d.UnitPrice, doc.SessionID, err)
		}
		cart.Items[i] = domain.LineItem{
			ProductID: d.ProductID,
			Size:      d.Size,
			Color:     d.Color,
			UnitPrice: price,
			Quantity:  d.Quantity,
			Name:      d.Name,
			PhotoURL:  d.PhotoURL,
			Category:  domain.Category(d.Category),
		}
	}
	return cart, nil
}
