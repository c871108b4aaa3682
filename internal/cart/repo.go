package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound = errors.New("cart not found")
	// ErrConflict means the cart changed since it was read.
	ErrConflict = errors.New("cart was modified concurrently")
)

type Repository interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
}

// MongoRepo keeps one document per user in the carts collection.
type MongoRepo struct{ coll *mongo.Collection }

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{coll: db.Collection("carts")}
}

type itemDoc struct {
	ID            string `bson:"id"`
	ProductID     string `bson:"product_id"`
	VariantSKU    string `bson:"variant_sku"`
	Title         string `bson:"title"`
	UnitPrice     string `bson:"unit_price"`
	Size          string `bson:"size,omitempty"`
	Color         string `bson:"color,omitempty"`
	Category      string `bson:"category,omitempty"`
	Quantity      int    `bson:"quantity"`
	SavedForLater bool   `bson:"saved_for_later"`
}

type cartDoc struct {
	UserID       string    `bson:"_id"`
	CartID       string    `bson:"cart_id"`
	Items        []itemDoc `bson:"items"`
	LastActivity time.Time `bson:"last_activity"`
	Version      int64     `bson:"version"`
}

func toDoc(c *Cart) cartDoc {
	d := cartDoc{
		UserID:       c.UserID,
		CartID:       c.ID,
		Items:        make([]itemDoc, 0, len(c.Items)),
		LastActivity: c.LastActivity,
		Version:      c.Version,
	}
	for _, it := range c.Items {
		d.Items = append(d.Items, itemDoc{
			ID:            it.ID,
			ProductID:     it.ProductID,
			VariantSKU:    it.VariantSKU,
			Title:         it.Title,
			UnitPrice:     it.UnitPrice.String(),
			Size:          it.Size,
			Color:         it.Color,
			Category:      it.Category,
			Quantity:      it.Quantity,
			SavedForLater: it.SavedForLater,
		})
	}
	return d
}

func fromDoc(d cartDoc) (*Cart, error) {
	c := &Cart{
		ID:           d.CartID,
		UserID:       d.UserID,
		Items:        make([]LineItem, 0, len(d.Items)),
		LastActivity: d.LastActivity,
		Version:      d.Version,
	}
	for _, it := range d.Items {
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("cart %s item %s: bad price %q: %w", d.CartID, it.ID, it.UnitPrice, err)
		}
		c.Items = append(c.Items, LineItem{
			ID:            it.ID,
			ProductID:     it.ProductID,
			VariantSKU:    it.VariantSKU,
			Title:         it.Title,
			UnitPrice:     price,
			Size:          it.Size,
			Color:         it.Color,
			Category:      it.Category,
			Quantity:      it.Quantity,
			SavedForLater: it.SavedForLater,
		})
	}
	c.Recalculate()
	return c, nil
}

func (r *MongoRepo) Get(ctx context.Context, userID string) (*Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var d cartDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return fromDoc(d)
}

// Save inserts a new cart (Version 0) or replaces the stored one when its
// version still matches. On success c.Version is advanced.
func (r *MongoRepo) Save(ctx context.Context, c *Cart) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	prev := c.Version
	d := toDoc(c)
	d.Version = prev + 1

	if prev == 0 {
		if _, err := r.coll.InsertOne(ctx, d); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrConflict
			}
			return err
		}
		c.Version = d.Version
		return nil
	}

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": c.UserID, "version": prev}, d)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConflict
	}
	c.Version = d.Version
	return nil
}
