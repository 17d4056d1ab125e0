package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/epharmacy/internal/domain/models"
)

// FindStock returns the ledger entries matching filter. An empty filter
// returns the whole ledger.
func (r *Repository) FindStock(ctx context.Context, filter models.StockFilter) ([]models.StockEntry, error) {
	query := bson.M{}
	if len(filter.MedicineIDs) > 0 {
		query["medicine_id"] = bson.M{"$in": filter.MedicineIDs}
	}
	if !filter.PharmacyID.IsZero() {
		query["pharmacy_id"] = filter.PharmacyID
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	out, err := findAll[models.StockEntry](ctx, r.collection(stockCollection), query, opts)
	if err != nil {
		return nil, fmt.Errorf("find stock: %w", err)
	}
	return out, nil
}

// InsertStock adds a ledger entry.
func (r *Repository) InsertStock(ctx context.Context, e models.StockEntry) (models.StockEntry, error) {
	if e.Batches == nil {
		e.Batches = []models.Batch{}
	}
	res, err := r.collection(stockCollection).InsertOne(ctx, e)
	if err != nil {
		return models.StockEntry{}, fmt.Errorf("insert stock entry: %w", err)
	}
	if e.ID, err = insertedID(res); err != nil {
		return models.StockEntry{}, err
	}
	return e, nil
}

// ReplaceBatches overwrites the batches of one entry and stamps it. It returns
// nil when the entry does not exist.
func (r *Repository) ReplaceBatches(ctx context.Context, stockID primitive.ObjectID, batches []models.Batch, at time.Time) (*models.StockEntry, error) {
	update := bson.M{"$set": bson.M{"batches": batches, "recomputed_at": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var e models.StockEntry
	err := r.collection(stockCollection).FindOneAndUpdate(ctx, bson.M{"_id": stockID}, update, opts).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("replace batches of %s: %w", stockID.Hex(), err)
	}
	return &e, nil
}

// ZeroExpiredBatches sets the quantity of every batch that expired before now
// to 0 in place and stamps the entry. Batches added or changed since the
// caller's read are left alone. It reports whether the entry was modified.
func (r *Repository) ZeroExpiredBatches(ctx context.Context, stockID primitive.ObjectID, now time.Time) (bool, error) {
	expired := bson.M{"expiration_date": bson.M{"$lt": now}, "quantity": bson.M{"$ne": 0}}
	filter := bson.M{"_id": stockID, "batches": bson.M{"$elemMatch": expired}}
	update := bson.M{"$set": bson.M{"batches.$[b].quantity": 0, "recomputed_at": now}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"b.expiration_date": bson.M{"$lt": now}, "b.quantity": bson.M{"$ne": 0}}},
	})

	res, err := r.collection(stockCollection).UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return false, fmt.Errorf("zero expired batches of %s: %w", stockID.Hex(), err)
	}
	return res.ModifiedCount > 0, nil
}

// DeleteStockByMedicine removes every ledger entry of a medicine.
func (r *Repository) DeleteStockByMedicine(ctx context.Context, medicineID primitive.ObjectID) (int64, error) {
	res, err := r.collection(stockCollection).DeleteMany(ctx, bson.M{"medicine_id": medicineID})
	if err != nil {
		return 0, fmt.Errorf("delete stock of medicine %s: %w", medicineID.Hex(), err)
	}
	r.logger.Debug("stock entries deleted", zap.String("medicine_id", medicineID.Hex()), zap.Int64("count", res.DeletedCount))
	return res.DeletedCount, nil
}
