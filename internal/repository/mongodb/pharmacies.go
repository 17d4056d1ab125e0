package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mamadbah2/epharmacy/internal/domain/models"
)

// FindPharmacy loads one pharmacy, or returns nil.
func (r *Repository) FindPharmacy(ctx context.Context, id primitive.ObjectID) (*models.Pharmacy, error) {
	var p models.Pharmacy
	found, err := findOne(ctx, r.collection(pharmaciesCollection), bson.M{"_id": id}, &p)
	if err != nil {
		return nil, fmt.Errorf("find pharmacy %s: %w", id.Hex(), err)
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

// FindPharmacyProfiles loads pharmacies with their owner's user profile
// joined in. Pharmacies whose profile is missing come back with a nil Owner.
func (r *Repository) FindPharmacyProfiles(ctx context.Context, ids []primitive.ObjectID) ([]models.PharmacyProfile, error) {
	if len(ids) == 0 {
		return []models.PharmacyProfile{}, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": bson.M{"$in": ids}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         usersCollection,
			"localField":   "user_info",
			"foreignField": "_id",
			"as":           "owner",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$owner", "preserveNullAndEmptyArrays": true}}},
	}

	cursor, err := r.collection(pharmaciesCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate pharmacy profiles: %w", err)
	}
	out := make([]models.PharmacyProfile, 0, len(ids))
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode pharmacy profiles: %w", err)
	}
	return out, nil
}
