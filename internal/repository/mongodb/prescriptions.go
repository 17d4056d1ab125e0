package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/epharmacy/internal/domain/models"
)

// InsertPrescription stores a prescription.
func (r *Repository) InsertPrescription(ctx context.Context, p models.Prescription) (models.Prescription, error) {
	if p.MatchedMedicines == nil {
		p.MatchedMedicines = []models.MatchedMedicine{}
	}
	res, err := r.collection(prescriptionsCollection).InsertOne(ctx, p)
	if err != nil {
		return models.Prescription{}, fmt.Errorf("insert prescription: %w", err)
	}
	if p.ID, err = insertedID(res); err != nil {
		return models.Prescription{}, err
	}
	return p, nil
}

// FindPrescriptionsByCustomer lists a customer's prescriptions, newest first.
func (r *Repository) FindPrescriptionsByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]models.Prescription, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	out, err := findAll[models.Prescription](ctx, r.collection(prescriptionsCollection), bson.M{"customer_id": customerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find prescriptions of %s: %w", customerID.Hex(), err)
	}
	return out, nil
}

// ListPrescriptions returns the whole prescription history, oldest first.
func (r *Repository) ListPrescriptions(ctx context.Context) ([]models.Prescription, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetProjection(bson.M{"matched_medicines": 1, "created_at": 1})
	out, err := findAll[models.Prescription](ctx, r.collection(prescriptionsCollection), bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	return out, nil
}

// CountPrescriptions counts stored prescriptions.
func (r *Repository) CountPrescriptions(ctx context.Context) (int64, error) {
	n, err := r.collection(prescriptionsCollection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count prescriptions: %w", err)
	}
	return n, nil
}
