package mongodb

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/epharmacy/internal/domain/models"
)

// ListMedicines returns the whole catalog in insertion order.
func (r *Repository) ListMedicines(ctx context.Context) ([]models.Medicine, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	out, err := findAll[models.Medicine](ctx, r.collection(medicinesCollection), bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	return out, nil
}

// FindMedicinesByGeneric returns the catalog entries of a generic name, ignoring case.
func (r *Repository) FindMedicinesByGeneric(ctx context.Context, genericName string) ([]models.Medicine, error) {
	filter := bson.M{"generic_name": exactIgnoreCase(genericName)}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	out, err := findAll[models.Medicine](ctx, r.collection(medicinesCollection), filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find medicines by generic %q: %w", genericName, err)
	}
	return out, nil
}

// FindMedicinesByIDs loads catalog entries by id.
func (r *Repository) FindMedicinesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Medicine, error) {
	if len(ids) == 0 {
		return []models.Medicine{}, nil
	}
	out, err := findAll[models.Medicine](ctx, r.collection(medicinesCollection), bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find medicines by id: %w", err)
	}
	return out, nil
}

// FindMedicine returns the catalog entry sharing every descriptive field with
// probe, or nil.
func (r *Repository) FindMedicine(ctx context.Context, probe models.Medicine) (*models.Medicine, error) {
	categories := probe.Categories
	if categories == nil {
		categories = []primitive.ObjectID{}
	}
	filter := bson.M{
		"generic_name":    probe.GenericName,
		"brand_name":      probe.BrandName,
		"dosage_strength": probe.DosageStrength,
		"dosage_form":     probe.DosageForm,
		"classification":  probe.Classification,
		"categories":      categories,
	}
	if probe.Description != "" {
		filter["description"] = probe.Description
	} else {
		filter["description"] = bson.M{"$in": bson.A{nil, ""}}
	}

	var m models.Medicine
	found, err := findOne(ctx, r.collection(medicinesCollection), filter, &m)
	if err != nil {
		return nil, fmt.Errorf("find medicine: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &m, nil
}

// InsertMedicine adds a catalog entry.
func (r *Repository) InsertMedicine(ctx context.Context, m models.Medicine) (models.Medicine, error) {
	if m.Categories == nil {
		m.Categories = []primitive.ObjectID{}
	}
	res, err := r.collection(medicinesCollection).InsertOne(ctx, m)
	if err != nil {
		return models.Medicine{}, fmt.Errorf("insert medicine: %w", err)
	}
	if m.ID, err = insertedID(res); err != nil {
		return models.Medicine{}, err
	}
	return m, nil
}

// DeleteMedicine removes a catalog entry.
func (r *Repository) DeleteMedicine(ctx context.Context, medicineID primitive.ObjectID) error {
	if _, err := r.collection(medicinesCollection).DeleteOne(ctx, bson.M{"_id": medicineID}); err != nil {
		return fmt.Errorf("delete medicine %s: %w", medicineID.Hex(), err)
	}
	return nil
}

// FindCategoryByName looks a category up ignoring case, or returns nil.
func (r *Repository) FindCategoryByName(ctx context.Context, name string) (*models.MedicationCategory, error) {
	var c models.MedicationCategory
	found, err := findOne(ctx, r.collection(categoriesCollection), bson.M{"name": exactIgnoreCase(name)}, &c)
	if err != nil {
		return nil, fmt.Errorf("find category %q: %w", name, err)
	}
	if !found {
		return nil, nil
	}
	return &c, nil
}

// InsertCategory adds a medication category. A name clashing with an existing
// one, ignoring case, yields models.ErrDuplicate.
func (r *Repository) InsertCategory(ctx context.Context, c models.MedicationCategory) (models.MedicationCategory, error) {
	res, err := r.collection(categoriesCollection).InsertOne(ctx, c)
	if mongo.IsDuplicateKeyError(err) {
		return models.MedicationCategory{}, fmt.Errorf("insert category %q: %w", c.Name, models.ErrDuplicate)
	}
	if err != nil {
		return models.MedicationCategory{}, fmt.Errorf("insert category: %w", err)
	}
	if c.ID, err = insertedID(res); err != nil {
		return models.MedicationCategory{}, err
	}
	return c, nil
}

func exactIgnoreCase(value string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(value) + "$", Options: "i"}
}
