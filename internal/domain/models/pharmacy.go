package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Location is a pharmacy's geographic position.
type Location struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// Pharmacy is the store record linked to an owner profile.
type Pharmacy struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID      primitive.ObjectID `bson:"user_info" json:"userInfo"`
	Location     *Location          `bson:"location,omitempty" json:"location,omitempty"`
	BusinessDays string             `bson:"business_days,omitempty" json:"businessDays,omitempty"`
	OpeningHour  string             `bson:"opening_hour,omitempty" json:"openingHour,omitempty"`
	ClosingHour  string             `bson:"closing_hour,omitempty" json:"closingHour,omitempty"`
	Approved     bool               `bson:"approved" json:"approved"`
}

// Owner carries the contact fields of a pharmacy owner's user profile.
type Owner struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Email         string             `bson:"email" json:"email"`
	ContactNumber string             `bson:"contact_number" json:"contactNumber"`
	Street        string             `bson:"street,omitempty" json:"street,omitempty"`
	Barangay      string             `bson:"barangay,omitempty" json:"barangay,omitempty"`
	City          string             `bson:"city,omitempty" json:"city,omitempty"`
}

// PharmacyProfile is a pharmacy with its owner expanded. Owner is nil when
// the linked profile is missing.
type PharmacyProfile struct {
	Pharmacy `bson:",inline"`
	Owner    *Owner `bson:"owner,omitempty" json:"owner,omitempty"`
}
