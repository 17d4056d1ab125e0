package models

import "time"

// ExpiryLine is one batch listed in an owner's expiry alert.
type ExpiryLine struct {
	Medicine       string
	Quantity       int
	ExpirationDate time.Time
	Expired        bool
}

// ExpiryNotice is the single summary sent to one pharmacy owner per sweep.
type ExpiryNotice struct {
	PharmacyID string
	OwnerName  string
	Email      string
	Phone      string
	Lines      []ExpiryLine
}
