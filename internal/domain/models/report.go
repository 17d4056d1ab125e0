package models

import "time"

// MedicineCount is one row of the most-scanned report.
type MedicineCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SweepReport summarises one expiry sweep run.
type SweepReport struct {
	StartedAt         time.Time `json:"startedAt"`
	EntriesScanned    int       `json:"entriesScanned"`
	EntriesUpdated    int       `json:"entriesUpdated"`
	BatchesZeroed     int       `json:"batchesZeroed"`
	NotificationsSent int       `json:"notificationsSent"`
	PharmaciesSkipped int       `json:"pharmaciesSkipped"`
	Failures          int       `json:"failures"`
}

// ExpiringSummary buckets a pharmacy's non-expired stock by time to expiry.
type ExpiringSummary struct {
	ExpiringInWeek    int `json:"expiringInWeek"`
	ExpiringInMonth   int `json:"expiringInMonth"`
	ExpiringIn3Months int `json:"expiringIn3Months"`
	ExpiringIn6Months int `json:"expiringIn6Months"`
}
