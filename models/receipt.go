package models

import "time"

type ReceiptStatus string

const (
	ReceiptUploaded   ReceiptStatus = "uploaded"
	ReceiptProcessing ReceiptStatus = "processing"
	ReceiptProcessed  ReceiptStatus = "processed"
	ReceiptFailed     ReceiptStatus = "failed"
)

type Receipt struct {
	ID          string        `json:"id" db:"id"`
	HouseholdID string        `json:"household_id" db:"household_id"`
	UploaderID  string        `json:"uploader_id" db:"uploader_id"`
	Status      ReceiptStatus `json:"status" db:"status"`
	StorageKey  *string       `json:"-" db:"storage_key"`
	ImageURL    string        `json:"image_url,omitempty" db:"-"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}
