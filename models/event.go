package models

import (
	"encoding/json"
	"time"
)

// Типы событий журнала домохозяйства.
const (
	EventMemberJoined    = "member_joined"
	EventItemCreated     = "item_created"
	EventItemUpdated     = "item_updated"
	EventItemDeleted     = "item_deleted"
	EventItemStateChange = "item_state_changed"
	EventReceiptUploaded = "receipt_uploaded"
)

// Event — запись неизменяемого журнала. Строки никогда не обновляются
// и не удаляются.
type Event struct {
	ID          string          `json:"id" db:"id"`
	HouseholdID string          `json:"household_id" db:"household_id"`
	UserID      string          `json:"user_id" db:"user_id"`
	Type        string          `json:"type" db:"type"`
	Payload     json.RawMessage `json:"payload" db:"payload"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
