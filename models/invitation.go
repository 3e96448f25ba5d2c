package models

import "time"

// InvitationStatus — однонаправленный жизненный цикл приглашения:
// pending -> accepted | expired | declined. Терминальные статусы не меняются.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
	InvitationDeclined InvitationStatus = "declined"
)

type Invitation struct {
	ID           string           `json:"id" db:"id"`
	HouseholdID  string           `json:"household_id" db:"household_id"`
	InviterID    string           `json:"inviter_id" db:"inviter_id"`
	InviteeEmail string           `json:"invitee_email" db:"invitee_email"`
	Role         Role             `json:"role" db:"role"`
	Status       InvitationStatus `json:"status" db:"status"`
	Token        string           `json:"-" db:"token"`
	ExpiresAt    time.Time        `json:"expires_at" db:"expires_at"`
	AcceptedAt   *time.Time       `json:"accepted_at,omitempty" db:"accepted_at"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

// Expired сообщает, истёк ли срок действия на момент now.
// Статус в хранилище при этом может всё ещё быть pending (ленивая коррекция).
func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
