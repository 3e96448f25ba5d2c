package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/snakr/snakr-api/models"
)

var (
	ErrInvitationNotFound        = errors.New("invitation not found")
	ErrInvitationTokenConflict   = errors.New("invitation token conflict")
	ErrInvitationPendingConflict = errors.New("pending invitation already exists for this email")
	ErrInvitationInvalidFK       = errors.New("invitation references an unknown household or user")
)

type InvitationRepository interface {
	// Create вставляет приглашение и заполняет ID и таймстемпы.
	Create(ctx context.Context, invitation *models.Invitation) error
	GetByToken(ctx context.Context, token string) (*models.Invitation, error)
	ListByHouseholdID(ctx context.Context, householdID string) ([]*models.Invitation, error)
	// GetPending возвращает pending-приглашение для пары (household, email).
	GetPending(ctx context.Context, householdID, inviteeEmail string) (*models.Invitation, error)
	// UpdateStatus переводит приглашение в новый статус. Строки не удаляются:
	// таблица служит журналом аудита.
	UpdateStatus(ctx context.Context, id string, status models.InvitationStatus, acceptedAt *time.Time) error
	// ExpireOverdue помечает истёкшие pending-приглашения как expired.
	ExpireOverdue(ctx context.Context) (int64, error)
}

type postgresInvitationRepository struct {
	db *sql.DB
}

func NewPostgresInvitationRepository(db *sql.DB) InvitationRepository {
	return &postgresInvitationRepository{db: db}
}

const invitationColumns = `
	id, household_id, inviter_id, invitee_email, role, status,
	token, expires_at, accepted_at, created_at, updated_at`

func scanInvitation(row interface{ Scan(...any) error }) (*models.Invitation, error) {
	inv := &models.Invitation{}
	err := row.Scan(
		&inv.ID,
		&inv.HouseholdID,
		&inv.InviterID,
		&inv.InviteeEmail,
		&inv.Role,
		&inv.Status,
		&inv.Token,
		&inv.ExpiresAt,
		&inv.AcceptedAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *postgresInvitationRepository) Create(ctx context.Context, invitation *models.Invitation) error {
	query := `
		INSERT INTO invitations (household_id, inviter_id, invitee_email, role, status, token, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		invitation.HouseholdID,
		invitation.InviterID,
		invitation.InviteeEmail,
		invitation.Role,
		invitation.Status,
		invitation.Token,
		invitation.ExpiresAt,
	).Scan(&invitation.ID, &invitation.CreatedAt, &invitation.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				if pqErr.Constraint == "invitations_pending_household_email_key" {
					return ErrInvitationPendingConflict
				}
				return ErrInvitationTokenConflict
			case "23503": // foreign_key_violation
				return ErrInvitationInvalidFK
			}
		}
		return err
	}

	return nil
}

func (r *postgresInvitationRepository) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	query := `SELECT` + invitationColumns + ` FROM invitations WHERE token = $1`

	inv, err := scanInvitation(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}

	return inv, nil
}

func (r *postgresInvitationRepository) ListByHouseholdID(ctx context.Context, householdID string) ([]*models.Invitation, error) {
	query := `SELECT` + invitationColumns + `
		FROM invitations
		WHERE household_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invitations := make([]*models.Invitation, 0)
	for rows.Next() {
		inv, scanErr := scanInvitation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		invitations = append(invitations, inv)
	}

	return invitations, rows.Err()
}

func (r *postgresInvitationRepository) GetPending(ctx context.Context, householdID, inviteeEmail string) (*models.Invitation, error) {
	query := `SELECT` + invitationColumns + `
		FROM invitations
		WHERE household_id = $1 AND invitee_email = $2 AND status = 'pending'`

	inv, err := scanInvitation(r.db.QueryRowContext(ctx, query, householdID, inviteeEmail))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}

	return inv, nil
}

func (r *postgresInvitationRepository) UpdateStatus(ctx context.Context, id string, status models.InvitationStatus, acceptedAt *time.Time) error {
	query := `
		UPDATE invitations
		SET status = $1, accepted_at = $2, updated_at = now()
		WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, status, acceptedAt, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrInvitationNotFound)
}

func (r *postgresInvitationRepository) ExpireOverdue(ctx context.Context) (int64, error) {
	query := `
		UPDATE invitations
		SET status = 'expired', updated_at = now()
		WHERE status = 'pending' AND expires_at <= now()`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
