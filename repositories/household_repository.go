package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/snakr/snakr-api/models"
)

var ErrHouseholdNotFound = errors.New("household not found")

type HouseholdRepository interface {
	// Create вставляет домохозяйство и заполняет ID и таймстемпы.
	Create(ctx context.Context, household *models.Household) error
	GetByID(ctx context.Context, id string) (*models.Household, error)
	ListByUserID(ctx context.Context, userID string) ([]*models.Household, error)
	UpdateName(ctx context.Context, id, name string) (*models.Household, error)
	// Delete удаляет домохозяйство; участники и приглашения уходят каскадом.
	Delete(ctx context.Context, id string) error
}

type postgresHouseholdRepository struct {
	db *sql.DB
}

func NewPostgresHouseholdRepository(db *sql.DB) HouseholdRepository {
	return &postgresHouseholdRepository{db: db}
}

func (r *postgresHouseholdRepository) Create(ctx context.Context, household *models.Household) error {
	query := `
		INSERT INTO households (name)
		VALUES ($1)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query, household.Name).
		Scan(&household.ID, &household.CreatedAt, &household.UpdatedAt)
}

func (r *postgresHouseholdRepository) GetByID(ctx context.Context, id string) (*models.Household, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM households
		WHERE id = $1`

	household := &models.Household{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&household.ID,
		&household.Name,
		&household.CreatedAt,
		&household.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHouseholdNotFound
		}
		return nil, err
	}

	return household, nil
}

func (r *postgresHouseholdRepository) ListByUserID(ctx context.Context, userID string) ([]*models.Household, error) {
	query := `
		SELECT h.id, h.name, h.created_at, h.updated_at
		FROM households h
		JOIN household_members m ON m.household_id = h.id
		WHERE m.user_id = $1
		ORDER BY h.created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	households := make([]*models.Household, 0)
	for rows.Next() {
		var h models.Household
		if scanErr := rows.Scan(&h.ID, &h.Name, &h.CreatedAt, &h.UpdatedAt); scanErr != nil {
			return nil, scanErr
		}
		households = append(households, &h)
	}

	return households, rows.Err()
}

func (r *postgresHouseholdRepository) UpdateName(ctx context.Context, id, name string) (*models.Household, error) {
	query := `
		UPDATE households
		SET name = $1, updated_at = now()
		WHERE id = $2
		RETURNING id, name, created_at, updated_at`

	household := &models.Household{}
	err := r.db.QueryRowContext(ctx, query, name, id).Scan(
		&household.ID,
		&household.Name,
		&household.CreatedAt,
		&household.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHouseholdNotFound
		}
		return nil, err
	}

	return household, nil
}

func (r *postgresHouseholdRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM households WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrHouseholdNotFound)
}
