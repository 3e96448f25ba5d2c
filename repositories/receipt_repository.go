package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/snakr/snakr-api/models"
)

var ErrReceiptNotFound = errors.New("receipt not found")

type ReceiptRepository interface {
	Create(ctx context.Context, receipt *models.Receipt) error
	GetByID(ctx context.Context, householdID, id string) (*models.Receipt, error)
	ListByHouseholdID(ctx context.Context, householdID string) ([]*models.Receipt, error)
}

type postgresReceiptRepository struct {
	db *sql.DB
}

func NewPostgresReceiptRepository(db *sql.DB) ReceiptRepository {
	return &postgresReceiptRepository{db: db}
}

func (r *postgresReceiptRepository) Create(ctx context.Context, receipt *models.Receipt) error {
	query := `
		INSERT INTO receipts (household_id, uploader_id, status, storage_key)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		receipt.HouseholdID,
		receipt.UploaderID,
		receipt.Status,
		receipt.StorageKey,
	).Scan(&receipt.ID, &receipt.CreatedAt)
}

func (r *postgresReceiptRepository) GetByID(ctx context.Context, householdID, id string) (*models.Receipt, error) {
	query := `
		SELECT id, household_id, uploader_id, status, storage_key, created_at
		FROM receipts
		WHERE household_id = $1 AND id = $2`

	receipt := &models.Receipt{}
	err := r.db.QueryRowContext(ctx, query, householdID, id).Scan(
		&receipt.ID,
		&receipt.HouseholdID,
		&receipt.UploaderID,
		&receipt.Status,
		&receipt.StorageKey,
		&receipt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}

	return receipt, nil
}

func (r *postgresReceiptRepository) ListByHouseholdID(ctx context.Context, householdID string) ([]*models.Receipt, error) {
	query := `
		SELECT id, household_id, uploader_id, status, storage_key, created_at
		FROM receipts
		WHERE household_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	receipts := make([]*models.Receipt, 0)
	for rows.Next() {
		var rec models.Receipt
		if scanErr := rows.Scan(&rec.ID, &rec.HouseholdID, &rec.UploaderID, &rec.Status, &rec.StorageKey, &rec.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		receipts = append(receipts, &rec)
	}

	return receipts, rows.Err()
}
