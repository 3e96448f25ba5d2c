package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/snakr/snakr-api/models"
)

var (
	ErrItemNotFound  = errors.New("item not found")
	ErrItemInvalidFK = errors.New("item references an unknown household")
)

type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	// GetByID возвращает предмет только внутри указанного домохозяйства,
	// чтобы id из одного тенанта не читался из другого.
	GetByID(ctx context.Context, householdID, id string) (*models.Item, error)
	ListByHouseholdID(ctx context.Context, householdID string, filter models.ItemFilter) ([]*models.Item, error)
	Update(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, householdID, id string) error
	SearchByName(ctx context.Context, householdID, query string) ([]*models.Item, error)
	ListNeedingRestock(ctx context.Context, householdID string) ([]*models.Item, error)
}

type postgresItemRepository struct {
	db *sql.DB
}

func NewPostgresItemRepository(db *sql.DB) ItemRepository {
	return &postgresItemRepository{db: db}
}

const itemColumns = `id, household_id, name, category, location, state, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (*models.Item, error) {
	item := &models.Item{}
	err := row.Scan(
		&item.ID,
		&item.HouseholdID,
		&item.Name,
		&item.Category,
		&item.Location,
		&item.State,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *postgresItemRepository) Create(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (household_id, name, category, location, state)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		item.HouseholdID,
		item.Name,
		item.Category,
		item.Location,
		item.State,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrItemInvalidFK
		}
		return err
	}

	return nil
}

func (r *postgresItemRepository) GetByID(ctx context.Context, householdID, id string) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE household_id = $1 AND id = $2`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, householdID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	return item, nil
}

func (r *postgresItemRepository) ListByHouseholdID(ctx context.Context, householdID string, filter models.ItemFilter) ([]*models.Item, error) {
	// Пустые значения фильтра отключают соответствующее условие.
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE household_id = $1
		  AND ($2 = '' OR category = $2)
		  AND ($3 = '' OR location = $3)
		  AND ($4 = '' OR state = $4)
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, householdID, filter.Category, filter.Location, string(filter.State))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectItems(rows)
}

func (r *postgresItemRepository) Update(ctx context.Context, item *models.Item) error {
	query := `
		UPDATE items
		SET name = $1, category = $2, location = $3, state = $4, updated_at = now()
		WHERE household_id = $5 AND id = $6
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		item.Name,
		item.Category,
		item.Location,
		item.State,
		item.HouseholdID,
		item.ID,
	).Scan(&item.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return ErrItemNotFound
	}
	return err
}

func (r *postgresItemRepository) Delete(ctx context.Context, householdID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE household_id = $1 AND id = $2`, householdID, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrItemNotFound)
}

func (r *postgresItemRepository) SearchByName(ctx context.Context, householdID, search string) ([]*models.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE household_id = $1 AND name ILIKE '%' || $2 || '%'
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, householdID, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectItems(rows)
}

func (r *postgresItemRepository) ListNeedingRestock(ctx context.Context, householdID string) ([]*models.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE household_id = $1 AND state IN ('low', 'almost_out', 'out')
		ORDER BY array_position(ARRAY['out', 'almost_out', 'low'], state), name`

	rows, err := r.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectItems(rows)
}

func collectItems(rows *sql.Rows) ([]*models.Item, error) {
	items := make([]*models.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
