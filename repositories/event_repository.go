package repositories

import (
	"context"
	"database/sql"

	"github.com/snakr/snakr-api/models"
)

// EventRepository — журнал только на добавление; Update/Delete нет намеренно.
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	ListByHouseholdID(ctx context.Context, householdID string, limit int) ([]*models.Event, error)
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (household_id, user_id, type, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	payload := event.Payload
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}

	return r.db.QueryRowContext(ctx, query,
		event.HouseholdID,
		event.UserID,
		event.Type,
		payload,
	).Scan(&event.ID, &event.CreatedAt)
}

func (r *postgresEventRepository) ListByHouseholdID(ctx context.Context, householdID string, limit int) ([]*models.Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, household_id, user_id, type, payload, created_at
		FROM events
		WHERE household_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, householdID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*models.Event, 0)
	for rows.Next() {
		var e models.Event
		if scanErr := rows.Scan(&e.ID, &e.HouseholdID, &e.UserID, &e.Type, &e.Payload, &e.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		events = append(events, &e)
	}

	return events, rows.Err()
}
