package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/snakr/snakr-api/models"
)

var (
	ErrMemberNotFound  = errors.New("household member not found")
	ErrMemberConflict  = errors.New("user is already a member of this household")
	ErrMemberInvalidFK = errors.New("member references an unknown household or user")
)

type MemberRepository interface {
	// Create вставляет строку членства и заполняет ID и JoinedAt.
	Create(ctx context.Context, member *models.Member) error
	// Get возвращает строку членства для пары (household, user).
	Get(ctx context.Context, householdID, userID string) (*models.Member, error)
	ListByHouseholdID(ctx context.Context, householdID string) ([]models.Member, error)
	UpdateRole(ctx context.Context, householdID, userID string, role models.Role) error
	Delete(ctx context.Context, householdID, userID string) error
	// CountAdmins нужен для защиты от удаления последнего администратора.
	CountAdmins(ctx context.Context, householdID string) (int, error)
}

type postgresMemberRepository struct {
	db *sql.DB
}

func NewPostgresMemberRepository(db *sql.DB) MemberRepository {
	return &postgresMemberRepository{db: db}
}

func (r *postgresMemberRepository) Create(ctx context.Context, member *models.Member) error {
	query := `
		INSERT INTO household_members (household_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, joined_at`

	err := r.db.QueryRowContext(ctx, query,
		member.HouseholdID,
		member.UserID,
		member.Role,
	).Scan(&member.ID, &member.JoinedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				return ErrMemberConflict
			case "23503": // foreign_key_violation
				return ErrMemberInvalidFK
			}
		}
		return err
	}

	return nil
}

func (r *postgresMemberRepository) Get(ctx context.Context, householdID, userID string) (*models.Member, error) {
	query := `
		SELECT id, household_id, user_id, role, joined_at
		FROM household_members
		WHERE household_id = $1 AND user_id = $2`

	member := &models.Member{}
	err := r.db.QueryRowContext(ctx, query, householdID, userID).Scan(
		&member.ID,
		&member.HouseholdID,
		&member.UserID,
		&member.Role,
		&member.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	return member, nil
}

func (r *postgresMemberRepository) ListByHouseholdID(ctx context.Context, householdID string) ([]models.Member, error) {
	query := `
		SELECT id, household_id, user_id, role, joined_at
		FROM household_members
		WHERE household_id = $1
		ORDER BY joined_at`

	rows, err := r.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]models.Member, 0)
	for rows.Next() {
		var m models.Member
		if scanErr := rows.Scan(&m.ID, &m.HouseholdID, &m.UserID, &m.Role, &m.JoinedAt); scanErr != nil {
			return nil, scanErr
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

func (r *postgresMemberRepository) UpdateRole(ctx context.Context, householdID, userID string, role models.Role) error {
	query := `
		UPDATE household_members
		SET role = $1
		WHERE household_id = $2 AND user_id = $3`

	result, err := r.db.ExecContext(ctx, query, role, householdID, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMemberNotFound)
}

func (r *postgresMemberRepository) Delete(ctx context.Context, householdID, userID string) error {
	query := `DELETE FROM household_members WHERE household_id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, householdID, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMemberNotFound)
}

func (r *postgresMemberRepository) CountAdmins(ctx context.Context, householdID string) (int, error) {
	query := `
		SELECT count(*)
		FROM household_members
		WHERE household_id = $1 AND role = 'admin'`

	var count int
	if err := r.db.QueryRowContext(ctx, query, householdID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
