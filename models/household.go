package models

import "time"

type Household struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Members     []Member `json:"members,omitempty" db:"-"`
	MemberCount int      `json:"member_count,omitempty" db:"-"`
	AdminCount  int      `json:"admin_count,omitempty" db:"-"`
}

type Member struct {
	ID          string    `json:"id" db:"id"`
	HouseholdID string    `json:"household_id" db:"household_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Role        Role      `json:"role" db:"role"`
	JoinedAt    time.Time `json:"joined_at" db:"joined_at"`
}

// Role — роль участника внутри домохозяйства.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}
