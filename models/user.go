package models

import "time"

// User — зеркальная запись справочника пользователей auth-провайдера.
// Пароли и сессии живут у провайдера, здесь только идентичность.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
