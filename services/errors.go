package services

import "errors"

// Общие ошибки сервисного слоя. Обработчики HTTP мапят каждую на фиксированный
// статус и пару "сообщение / следующий шаг"; сюда попадает только то, что
// является бизнес-правилом, а не деталью хранилища.
var (
	// Аутентификация и авторизация.
	ErrNotHouseholdMember = errors.New("you don't have access to this household")
	// ErrAdminRequired отличим от ErrNotHouseholdMember в логах: доступ есть,
	// но роли не хватает. HTTP-статус у обоих 403.
	ErrAdminRequired = errors.New("admin role required for this action")

	// Ресурсы.
	ErrHouseholdNotFound  = errors.New("household not found")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrItemNotFound       = errors.New("item not found")
	ErrReceiptNotFound    = errors.New("receipt not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrMemberNotFound     = errors.New("household member not found")

	// Валидация и бизнес-правила.
	ErrNameRequired            = errors.New("name cannot be blank")
	ErrNameTooLong             = errors.New("name must be at most 255 characters")
	ErrEmailRequired           = errors.New("email is required")
	ErrInvalidRole             = errors.New("role must be admin or member")
	ErrInvalidItemState        = errors.New("unknown item state")
	ErrInvalidQuickAction      = errors.New("unknown quick action")
	ErrAlreadyMember           = errors.New("already a member of this household")
	ErrInvitationPendingExists = errors.New("a pending invitation already exists for this email")
	ErrInvitationNotPending    = errors.New("invitation is not pending")
	ErrInvitationExpired       = errors.New("invitation has expired")
	ErrInvitationEmailMismatch = errors.New("invitation was sent to a different email address")
	ErrLastAdmin               = errors.New("household must keep at least one admin")

	// Инфраструктура.
	ErrTokenGeneration = errors.New("failed to generate unique invitation token")
	ErrUploadsDisabled = errors.New("receipt uploads are not configured")
)
