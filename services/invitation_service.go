package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/snakr/snakr-api/models"
	"github.com/snakr/snakr-api/repositories"
)

const (
	inviteTokenBytes   = 32                 // энтропия токена до URL-safe кодирования
	invitationDuration = 7 * 24 * time.Hour // срок действия приглашения
	tokenMaxAttempts   = 3                  // попытки при конфликте уникальности токена
)

// InviteNotifier доставляет приглашение получателю. Ошибка доставки никогда
// не откатывает создание приглашения: ссылку можно передать вручную.
type InviteNotifier interface {
	SendInvitationEmail(email, householdName, inviteLink string, expiresAt time.Time) error
}

// InvitationResult возвращается из CreateInvitation.
type InvitationResult struct {
	InvitationID  string    `json:"invitation_id"`
	InviteeEmail  string    `json:"invitee_email"`
	HouseholdName string    `json:"household_name"`
	ExpiresAt     time.Time `json:"expires_at"`
	InviteLink    string    `json:"invite_link"`
}

// AcceptResult возвращается из AcceptInvitation.
type AcceptResult struct {
	HouseholdID   string      `json:"household_id"`
	HouseholdName string      `json:"household_name"`
	Role          models.Role `json:"role"`
}

type InvitationService interface {
	CreateInvitation(ctx context.Context, householdID, inviterID, inviteeEmail string, role models.Role) (*InvitationResult, error)
	GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error)
	AcceptInvitation(ctx context.Context, token, userID string) (*AcceptResult, error)
	ListHouseholdInvitations(ctx context.Context, householdID, userID string) ([]*models.Invitation, error)
}

type invitationService struct {
	invitationRepo repositories.InvitationRepository
	householdRepo  repositories.HouseholdRepository
	memberRepo     repositories.MemberRepository
	userRepo       repositories.UserRepository
	access         AccessService
	notifier       InviteNotifier
	webAppURL      string
	logger         *slog.Logger
	now            func() time.Time
}

func NewInvitationService(
	invitationRepo repositories.InvitationRepository,
	householdRepo repositories.HouseholdRepository,
	memberRepo repositories.MemberRepository,
	userRepo repositories.UserRepository,
	access AccessService,
	notifier InviteNotifier,
	webAppURL string,
	logger *slog.Logger,
) InvitationService {
	return &invitationService{
		invitationRepo: invitationRepo,
		householdRepo:  householdRepo,
		memberRepo:     memberRepo,
		userRepo:       userRepo,
		access:         access,
		notifier:       notifier,
		webAppURL:      webAppURL,
		logger:         logger,
		now:            time.Now,
	}
}

func generateInviteToken() (string, error) {
	buf := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *invitationService) CreateInvitation(ctx context.Context, householdID, inviterID, inviteeEmail string, role models.Role) (*InvitationResult, error) {
	if inviteeEmail == "" {
		return nil, ErrEmailRequired
	}
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	// Только администратор может приглашать.
	if _, err := s.access.Authorize(ctx, inviterID, householdID, models.RoleAdmin); err != nil {
		return nil, err
	}

	household, err := s.householdRepo.GetByID(ctx, householdID)
	if err != nil {
		if errors.Is(err, repositories.ErrHouseholdNotFound) {
			return nil, ErrHouseholdNotFound
		}
		return nil, fmt.Errorf("failed to get household %s: %w", householdID, err)
	}

	// Приглашать существующего участника бессмысленно. Сбой справочника
	// пользователей проверку не блокирует: дубль всё равно отсечётся
	// на вставке членства при принятии.
	if invitee, lookupErr := s.userRepo.GetByEmail(ctx, inviteeEmail); lookupErr == nil {
		if _, memberErr := s.memberRepo.Get(ctx, householdID, invitee.ID); memberErr == nil {
			return nil, ErrAlreadyMember
		}
	} else if !errors.Is(lookupErr, repositories.ErrUserNotFound) {
		s.logger.Warn("could not check existing membership for invitee",
			slog.String("household_id", householdID),
			slog.Any("error", lookupErr))
	}

	now := s.now()
	if pending, pendErr := s.invitationRepo.GetPending(ctx, householdID, inviteeEmail); pendErr == nil {
		if !pending.Expired(now) {
			return nil, ErrInvitationPendingExists
		}
		// Просроченный pending корректируем лениво, чтобы частичный
		// уникальный индекс пропустил новое приглашение.
		if expErr := s.invitationRepo.UpdateStatus(ctx, pending.ID, models.InvitationExpired, nil); expErr != nil {
			s.logger.Warn("failed to expire stale invitation",
				slog.String("invitation_id", pending.ID),
				slog.Any("error", expErr))
		}
	} else if !errors.Is(pendErr, repositories.ErrInvitationNotFound) {
		s.logger.Warn("could not check for existing pending invitation",
			slog.String("household_id", householdID),
			slog.Any("error", pendErr))
	}

	invitation := &models.Invitation{
		HouseholdID:  householdID,
		InviterID:    inviterID,
		InviteeEmail: inviteeEmail,
		Role:         role,
		Status:       models.InvitationPending,
		ExpiresAt:    now.Add(invitationDuration),
	}

	for attempt := 0; attempt < tokenMaxAttempts; attempt++ {
		token, tokenErr := generateInviteToken()
		if tokenErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrTokenGeneration, tokenErr)
		}
		invitation.Token = token

		err = s.invitationRepo.Create(ctx, invitation)
		if err == nil {
			break
		}
		if errors.Is(err, repositories.ErrInvitationTokenConflict) {
			continue // крайне маловероятно при 32 байтах, но повторяем
		}
		if errors.Is(err, repositories.ErrInvitationPendingConflict) {
			// Конкурентный дубль поймал уникальный индекс.
			return nil, ErrInvitationPendingExists
		}
		if errors.Is(err, repositories.ErrInvitationInvalidFK) {
			return nil, ErrHouseholdNotFound
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w after %d attempts", ErrTokenGeneration, tokenMaxAttempts)
	}

	inviteLink := fmt.Sprintf("%s/invitations/accept?token=%s", s.webAppURL, invitation.Token)

	// Шаг уведомления не влияет на результат операции.
	if notifyErr := s.notifier.SendInvitationEmail(inviteeEmail, household.Name, inviteLink, invitation.ExpiresAt); notifyErr != nil {
		s.logger.Warn("failed to send invitation email",
			slog.String("invitation_id", invitation.ID),
			slog.Any("error", notifyErr))
	}

	s.logger.Info("invitation created",
		slog.String("invitation_id", invitation.ID),
		slog.String("household_id", householdID))

	return &InvitationResult{
		InvitationID:  invitation.ID,
		InviteeEmail:  inviteeEmail,
		HouseholdName: household.Name,
		ExpiresAt:     invitation.ExpiresAt,
		InviteLink:    inviteLink,
	}, nil
}

// GetInvitationByToken — чтение для предпросмотра. Статус не корректируется,
// даже если срок вышел: ленивая коррекция выполняется только в Accept.
func (s *invitationService) GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error) {
	invitation, err := s.invitationRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrInvitationNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation by token: %w", err)
	}
	return invitation, nil
}

func (s *invitationService) AcceptInvitation(ctx context.Context, token, userID string) (*AcceptResult, error) {
	invitation, err := s.invitationRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrInvitationNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation by token: %w", err)
	}

	if invitation.Status != models.InvitationPending {
		return nil, fmt.Errorf("%w: already %s", ErrInvitationNotPending, invitation.Status)
	}

	now := s.now()
	if invitation.Expired(now) {
		// Ленивая коррекция: сбой записи не мешает отклонить принятие.
		if expErr := s.invitationRepo.UpdateStatus(ctx, invitation.ID, models.InvitationExpired, nil); expErr != nil {
			s.logger.Warn("failed to mark invitation as expired",
				slog.String("invitation_id", invitation.ID),
				slog.Any("error", expErr))
		}
		return nil, ErrInvitationExpired
	}

	// Сверяем email принимающего с адресатом. Если справочник недоступен,
	// пропускаем проверку: неугадываемость токена — первичное доказательство.
	if user, userErr := s.userRepo.GetByID(ctx, userID); userErr == nil {
		if user.Email != invitation.InviteeEmail {
			return nil, ErrInvitationEmailMismatch
		}
	} else {
		s.logger.Warn("could not verify accepting user's email, trusting token",
			slog.String("invitation_id", invitation.ID),
			slog.Any("error", userErr))
	}

	if _, memberErr := s.memberRepo.Get(ctx, invitation.HouseholdID, userID); memberErr == nil {
		// Пользователь уже состоит: приглашение закрываем как принятое,
		// чтобы оно не висело pending, но операцию отклоняем.
		s.markAccepted(ctx, invitation.ID, now)
		return nil, ErrAlreadyMember
	} else if !errors.Is(memberErr, repositories.ErrMemberNotFound) {
		s.logger.Warn("could not check existing membership",
			slog.String("invitation_id", invitation.ID),
			slog.Any("error", memberErr))
	}

	member := &models.Member{
		HouseholdID: invitation.HouseholdID,
		UserID:      userID,
		Role:        invitation.Role,
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		if errors.Is(err, repositories.ErrMemberConflict) {
			// Гонка двух одновременных принятий: членство уже есть.
			s.markAccepted(ctx, invitation.ID, now)
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("failed to add member to household %s: %w", invitation.HouseholdID, err)
	}

	// Членство создано — это первичный эффект. Сбой записи статуса
	// логируется, но операцию не проваливает.
	s.markAccepted(ctx, invitation.ID, now)

	householdName := ""
	if household, hhErr := s.householdRepo.GetByID(ctx, invitation.HouseholdID); hhErr == nil {
		householdName = household.Name
	} else {
		s.logger.Warn("could not fetch household name after accept",
			slog.String("household_id", invitation.HouseholdID),
			slog.Any("error", hhErr))
	}

	s.logger.Info("invitation accepted",
		slog.String("invitation_id", invitation.ID),
		slog.String("household_id", invitation.HouseholdID))

	return &AcceptResult{
		HouseholdID:   invitation.HouseholdID,
		HouseholdName: householdName,
		Role:          invitation.Role,
	}, nil
}

func (s *invitationService) markAccepted(ctx context.Context, invitationID string, now time.Time) {
	if err := s.invitationRepo.UpdateStatus(ctx, invitationID, models.InvitationAccepted, &now); err != nil {
		s.logger.Warn("failed to mark invitation as accepted",
			slog.String("invitation_id", invitationID),
			slog.Any("error", err))
	}
}

func (s *invitationService) ListHouseholdInvitations(ctx context.Context, householdID, userID string) ([]*models.Invitation, error) {
	if _, err := s.access.Authorize(ctx, userID, householdID, ""); err != nil {
		return nil, err
	}

	invitations, err := s.invitationRepo.ListByHouseholdID(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations for household %s: %w", householdID, err)
	}
	return invitations, nil
}
