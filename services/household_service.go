package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/snakr/snakr-api/models"
	"github.com/snakr/snakr-api/repositories"
)

const householdNameMaxLen = 255

type HouseholdService interface {
	CreateHousehold(ctx context.Context, name, userID string) (*models.Household, error)
	GetHouseholdByID(ctx context.Context, householdID, userID string) (*models.Household, error)
	ListUserHouseholds(ctx context.Context, userID string) ([]*models.Household, error)
	UpdateHousehold(ctx context.Context, householdID, name, userID string) (*models.Household, error)
	DeleteHousehold(ctx context.Context, householdID, userID string) error
	UpdateMemberRole(ctx context.Context, householdID, actorID, targetUserID string, role models.Role) error
	RemoveMember(ctx context.Context, householdID, actorID, targetUserID string) error
}

type householdService struct {
	householdRepo repositories.HouseholdRepository
	memberRepo    repositories.MemberRepository
	access        AccessService
	logger        *slog.Logger
}

func NewHouseholdService(
	householdRepo repositories.HouseholdRepository,
	memberRepo repositories.MemberRepository,
	access AccessService,
	logger *slog.Logger,
) HouseholdService {
	return &householdService{
		householdRepo: householdRepo,
		memberRepo:    memberRepo,
		access:        access,
		logger:        logger,
	}
}

func validateHouseholdName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrNameRequired
	}
	if len(trimmed) > householdNameMaxLen {
		return "", ErrNameTooLong
	}
	return trimmed, nil
}

func (s *householdService) CreateHousehold(ctx context.Context, name, userID string) (*models.Household, error) {
	trimmed, err := validateHouseholdName(name)
	if err != nil {
		return nil, err
	}

	household := &models.Household{Name: trimmed}
	if err := s.householdRepo.Create(ctx, household); err != nil {
		return nil, fmt.Errorf("failed to create household: %w", err)
	}

	member := &models.Member{
		HouseholdID: household.ID,
		UserID:      userID,
		Role:        models.RoleAdmin,
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		// Домохозяйство без администратора — невалидное состояние,
		// откатываем компенсирующим удалением.
		if delErr := s.householdRepo.Delete(ctx, household.ID); delErr != nil {
			s.logger.Error("failed to roll back household after member insert failure",
				slog.String("household_id", household.ID),
				slog.Any("error", delErr))
		}
		return nil, fmt.Errorf("failed to add creator as household admin: %w", err)
	}

	s.logger.Info("household created",
		slog.String("household_id", household.ID),
		slog.String("user_id", userID))

	return household, nil
}

func (s *householdService) GetHouseholdByID(ctx context.Context, householdID, userID string) (*models.Household, error) {
	if _, err := s.access.Authorize(ctx, userID, householdID, ""); err != nil {
		return nil, err
	}

	household, err := s.householdRepo.GetByID(ctx, householdID)
	if err != nil {
		if errors.Is(err, repositories.ErrHouseholdNotFound) {
			return nil, ErrHouseholdNotFound
		}
		return nil, fmt.Errorf("failed to get household %s: %w", householdID, err)
	}

	members, err := s.memberRepo.ListByHouseholdID(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of household %s: %w", householdID, err)
	}

	household.Members = members
	household.MemberCount = len(members)
	for _, m := range members {
		if m.Role == models.RoleAdmin {
			household.AdminCount++
		}
	}

	return household, nil
}

func (s *householdService) ListUserHouseholds(ctx context.Context, userID string) ([]*models.Household, error) {
	households, err := s.householdRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list households for user %s: %w", userID, err)
	}
	return households, nil
}

func (s *householdService) UpdateHousehold(ctx context.Context, householdID, name, userID string) (*models.Household, error) {
	trimmed, err := validateHouseholdName(name)
	if err != nil {
		return nil, err
	}

	if _, err := s.access.Authorize(ctx, userID, householdID, models.RoleAdmin); err != nil {
		return nil, err
	}

	household, err := s.householdRepo.UpdateName(ctx, householdID, trimmed)
	if err != nil {
		if errors.Is(err, repositories.ErrHouseholdNotFound) {
			return nil, ErrHouseholdNotFound
		}
		return nil, fmt.Errorf("failed to update household %s: %w", householdID, err)
	}

	return household, nil
}

func (s *householdService) DeleteHousehold(ctx context.Context, householdID, userID string) error {
	if _, err := s.access.Authorize(ctx, userID, householdID, models.RoleAdmin); err != nil {
		return err
	}

	if err := s.householdRepo.Delete(ctx, householdID); err != nil {
		if errors.Is(err, repositories.ErrHouseholdNotFound) {
			return ErrHouseholdNotFound
		}
		return fmt.Errorf("failed to delete household %s: %w", householdID, err)
	}

	s.logger.Info("household deleted",
		slog.String("household_id", householdID),
		slog.String("user_id", userID))

	return nil
}

func (s *householdService) UpdateMemberRole(ctx context.Context, householdID, actorID, targetUserID string, role models.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	if _, err := s.access.Authorize(ctx, actorID, householdID, models.RoleAdmin); err != nil {
		return err
	}

	target, err := s.memberRepo.Get(ctx, householdID, targetUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to get member: %w", err)
	}

	// Понижение последнего администратора оставило бы домохозяйство
	// без управления.
	if target.Role == models.RoleAdmin && role != models.RoleAdmin {
		admins, countErr := s.memberRepo.CountAdmins(ctx, householdID)
		if countErr != nil {
			return fmt.Errorf("failed to count admins: %w", countErr)
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}

	if err := s.memberRepo.UpdateRole(ctx, householdID, targetUserID, role); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to update member role: %w", err)
	}

	return nil
}

func (s *householdService) RemoveMember(ctx context.Context, householdID, actorID, targetUserID string) error {
	if _, err := s.access.Authorize(ctx, actorID, householdID, models.RoleAdmin); err != nil {
		return err
	}

	target, err := s.memberRepo.Get(ctx, householdID, targetUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to get member: %w", err)
	}

	if target.Role == models.RoleAdmin {
		admins, countErr := s.memberRepo.CountAdmins(ctx, householdID)
		if countErr != nil {
			return fmt.Errorf("failed to count admins: %w", countErr)
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}

	if err := s.memberRepo.Delete(ctx, householdID, targetUserID); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return nil
}
