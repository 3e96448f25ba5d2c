package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/snakr/snakr-api/models"
	"github.com/snakr/snakr-api/repositories"
)

// AccessService отвечает на вопрос "состоит ли пользователь в домохозяйстве
// и достаточно ли его роли". household_id приходит из пути запроса и никак
// не связан с токеном, поэтому каждая мутирующая операция обязана звать
// Authorize сама, даже если выше по стеку проверка уже была.
type AccessService interface {
	// Authorize возвращает строку членства или ErrNotHouseholdMember /
	// ErrAdminRequired. required == "" означает "любая роль".
	Authorize(ctx context.Context, userID, householdID string, required models.Role) (*models.Member, error)
}

type accessService struct {
	memberRepo repositories.MemberRepository
}

func NewAccessService(memberRepo repositories.MemberRepository) AccessService {
	return &accessService{memberRepo: memberRepo}
}

func (s *accessService) Authorize(ctx context.Context, userID, householdID string, required models.Role) (*models.Member, error) {
	member, err := s.memberRepo.Get(ctx, householdID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return nil, ErrNotHouseholdMember
		}
		return nil, fmt.Errorf("failed to check membership for user %s in household %s: %w", userID, householdID, err)
	}

	if required == models.RoleAdmin && member.Role != models.RoleAdmin {
		return nil, ErrAdminRequired
	}

	return member, nil
}
