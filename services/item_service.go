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

const itemNameMaxLen = 255

// Быстрые действия над предметом. Каждое переводит состояние запаса без
// явного указания нового значения клиентом.
const (
	QuickActionUsed      = "used"
	QuickActionRestocked = "restocked"
	QuickActionRanOut    = "ran_out"
)

// ItemInput — поля, принимаемые при создании и обновлении предмета.
type ItemInput struct {
	Name     string
	Category string
	Location string
	State    models.ItemState
}

// RestockList группирует предметы на пополнение по срочности.
type RestockList struct {
	Out       []*models.Item `json:"out"`
	AlmostOut []*models.Item `json:"almost_out"`
	Low       []*models.Item `json:"low"`
}

type ItemService interface {
	CreateItem(ctx context.Context, householdID, userID string, input ItemInput) (*models.Item, error)
	GetItemByID(ctx context.Context, householdID, itemID, userID string) (*models.Item, error)
	ListItems(ctx context.Context, householdID, userID string, filter models.ItemFilter) ([]*models.Item, error)
	UpdateItem(ctx context.Context, householdID, itemID, userID string, input ItemInput) (*models.Item, error)
	DeleteItem(ctx context.Context, householdID, itemID, userID string) error
	SearchItems(ctx context.Context, householdID, userID, query string) ([]*models.Item, error)
	ApplyQuickAction(ctx context.Context, householdID, itemID, userID, action string) (*models.Item, error)
	GetRestockList(ctx context.Context, householdID, userID string) (*RestockList, error)
}

type itemService struct {
	itemRepo repositories.ItemRepository
	access   AccessService
	events   EventService
	logger   *slog.Logger
}

func NewItemService(
	itemRepo repositories.ItemRepository,
	access AccessService,
	events EventService,
	logger *slog.Logger,
) ItemService {
	return &itemService{
		itemRepo: itemRepo,
		access:   access,
		events:   events,
		logger:   logger,
	}
}

func validateItemInput(input *ItemInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return ErrNameRequired
	}
	if len(input.Name) > itemNameMaxLen {
		return ErrNameTooLong
	}
	if input.State == "" {
		input.State = models.StateOK
	}
	if !input.State.Valid() {
		return ErrInvalidItemState
	}
	return nil
}

func (s *itemService) CreateItem(ctx context.Context, householdID, userID string, input ItemInput) (*models.Item, error) {
	if _, err := s.access.Authorize(ctx, userID, householdID, ""); err != nil {
		return nil, err
	}
	if err := validateItemInput(&input); err != nil {
		return nil, err
	}

	item := &models.Item{
		HouseholdID: householdID,
		Name:        input.Name,
		Category:    input.Category,
		Location:    input.Location,
		State:       input.State,
	}
	if err := s.itemRepo.Create(ctx, item); err != nil {
		if errors.Is(err, repositories.ErrItemInvalidFK) {
			return nil, ErrHouseholdNotFound
		}
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	s.events.Record(ctx, householdID, userID, models.EventItemCreated, map[string]any{
		"item_id": item.ID,
		"name":    item.Name,
		"state":   item.State,
	})

	return item, nil
}

func (s *itemService) GetItemByID(ctx context.Context, householdID, itemID, userID string) (*models.Item, error) {
	if _, err := s.access.Authorize(ctx, userID, householdID, ""); err != nil {
		return nil, err
	}

	item, err := s.itemRepo.GetByID(ctx, householdID, itemID)
	if err != nil {
		if errors.Is(err, repositories.ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item %s: %w", itemID, err)
	}
	return item, nil
}

func (s *itemService) ListItems(ctx context.Context, householdID, userID string, filter models.ItemFilter) ([]*models.Item, error) {
	if _, err := s.access.Authorize(ctx, userID, householdID, ""); err != nil {
		return nil, err
	}
	if filter.State != "" && !filter.State.Valid() {
		return nil, ErrInvalidItemState
	}

	items, err := s.itemRepo.ListByHouseholdID(ctx, householdID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list items for household %s: %w", householdID, err)
	}
	return items, nil
}

func (s *itemService) UpdateItem(ctx context.Context, householdID, itemID, userID string, input ItemInput) (*models.Item, error) {
	if _, err := s.access.Authorize(ctx, userID, householdID, ""); err != nil {
		return nil, err
	}
	if err := validateItemInput(&input); err != nil {
		return nil, err
	}

	item, err := s.itemRepo.GetByID(ctx, householdID, itemID)
	if err != nil {
		if errors.Is(err, repositories.ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item %s: %w", itemID, err)
	}

	previousState := item.State
	item.Name = input.Name
	item.Category = input.Category
	item.Location = input.Location
	item.State = input.State

	if err := s.itemRepo.Update(ctx, item); err != nil {
		if errors.Is(err, repositories.ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to update item %s: %w", itemID, err)
	}

	eventType := models.EventItemUpdated
	payload := map[string]any{
		"item_id": item.ID,
		"name":    item.Name,
		"state":   item.State,
	}
	if previousState != item.State {
		eventType = models.EventItemStateChange
		payload["previous_state"] = previousState
	}
	s.events.Record(ctx, householdID, userID, eventType, payload)

	return item, nil
}

func (s *itemService) DeleteItem(ctx context.Context, householdID, itemID, userID string) error {
	if _, err := s.access.Authorize(ctx, userID, householdID, ""); err != nil {
		return err
	}

	if err := s.itemRepo.Delete(ctx, householdID, itemID); err != nil {
		if errors.Is(err, repositories.ErrItemNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("failed to delete item %s: %w", itemID, err)
	}

	s.events.Record(ctx, householdID, userID, models.EventItemDeleted, map[string]any{
		"item_id": itemID,
	})

	return nil
}

func (s *itemService) SearchItems(ctx context.Context, householdID, userID, query string) ([]*models.Item, error) {
	if _, err := s.access.Authorize(ctx, userID, householdID, ""); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []*models.Item{}, nil
	}

	items, err := s.itemRepo.SearchByName(ctx, householdID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search items in household %s: %w", householdID, err)
	}
	return items, nil
}

// ApplyQuickAction переводит состояние предмета одним касанием:
// used — на шаг ближе к "out", restocked — в "plenty", ran_out — в "out".
func (s *itemService) ApplyQuickAction(ctx context.Context, householdID, itemID, userID, action string) (*models.Item, error) {
	if _, err := s.access.Authorize(ctx, userID, householdID, ""); err != nil {
		return nil, err
	}

	item, err := s.itemRepo.GetByID(ctx, householdID, itemID)
	if err != nil {
		if errors.Is(err, repositories.ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item %s: %w", itemID, err)
	}

	previousState := item.State
	switch action {
	case QuickActionUsed:
		item.State = item.State.Next()
	case QuickActionRestocked:
		item.State = models.StatePlenty
	case QuickActionRanOut:
		item.State = models.StateOut
	default:
		return nil, ErrInvalidQuickAction
	}

	// Действие без эффекта (used на "out" и т.п.) не пишет ни строку,
	// ни событие.
	if item.State == previousState {
		return item, nil
	}

	if err := s.itemRepo.Update(ctx, item); err != nil {
		if errors.Is(err, repositories.ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to update item %s: %w", itemID, err)
	}

	s.events.Record(ctx, householdID, userID, models.EventItemStateChange, map[string]any{
		"item_id":        item.ID,
		"name":           item.Name,
		"state":          item.State,
		"previous_state": previousState,
		"action":         action,
	})

	return item, nil
}

func (s *itemService) GetRestockList(ctx context.Context, householdID, userID string) (*RestockList, error) {
	if _, err := s.access.Authorize(ctx, userID, householdID, ""); err != nil {
		return nil, err
	}

	items, err := s.itemRepo.ListNeedingRestock(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to build restock list for household %s: %w", householdID, err)
	}

	list := &RestockList{
		Out:       make([]*models.Item, 0),
		AlmostOut: make([]*models.Item, 0),
		Low:       make([]*models.Item, 0),
	}
	for _, item := range items {
		switch item.State {
		case models.StateOut:
			list.Out = append(list.Out, item)
		case models.StateAlmostOut:
			list.AlmostOut = append(list.AlmostOut, item)
		case models.StateLow:
			list.Low = append(list.Low, item)
		}
	}
	return list, nil
}
