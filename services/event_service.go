package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/snakr/snakr-api/events"
	"github.com/snakr/snakr-api/models"
	"github.com/snakr/snakr-api/repositories"
)

// EventService ведёт журнал домохозяйства и транслирует записи подписчикам
// live-ленты. Запись в журнал best-effort относительно породившей операции:
// сбой журнала никогда не откатывает саму операцию.
type EventService interface {
	Record(ctx context.Context, householdID, userID, eventType string, payload any)
	ListHouseholdEvents(ctx context.Context, householdID, userID string, limit int) ([]*models.Event, error)
}

type eventService struct {
	eventRepo repositories.EventRepository
	access    AccessService
	hub       *events.Hub
	logger    *slog.Logger
}

func NewEventService(
	eventRepo repositories.EventRepository,
	access AccessService,
	hub *events.Hub,
	logger *slog.Logger,
) EventService {
	return &eventService{
		eventRepo: eventRepo,
		access:    access,
		hub:       hub,
		logger:    logger,
	}
}

func (s *eventService) Record(ctx context.Context, householdID, userID, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal event payload",
			slog.String("household_id", householdID),
			slog.String("type", eventType),
			slog.Any("error", err))
		raw = []byte(`{}`)
	}

	event := &models.Event{
		HouseholdID: householdID,
		UserID:      userID,
		Type:        eventType,
		Payload:     raw,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		s.logger.Error("failed to append event to journal",
			slog.String("household_id", householdID),
			slog.String("type", eventType),
			slog.Any("error", err))
		return
	}

	if s.hub != nil {
		s.hub.BroadcastToHousehold(householdID, events.Message{
			Type:        eventType,
			HouseholdID: householdID,
			Payload:     json.RawMessage(raw),
		})
	}
}

func (s *eventService) ListHouseholdEvents(ctx context.Context, householdID, userID string, limit int) ([]*models.Event, error) {
	if _, err := s.access.Authorize(ctx, userID, householdID, ""); err != nil {
		return nil, err
	}

	list, err := s.eventRepo.ListByHouseholdID(ctx, householdID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for household %s: %w", householdID, err)
	}
	return list, nil
}
