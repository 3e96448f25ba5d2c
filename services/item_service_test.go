package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/snakr/snakr-api/models"
	"github.com/snakr/snakr-api/repositories"
)

type fakeItemRepo struct {
	mu     sync.Mutex
	items  map[string]*models.Item
	nextID int
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: map[string]*models.Item{}}
}

func (f *fakeItemRepo) add(householdID, name string, state models.ItemState) *models.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	item := &models.Item{
		ID:          fmt.Sprintf("item-%d", f.nextID),
		HouseholdID: householdID,
		Name:        name,
		State:       state,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.items[item.ID] = item
	copied := *item
	return &copied
}

func (f *fakeItemRepo) Create(ctx context.Context, item *models.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	item.ID = fmt.Sprintf("item-%d", f.nextID)
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	stored := *item
	f.items[item.ID] = &stored
	return nil
}

func (f *fakeItemRepo) GetByID(ctx context.Context, householdID, id string) (*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok || item.HouseholdID != householdID {
		return nil, repositories.ErrItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (f *fakeItemRepo) ListByHouseholdID(ctx context.Context, householdID string, filter models.ItemFilter) ([]*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Item, 0)
	for _, item := range f.items {
		if item.HouseholdID != householdID {
			continue
		}
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		if filter.Location != "" && item.Location != filter.Location {
			continue
		}
		if filter.State != "" && item.State != filter.State {
			continue
		}
		copied := *item
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeItemRepo) Update(ctx context.Context, item *models.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.items[item.ID]
	if !ok || stored.HouseholdID != item.HouseholdID {
		return repositories.ErrItemNotFound
	}
	item.UpdatedAt = time.Now()
	copied := *item
	f.items[item.ID] = &copied
	return nil
}

func (f *fakeItemRepo) Delete(ctx context.Context, householdID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok || item.HouseholdID != householdID {
		return repositories.ErrItemNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeItemRepo) SearchByName(ctx context.Context, householdID, query string) ([]*models.Item, error) {
	return f.ListByHouseholdID(ctx, householdID, models.ItemFilter{})
}

func (f *fakeItemRepo) ListNeedingRestock(ctx context.Context, householdID string) ([]*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Item, 0)
	for _, item := range f.items {
		if item.HouseholdID == householdID && item.State.NeedsRestock() {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out, nil
}

// recordedEvent фиксирует вызовы Record без хранилища и hub'а.
type recordedEvent struct {
	HouseholdID string
	UserID      string
	Type        string
}

type fakeEventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEventRecorder) Record(ctx context.Context, householdID, userID, eventType string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{HouseholdID: householdID, UserID: userID, Type: eventType})
}

func (f *fakeEventRecorder) ListHouseholdEvents(ctx context.Context, householdID, userID string, limit int) ([]*models.Event, error) {
	return nil, nil
}

func (f *fakeEventRecorder) last() *recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return nil
	}
	e := f.events[len(f.events)-1]
	return &e
}

type itemFixture struct {
	service  ItemService
	itemRepo *fakeItemRepo
	events   *fakeEventRecorder
}

func newItemFixture() *itemFixture {
	itemRepo := newFakeItemRepo()
	memberRepo := newFakeMemberRepo()
	memberRepo.add("hh-1", "member-1", models.RoleMember)
	recorder := &fakeEventRecorder{}

	service := NewItemService(itemRepo, NewAccessService(memberRepo), recorder, testLogger())
	return &itemFixture{service: service, itemRepo: itemRepo, events: recorder}
}

func TestCreateItem_DefaultsAndEvent(t *testing.T) {
	f := newItemFixture()

	item, err := f.service.CreateItem(context.Background(), "hh-1", "member-1", ItemInput{Name: " Milk "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Name != "Milk" {
		t.Errorf("Name = %q, want trimmed %q", item.Name, "Milk")
	}
	if item.State != models.StateOK {
		t.Errorf("State = %q, want default ok", item.State)
	}

	event := f.events.last()
	if event == nil || event.Type != models.EventItemCreated {
		t.Errorf("event = %+v, want item_created", event)
	}
}

func TestCreateItem_NonMemberForbidden(t *testing.T) {
	f := newItemFixture()

	_, err := f.service.CreateItem(context.Background(), "hh-1", "stranger-1", ItemInput{Name: "Milk"})
	if !errors.Is(err, ErrNotHouseholdMember) {
		t.Fatalf("error = %v, want ErrNotHouseholdMember", err)
	}
}

func TestCreateItem_InvalidState(t *testing.T) {
	f := newItemFixture()

	_, err := f.service.CreateItem(context.Background(), "hh-1", "member-1", ItemInput{Name: "Milk", State: "abundant"})
	if !errors.Is(err, ErrInvalidItemState) {
		t.Fatalf("error = %v, want ErrInvalidItemState", err)
	}
}

func TestGetItemByID_TenantScoped(t *testing.T) {
	f := newItemFixture()
	item := f.itemRepo.add("hh-2", "Milk", models.StateOK)

	// Предмет существует, но в другом домохозяйстве.
	_, err := f.service.GetItemByID(context.Background(), "hh-1", item.ID, "member-1")
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("error = %v, want ErrItemNotFound", err)
	}
}

func TestUpdateItem_StateChangeEvent(t *testing.T) {
	f := newItemFixture()
	item := f.itemRepo.add("hh-1", "Milk", models.StatePlenty)

	updated, err := f.service.UpdateItem(context.Background(), "hh-1", item.ID, "member-1", ItemInput{
		Name:  "Milk",
		State: models.StateLow,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.State != models.StateLow {
		t.Errorf("State = %q, want low", updated.State)
	}

	event := f.events.last()
	if event == nil || event.Type != models.EventItemStateChange {
		t.Errorf("event = %+v, want item_state_changed", event)
	}
}

func TestQuickActions(t *testing.T) {
	tests := []struct {
		name      string
		initial   models.ItemState
		action    string
		wantState models.ItemState
	}{
		{"used steps toward out", models.StatePlenty, QuickActionUsed, models.StateOK},
		{"used from low", models.StateLow, QuickActionUsed, models.StateAlmostOut},
		{"used from out stays out", models.StateOut, QuickActionUsed, models.StateOut},
		{"restocked resets to plenty", models.StateOut, QuickActionRestocked, models.StatePlenty},
		{"ran_out jumps to out", models.StatePlenty, QuickActionRanOut, models.StateOut},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newItemFixture()
			item := f.itemRepo.add("hh-1", "Milk", tt.initial)

			got, err := f.service.ApplyQuickAction(context.Background(), "hh-1", item.ID, "member-1", tt.action)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.State != tt.wantState {
				t.Errorf("State = %q, want %q", got.State, tt.wantState)
			}
		})
	}
}

func TestQuickAction_NoopDoesNotRecordEvent(t *testing.T) {
	f := newItemFixture()
	item := f.itemRepo.add("hh-1", "Milk", models.StateOut)

	if _, err := f.service.ApplyQuickAction(context.Background(), "hh-1", item.ID, "member-1", QuickActionUsed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event := f.events.last(); event != nil {
		t.Errorf("event recorded for a no-op action: %+v", event)
	}
}

func TestQuickAction_Unknown(t *testing.T) {
	f := newItemFixture()
	item := f.itemRepo.add("hh-1", "Milk", models.StateOK)

	_, err := f.service.ApplyQuickAction(context.Background(), "hh-1", item.ID, "member-1", "consumed")
	if !errors.Is(err, ErrInvalidQuickAction) {
		t.Fatalf("error = %v, want ErrInvalidQuickAction", err)
	}
}

func TestGetRestockList_GroupedByUrgency(t *testing.T) {
	f := newItemFixture()
	f.itemRepo.add("hh-1", "Milk", models.StateOut)
	f.itemRepo.add("hh-1", "Eggs", models.StateAlmostOut)
	f.itemRepo.add("hh-1", "Rice", models.StateLow)
	f.itemRepo.add("hh-1", "Salt", models.StatePlenty)

	list, err := f.service.GetRestockList(context.Background(), "hh-1", "member-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list.Out) != 1 || list.Out[0].Name != "Milk" {
		t.Errorf("Out = %+v, want [Milk]", list.Out)
	}
	if len(list.AlmostOut) != 1 || list.AlmostOut[0].Name != "Eggs" {
		t.Errorf("AlmostOut = %+v, want [Eggs]", list.AlmostOut)
	}
	if len(list.Low) != 1 || list.Low[0].Name != "Rice" {
		t.Errorf("Low = %+v, want [Rice]", list.Low)
	}
}

func TestDeleteItem_RecordsEvent(t *testing.T) {
	f := newItemFixture()
	item := f.itemRepo.add("hh-1", "Milk", models.StateOK)

	if err := f.service.DeleteItem(context.Background(), "hh-1", item.ID, "member-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	event := f.events.last()
	if event == nil || event.Type != models.EventItemDeleted {
		t.Errorf("event = %+v, want item_deleted", event)
	}
}
