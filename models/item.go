package models

import "time"

// ItemState — нечёткое состояние запаса, от "много" до "закончилось".
type ItemState string

const (
	StatePlenty    ItemState = "plenty"
	StateOK        ItemState = "ok"
	StateLow       ItemState = "low"
	StateAlmostOut ItemState = "almost_out"
	StateOut       ItemState = "out"
)

// stateOrder задаёт порядок убывания запаса для быстрых действий.
var stateOrder = []ItemState{StatePlenty, StateOK, StateLow, StateAlmostOut, StateOut}

func (s ItemState) Valid() bool {
	for _, known := range stateOrder {
		if s == known {
			return true
		}
	}
	return false
}

// Next возвращает состояние на один шаг ближе к "out".
func (s ItemState) Next() ItemState {
	for i, known := range stateOrder {
		if s == known && i < len(stateOrder)-1 {
			return stateOrder[i+1]
		}
	}
	return StateOut
}

// NeedsRestock сообщает, попадает ли состояние в список на пополнение.
func (s ItemState) NeedsRestock() bool {
	return s == StateLow || s == StateAlmostOut || s == StateOut
}

type Item struct {
	ID          string    `json:"id" db:"id"`
	HouseholdID string    `json:"household_id" db:"household_id"`
	Name        string    `json:"name" db:"name"`
	Category    string    `json:"category" db:"category"`
	Location    string    `json:"location" db:"location"`
	State       ItemState `json:"state" db:"state"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ItemFilter — необязательные фильтры списка предметов.
type ItemFilter struct {
	Category string
	Location string
	State    ItemState
}
