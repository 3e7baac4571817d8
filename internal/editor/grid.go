package editor

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"scan2cal/calendar-app/internal/domain"
)

// ErrEventNotFound is returned for an id the grid does not hold.
var ErrEventNotFound = errors.New("event not found in grid")

// Grid is the authoritative store of live events while a calendar is open.
type Grid interface {
	Events() []domain.Event
	// Add stores the event and returns its id, assigning one when empty.
	Add(ev domain.Event) string
	Update(ev domain.Event) error
	Remove(id string) error
	Reset(events []domain.Event)
}

// MemoryGrid is an in-process Grid.
type MemoryGrid struct {
	mu     sync.Mutex
	events []domain.Event
	newID  func() string
}

func NewMemoryGrid(events ...domain.Event) *MemoryGrid {
	g := &MemoryGrid{newID: uuid.NewString}
	g.Reset(events)
	return g
}

func (g *MemoryGrid) Events() []domain.Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.Event{}, g.events...)
}

func (g *MemoryGrid) Add(ev domain.Event) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ev.ID == "" {
		ev.ID = g.newID()
	}
	g.events = append(g.events, ev)
	return ev.ID
}

func (g *MemoryGrid) Update(ev domain.Event) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.index(ev.ID)
	if i < 0 {
		return ErrEventNotFound
	}
	g.events[i] = ev
	return nil
}

func (g *MemoryGrid) Remove(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.index(id)
	if i < 0 {
		return ErrEventNotFound
	}
	g.events = append(g.events[:i], g.events[i+1:]...)
	return nil
}

// Reset replaces every event. Events without an id get one.
func (g *MemoryGrid) Reset(events []domain.Event) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = make([]domain.Event, 0, len(events))
	for _, ev := range events {
		if ev.ID == "" {
			ev.ID = g.newID()
		}
		g.events = append(g.events, ev)
	}
}

func (g *MemoryGrid) index(id string) int {
	if id == "" {
		return -1
	}
	for i := range g.events {
		if g.events[i].ID == id {
			return i
		}
	}
	return -1
}
