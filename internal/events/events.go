// Package events publishes recipe domain events to a message broker.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	RecipeCreated       = "recipe.created"
	RecipeUpdated       = "recipe.updated"
	RecipeDeleted       = "recipe.deleted"
	RecipeImageUploaded = "recipe.image_uploaded"
)

// Event is a single domain event
type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	UserID     uint                   `json:"user_id"`
	RecipeID   uint                   `json:"recipe_id,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// NewEvent stamps an event with an id and the current time
func NewEvent(eventType string, userID, recipeID uint) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		RecipeID:   recipeID,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers events
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error { return nil }

// MemoryPublisher keeps published events in memory
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *MemoryPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *MemoryPublisher) Close() error { return nil }

// Events returns a copy of everything published so far
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Types returns the type of each published event in order
func (p *MemoryPublisher) Types() []string {
	var types []string
	for _, e := range p.Events() {
		types = append(types, e.Type)
	}
	return types
}
