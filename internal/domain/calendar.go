package domain

import "time"

// Calendar is a named, account-owned collection of events.
// Saves replace Name and the whole Events array; Version counts saves.
type Calendar struct {
	ID          string    `bson:"_id" json:"id"`
	AccountID   string    `bson:"accountId" json:"accountId"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Events      []Event   `bson:"events" json:"events"`
	Version     int64     `bson:"version" json:"version"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// EventCount is the number of events currently stored on the calendar.
func (c *Calendar) EventCount() int {
	if c == nil {
		return 0
	}
	return len(c.Events)
}

// CalendarSummary is the list view of a calendar.
type CalendarSummary struct {
	ID          string    `bson:"_id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"created_at"`
	EventCount  int       `bson:"eventCount" json:"event_count"`
}
