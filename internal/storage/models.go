package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Visit is one page view. HashedIP is already anonymized by the caller.
type Visit struct {
	HashedIP  string
	UserAgent string
	Path      string
	CreatedAt time.Time
}

// ChatEvent records how one assistant request settled. It never carries
// message text.
type ChatEvent struct {
	ID         string
	SessionID  string
	Outcome    string // "success", "empty", "failure"
	DurationMS int64
	CreatedAt  time.Time
}

// PathCount is a page path with its visit count.
type PathCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// Stats summarizes the analytics tables.
type Stats struct {
	TotalVisits    int            `json:"total_visits"`
	UniqueVisitors int            `json:"unique_visitors"`
	VisitsLastDay  int            `json:"visits_last_day"`
	VisitsLastWeek int            `json:"visits_last_week"`
	TopPaths       []PathCount    `json:"top_paths"`
	ChatOutcomes   map[string]int `json:"chat_outcomes"`
	AvgChatMS      float64        `json:"avg_chat_ms"`
	GeneratedAt    time.Time      `json:"generated_at"`
}
