package models

import "time"

// Announcement is the system-wide banner shown to every user. A single row
// is persisted; saving replaces the content wholesale.
type Announcement struct {
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}
