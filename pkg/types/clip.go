package types

import "time"

type Clip struct {
	ID          int64     `json:"id"`
	Content     string    `json:"content"`
	AppName     string    `json:"app_name"`
	WindowTitle string    `json:"window_title"`
	AutoTags    string    `json:"auto_tags"`   // comma separated, search only
	ManualTags  string    `json:"manual_tags"` // comma separated, search only
	IsPinned    bool      `json:"is_pinned"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ChangedAt is the later of CreatedAt and UpdatedAt. Views sort on it.
func (c Clip) ChangedAt() time.Time {
	if c.UpdatedAt.After(c.CreatedAt) {
		return c.UpdatedAt
	}
	return c.CreatedAt
}

// PinChange is the payload of a clip-updated push.
type PinChange struct {
	ID        int64     `json:"id"`
	IsPinned  bool      `json:"is_pinned"`
	UpdatedAt time.Time `json:"updated_at"`
}
