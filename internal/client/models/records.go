package models

import "time"

// Settings defaults applied when a principal has no settings row yet.
const (
	DefaultRequiredHours = 600
	DefaultAccentColor   = "green"
	DefaultTheme         = "light"
)

// TimeEntry is one working day of a principal. At most one exists per
// (Owner, Date).
type TimeEntry struct {
	ID            string    `json:"id"`
	Owner         string    `json:"owner"`
	Date          string    `json:"date"`
	TimeIn        *string   `json:"time_in,omitempty"`
	TimeOut       *string   `json:"time_out,omitempty"`
	HoursRendered *float64  `json:"hours_rendered,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Task is a free-text work item attached to a time entry.
type Task struct {
	ID          string    `json:"id"`
	TimeEntryID string    `json:"time_entry_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Photo is an image attached to a time entry. While a photo awaits upload
// OfflinePayload holds its data URL and ImageURL points at the same string.
type Photo struct {
	ID              string    `json:"id"`
	TimeEntryID     string    `json:"time_entry_id"`
	ImageURL        string    `json:"image_url"`
	CreatedAt       time.Time `json:"created_at"`
	OfflinePayload  *string   `json:"offline_payload,omitempty"`
	OfflineFilename *string   `json:"offline_filename,omitempty"`
}

// PendingUpload reports whether the photo binary still lives only locally.
func (p *Photo) PendingUpload() bool {
	return p.OfflinePayload != nil
}

// Settings holds per-principal preferences. Exactly one row per Owner.
type Settings struct {
	ID            string  `json:"id"`
	Owner         string  `json:"owner"`
	RequiredHours float64 `json:"required_hours"`
	AccentColor   string  `json:"accent_color"`
	Theme         string  `json:"theme"`
}

// DefaultSettings returns the settings a new principal starts with.
func DefaultSettings(id, owner string) Settings {
	return Settings{
		ID:            id,
		Owner:         owner,
		RequiredHours: DefaultRequiredHours,
		AccentColor:   DefaultAccentColor,
		Theme:         DefaultTheme,
	}
}

// TaskPatch is a partial task update. Nil fields are left unchanged.
type TaskPatch struct {
	Description *string `json:"description,omitempty"`
}

// Apply copies the set fields of p onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Description != nil {
		t.Description = *p.Description
	}
}

// SettingsPatch is a partial settings update. Nil fields are left unchanged.
type SettingsPatch struct {
	RequiredHours *float64 `json:"required_hours,omitempty"`
	AccentColor   *string  `json:"accent_color,omitempty"`
	Theme         *string  `json:"theme,omitempty"`
}

// Apply copies the set fields of p onto s.
func (p SettingsPatch) Apply(s *Settings) {
	if p.RequiredHours != nil {
		s.RequiredHours = *p.RequiredHours
	}
	if p.AccentColor != nil {
		s.AccentColor = *p.AccentColor
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
}

// DailyEntry is the composite view of one day.
type DailyEntry struct {
	Entry  TimeEntry
	Tasks  []Task
	Photos []Photo
}
