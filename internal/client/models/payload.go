package models

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/worklog/internal/common"
)

// Kind identifies a payload variant in the stored envelope.
type Kind string

const (
	KindTimeEntryUpsert Kind = "time_entry.upsert"
	KindTimeEntryDelete Kind = "time_entry.delete"
	KindTaskInsert      Kind = "task.insert"
	KindTaskUpdate      Kind = "task.update"
	KindTaskDelete      Kind = "task.delete"
	KindPhotoInsert     Kind = "photo.insert"
	KindPhotoDelete     Kind = "photo.delete"
	KindSettingsUpsert  Kind = "settings.upsert"
	KindSettingsUpdate  Kind = "settings.update"
)

// Payload is the typed body of a queued write.
type Payload interface {
	Kind() Kind
	Collection() Collection
	Operation() Operation
}

// RefRewriter is implemented by payloads that embed row identifiers.
// RewriteRef replaces every occurrence of oldID and reports whether
// anything changed.
type RefRewriter interface {
	RewriteRef(oldID, newID string) bool
}

// TimeEntryUpsert carries the full time entry.
type TimeEntryUpsert struct {
	Entry TimeEntry `json:"entry"`
}

// TimeEntryDelete carries the storage paths of the entry's uploaded photos
// so their objects can be removed too.
type TimeEntryDelete struct {
	PhotoPaths []string `json:"photo_paths,omitempty"`
}

// TaskInsert carries the full task.
type TaskInsert struct {
	Task Task `json:"task"`
}

type TaskUpdate struct {
	Patch TaskPatch `json:"patch"`
}

type TaskDelete struct{}

// PhotoInsert carries only the file name. The binary is read back from the
// mirror row at replay time.
type PhotoInsert struct {
	Filename string `json:"filename"`
}

// PhotoDelete carries the storage path of an uploaded photo, if any.
type PhotoDelete struct {
	StoragePath string `json:"storage_path,omitempty"`
}

type SettingsUpsert struct {
	Settings Settings `json:"settings"`
}

type SettingsUpdate struct {
	Patch SettingsPatch `json:"patch"`
}

func (TimeEntryUpsert) Kind() Kind             { return KindTimeEntryUpsert }
func (TimeEntryUpsert) Collection() Collection { return CollectionTimeEntries }
func (TimeEntryUpsert) Operation() Operation   { return OpUpsert }

func (TimeEntryDelete) Kind() Kind             { return KindTimeEntryDelete }
func (TimeEntryDelete) Collection() Collection { return CollectionTimeEntries }
func (TimeEntryDelete) Operation() Operation   { return OpDelete }

func (TaskInsert) Kind() Kind             { return KindTaskInsert }
func (TaskInsert) Collection() Collection { return CollectionTasks }
func (TaskInsert) Operation() Operation   { return OpInsert }

func (TaskUpdate) Kind() Kind             { return KindTaskUpdate }
func (TaskUpdate) Collection() Collection { return CollectionTasks }
func (TaskUpdate) Operation() Operation   { return OpUpdate }

func (TaskDelete) Kind() Kind             { return KindTaskDelete }
func (TaskDelete) Collection() Collection { return CollectionTasks }
func (TaskDelete) Operation() Operation   { return OpDelete }

func (PhotoInsert) Kind() Kind             { return KindPhotoInsert }
func (PhotoInsert) Collection() Collection { return CollectionPhotos }
func (PhotoInsert) Operation() Operation   { return OpInsert }

func (PhotoDelete) Kind() Kind             { return KindPhotoDelete }
func (PhotoDelete) Collection() Collection { return CollectionPhotos }
func (PhotoDelete) Operation() Operation   { return OpDelete }

func (SettingsUpsert) Kind() Kind             { return KindSettingsUpsert }
func (SettingsUpsert) Collection() Collection { return CollectionSettings }
func (SettingsUpsert) Operation() Operation   { return OpUpsert }

func (SettingsUpdate) Kind() Kind             { return KindSettingsUpdate }
func (SettingsUpdate) Collection() Collection { return CollectionSettings }
func (SettingsUpdate) Operation() Operation   { return OpUpdate }

func (p *TimeEntryUpsert) RewriteRef(oldID, newID string) bool {
	if p.Entry.ID != oldID {
		return false
	}
	p.Entry.ID = newID
	return true
}

func (p *TaskInsert) RewriteRef(oldID, newID string) bool {
	changed := false
	if p.Task.ID == oldID {
		p.Task.ID = newID
		changed = true
	}
	if p.Task.TimeEntryID == oldID {
		p.Task.TimeEntryID = newID
		changed = true
	}
	return changed
}

func (p *SettingsUpsert) RewriteRef(oldID, newID string) bool {
	if p.Settings.ID != oldID {
		return false
	}
	p.Settings.ID = newID
	return true
}

type envelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// EncodePayload serialises p into the stored envelope form.
func EncodePayload(p Payload) (json.RawMessage, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", p.Kind(), err)
	}
	return json.Marshal(envelope{Kind: p.Kind(), Data: data})
}

// DecodePayload is the dispatch decoder for stored envelopes. Variants that
// implement RefRewriter are returned as pointers so the rewrite sticks.
// Unknown kinds and malformed JSON wrap common.ErrLocalStoreCorruption.
func DecodePayload(raw []byte) (Payload, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: queue payload: %v", common.ErrLocalStoreCorruption, err)
	}

	var p Payload
	switch env.Kind {
	case KindTimeEntryUpsert:
		p = &TimeEntryUpsert{}
	case KindTimeEntryDelete:
		p = &TimeEntryDelete{}
	case KindTaskInsert:
		p = &TaskInsert{}
	case KindTaskUpdate:
		p = &TaskUpdate{}
	case KindTaskDelete:
		p = &TaskDelete{}
	case KindPhotoInsert:
		p = &PhotoInsert{}
	case KindPhotoDelete:
		p = &PhotoDelete{}
	case KindSettingsUpsert:
		p = &SettingsUpsert{}
	case KindSettingsUpdate:
		p = &SettingsUpdate{}
	default:
		return nil, fmt.Errorf("%w: unknown payload kind %q", common.ErrLocalStoreCorruption, env.Kind)
	}

	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, p); err != nil {
			return nil, fmt.Errorf("%w: %s payload: %v", common.ErrLocalStoreCorruption, env.Kind, err)
		}
	}
	return p, nil
}
