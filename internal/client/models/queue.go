package models

import (
	"encoding/json"
	"time"
)

// Collection names a mirrored record collection.
type Collection string

const (
	CollectionTimeEntries Collection = "time_entries"
	CollectionTasks       Collection = "tasks"
	CollectionPhotos      Collection = "photos"
	CollectionSettings    Collection = "settings"
)

// Operation is the kind of write recorded in the queue.
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpUpsert Operation = "upsert"
	OpDelete Operation = "delete"
)

// QueueEntry is a write that has not been confirmed by the remote store.
// Entries are replayed in ascending QueueID order.
type QueueEntry struct {
	QueueID    int64
	Owner      string
	Collection Collection
	Operation  Operation
	RowID      string
	Payload    json.RawMessage
	EnqueuedAt time.Time
	Attempts   int
	LastError  string
}

// NewQueueEntry builds an unsaved queue entry for p.
func NewQueueEntry(owner, rowID string, p Payload) (*QueueEntry, error) {
	raw, err := EncodePayload(p)
	if err != nil {
		return nil, err
	}
	return &QueueEntry{
		Owner:      owner,
		Collection: p.Collection(),
		Operation:  p.Operation(),
		RowID:      rowID,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// Decode returns the typed payload of the entry.
func (q *QueueEntry) Decode() (Payload, error) {
	return DecodePayload(q.Payload)
}

// DeadLetter is a queue entry given up on after repeated rejections.
type DeadLetter struct {
	QueueEntry
	FailedAt time.Time
}
