// Package models defines the client-side records of the worklog app and the
// typed payloads stored in the offline mutation queue.
//
// Records (TimeEntry, Task, Photo, Settings) mirror the remote tables. Queue
// payloads are a closed set of structs implementing Payload; they are
// persisted as a JSON envelope {"kind": ..., "data": ...} and decoded with
// DecodePayload.
package models
