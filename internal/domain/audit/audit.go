// Package audit defines the change log written alongside every document mutation.
package audit

import (
	"context"
	"time"

	"stockflow/internal/core/id"
)

// Action is the audited operation.
type Action string

const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionSoftDelete Action = "soft_delete"
	ActionRestore    Action = "restore"
	ActionHardDelete Action = "hard_delete"
)

// Entry is one audit record. Snapshot is the entity state after the action
// (before it, for hard deletes) and is serialized by the recorder.
type Entry struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	Snapshot   any
	At         time.Time
}

// Recorder persists entries in the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }
