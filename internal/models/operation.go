package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

type OperationKind string

const (
	OpCreate OperationKind = "create"
	OpUpdate OperationKind = "update"
	OpDelete OperationKind = "delete"
)

type EntityType string

const (
	EntityTask    EntityType = "task"
	EntityProject EntityType = "project"
)

// MutationOperation is one queued offline mutation. Operation ids are never
// reused and Attempts only grows.
type MutationOperation struct {
	ID            string          `json:"id"`
	Kind          OperationKind   `json:"kind"`
	EntityType    EntityType      `json:"entity_type"`
	Payload       json.RawMessage `json:"payload"`
	EnqueuedAt    time.Time       `json:"enqueued_at"`
	Attempts      int             `json:"attempts"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// UpdatePayload is the queued body of an offline update.
type UpdatePayload struct {
	ID    string          `json:"id"`
	Patch json.RawMessage `json:"patch"`
}

// DeletePayload is the queued body of an offline delete.
type DeletePayload struct {
	ID string `json:"id"`
}

// TempIDPrefix marks identifiers minted locally while a create awaits server
// confirmation. Server-issued ids never carry it.
const TempIDPrefix = "local-"

func NewTempID() string { return TempIDPrefix + uuid.NewString() }

func IsTempID(id string) bool { return strings.HasPrefix(id, TempIDPrefix) }

func NewOperationID() string { return uuid.NewString() }
