package evidence

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Outcome classifies a recorded decision.
type Outcome string

const (
	// OutcomeAllowed means the operation propagated cleanly.
	OutcomeAllowed Outcome = "allowed"
	// OutcomeBlocked means the operation was rejected.
	OutcomeBlocked Outcome = "blocked"
)

// Record is one enforcement decision.
type Record struct {
	// ID is the record's identifier.
	ID uuid.UUID `json:"id"`

	// Time is when the decision was made.
	Time time.Time `json:"time"`

	// Context is the owning context.
	Context uuid.UUID `json:"context"`

	// Op is the operator kind ("projection", "aggregation", "finalize", ...).
	Op string `json:"op"`

	// InputFrame and OutputFrame are the frames involved; OutputFrame is
	// zero for blocked operations and for the sink.
	InputFrame  uuid.UUID `json:"input_frame"`
	OutputFrame uuid.UUID `json:"output_frame"`

	// Outcome is the decision.
	Outcome Outcome `json:"outcome"`

	// Detail is the diagnostic for blocked operations.
	Detail string `json:"detail,omitempty"`
}

// Storage persists decision records.
type Storage interface {
	// Append stores one record.
	Append(ctx context.Context, rec *Record) error

	// List returns records at or after since, oldest first.
	List(ctx context.Context, since time.Time) ([]*Record, error)

	// PruneBefore deletes records older than cutoff, returning the count.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases the backend.
	Close() error
}
