package shared

import (
	"time"

	"github.com/google/uuid"
)

// Stamp carries who performs an operation and when.
// Entry points receive it from the caller; the domain never reads ambient request state.
type Stamp struct {
	ActorID uuid.UUID
	At      time.Time
}

// NewStamp creates a stamp for the given actor at the given time
func NewStamp(actorID uuid.UUID, at time.Time) Stamp {
	return Stamp{ActorID: actorID, At: at}
}

// Validate checks that both actor and time are present
func (s Stamp) Validate() error {
	if s.ActorID == uuid.Nil {
		return NewDomainError("INVALID_ACTOR", "Acting user ID is required")
	}
	if s.At.IsZero() {
		return NewDomainError("INVALID_TIME", "Operation time is required")
	}
	return nil
}
