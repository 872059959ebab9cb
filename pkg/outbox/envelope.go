package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies the user (and the account they were acting in)
// that produced the event.
type ActorRef struct {
	UserID    uuid.UUID  `json:"userId"`
	AccountID *uuid.UUID `json:"accountId,omitempty"`
	Role      string     `json:"role,omitempty"`
}

// PayloadEnvelope is the versioned payload stored in outbox_events and
// published verbatim. EventID feeds the broker's dedup attribute, so
// consumers can treat deliveries as at-least-once.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
