package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/avermeer/teambase-backend/pkg/enums"
)

// OutboxEvent is written in the same transaction as the domain change it
// describes. The publisher drains unpublished rows and sets PublishedAt.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null;index"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	PublishedAt   *time.Time                `gorm:"column:published_at;index"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
