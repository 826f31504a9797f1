package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is anything with an identity and creation/update stamps
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}

// BaseEntity carries the identity and timestamps every stored entity has.
// IDs are UUIDv7, so ordering by ID follows creation order.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e *BaseEntity) GetID() uuid.UUID        { return e.ID }
func (e *BaseEntity) GetCreatedAt() time.Time { return e.CreatedAt }
func (e *BaseEntity) GetUpdatedAt() time.Time { return e.UpdatedAt }

// Touch stamps UpdatedAt
func (e *BaseEntity) Touch(now time.Time) { e.UpdatedAt = now }

// NewBaseEntity stamps a fresh entity with the wall clock
func NewBaseEntity() BaseEntity { return NewBaseEntityAt(time.Now()) }

// NewBaseEntityAt stamps a fresh entity with a caller supplied clock reading
func NewBaseEntityAt(now time.Time) BaseEntity {
	return BaseEntity{ID: newTimeOrderedID(), CreatedAt: now, UpdatedAt: now}
}

func newTimeOrderedID() uuid.UUID {
	if id, err := uuid.NewV7(); err == nil {
		return id
	}
	return uuid.New()
}
