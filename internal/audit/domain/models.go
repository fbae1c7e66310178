package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// SystemActorID attributes entries written without an authenticated actor.
const SystemActorID int64 = 0

// AuditLog is an append-only record of a mutating operation.
type AuditLog struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorID   int64             `gorm:"not null;default:0;index" json:"actor_id"`
	Action    string            `gorm:"type:varchar(128);not null;index" json:"action"`
	Details   datatypes.JSONMap `gorm:"type:json" json:"details"`
	IPAddress *string           `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	CreatedAt time.Time         `gorm:"not null;index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	Action string
	Cursor *AuditCursor
	Limit  int
}
