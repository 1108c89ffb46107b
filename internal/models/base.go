package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel provides the uuid key and timestamps shared by every table.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EnsureID assigns a fresh uuid when the record has none. Document stores
// call it directly since they bypass gorm hooks.
func (b *BaseModel) EnsureID() {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
}

// Touch stamps CreatedAt (once) and UpdatedAt.
func (b *BaseModel) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// BeforeCreate ensures UUIDs are generated for new records.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	b.EnsureID()
	return nil
}

// All lists every model that the relational store migrates.
func All() []interface{} {
	return []interface{}{
		&Customer{},
		&CustomerAddress{},
		&OTPSession{},
		&Order{},
		&Notification{},
	}
}
