package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction запись журнала о проведенном переводе, только добавление.
// FromMember одолжил Amount участнику ToMember.
type Transaction struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID       uuid.UUID `gorm:"type:uuid;index;not null"`
	FromMemberID uuid.UUID `gorm:"type:uuid;not null"`
	ToMemberID   uuid.UUID `gorm:"type:uuid;not null"`
	Amount       int64     `gorm:"not null;check:amount > 0"`
	Description  string
	CreatedAt    time.Time `gorm:"index"`

	// Связи
	FromMember Member `gorm:"foreignKey:FromMemberID"`
	ToMember   Member `gorm:"foreignKey:ToMemberID"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
