package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Room struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	Code      string    `gorm:"size:16;uniqueIndex;not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	CreatorID uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time

	// Связи
	Members      []Member      `gorm:"foreignKey:RoomID"`
	Transactions []Transaction `gorm:"foreignKey:RoomID"`
}

func (r *Room) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
