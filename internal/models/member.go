package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Member участник ровно одной комнаты. Нижней границы у Balance нет:
// отрицательный баланс означает долг. Имя уникально в пределах комнаты.
type Member struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID   uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_members_room_name;not null"`
	Name     string    `gorm:"uniqueIndex:idx_members_room_name;not null"`
	Balance  int64     `gorm:"not null;default:0"`
	JoinedAt time.Time `gorm:"index"`
}

func (m *Member) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}
	return nil
}
