package database

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/thereayou/score-rooms/internal/models"
	"gorm.io/gorm"
)

// NormalizeCode приводит код комнаты к каноничному виду: коды нечувствительны к регистру
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateRoom создает комнату вместе с участником-создателем в одной транзакции
func (d *Database) CreateRoom(ctx context.Context, room *models.Room, creator *models.Member) error {
	room.Code = NormalizeCode(room.Code)
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	if creator.ID == uuid.Nil {
		creator.ID = uuid.New()
	}
	room.CreatorID = creator.ID
	creator.RoomID = room.ID

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.Room{}).Where("code = ?", room.Code).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrDuplicateCode
		}

		if err := tx.Omit("Members", "Transactions").Create(room).Error; err != nil {
			return err
		}

		return tx.Create(creator).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateCode
	}
	return err
}

func (d *Database) FindRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	if err := d.db.WithContext(ctx).Where("code = ?", NormalizeCode(code)).First(&room).Error; err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

func (d *Database) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	if err := d.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

// GetRoomSnapshot загружает комнату целиком: участников в порядке входа и
// журнал переводов от новых к старым
func (d *Database) GetRoomSnapshot(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	err := d.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC").Order("id ASC")
		}).
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Order("id DESC")
		}).
		Preload("Transactions.FromMember").
		Preload("Transactions.ToMember").
		Where("code = ?", NormalizeCode(code)).
		First(&room).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

func (d *Database) SetRoomActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := d.db.WithContext(ctx).Model(&models.Room{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
