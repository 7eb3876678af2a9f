package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/thereayou/score-rooms/internal/models"
	"gorm.io/gorm"
)

// AddMember вставляет участника; занятое в комнате имя дает ErrDuplicateMember
func (d *Database) AddMember(ctx context.Context, member *models.Member) error {
	err := d.db.WithContext(ctx).Create(member).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateMember
	}
	return err
}

func (d *Database) GetMember(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	var member models.Member
	if err := d.db.WithContext(ctx).First(&member, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &member, nil
}

// FindMemberByName ищет участника комнаты по отображаемому имени
func (d *Database) FindMemberByName(ctx context.Context, roomID uuid.UUID, name string) (*models.Member, error) {
	var member models.Member
	err := d.db.WithContext(ctx).
		Where("room_id = ? AND name = ?", roomID, name).
		Order("joined_at ASC").
		First(&member).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &member, nil
}

func (d *Database) ListMembers(ctx context.Context, roomID uuid.UUID) ([]models.Member, error) {
	var members []models.Member
	err := d.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("joined_at ASC").
		Order("id ASC").
		Find(&members).Error
	return members, err
}
