package database

import (
	"bytes"
	"context"

	"github.com/google/uuid"
	"github.com/thereayou/score-rooms/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransferRecord результат проведенного перевода
type TransferRecord struct {
	From        models.Member
	To          models.Member
	Transaction models.Transaction
}

// ApplyTransfer списывает amount у fromID, зачисляет toID и пишет запись в
// журнал. Все три записи фиксируются одной транзакцией или не фиксируются вовсе.
// Строка комнаты читается под разделяемой блокировкой, так что перевод и
// закрытие комнаты упорядочены. Строки участников блокируются в порядке id,
// поэтому встречные переводы по одной паре не приводят к взаимной блокировке.
func (d *Database) ApplyTransfer(ctx context.Context, roomID, fromID, toID uuid.UUID, amount int64, description string) (*TransferRecord, error) {
	var record TransferRecord

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).First(&room, "id = ?", roomID).Error; err != nil {
			return notFound(err)
		}
		if !room.IsActive {
			return ErrRoomClosed
		}

		for _, id := range lockOrder(fromID, toID) {
			var m models.Member
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "id = ?", id).Error; err != nil {
				return notFound(err)
			}
			if m.RoomID != roomID {
				return ErrMemberNotInRoom
			}
		}

		if err := tx.Model(&models.Member{}).
			Where("id = ?", fromID).
			UpdateColumn("balance", gorm.Expr("balance - ?", amount)).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Member{}).
			Where("id = ?", toID).
			UpdateColumn("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
			return err
		}

		record.Transaction = models.Transaction{
			RoomID:       roomID,
			FromMemberID: fromID,
			ToMemberID:   toID,
			Amount:       amount,
			Description:  description,
		}
		if err := tx.Omit(clause.Associations).Create(&record.Transaction).Error; err != nil {
			return err
		}

		if err := tx.First(&record.From, "id = ?", fromID).Error; err != nil {
			return err
		}
		return tx.First(&record.To, "id = ?", toID).Error
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func (d *Database) ListTransactions(ctx context.Context, roomID uuid.UUID) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := d.db.WithContext(ctx).
		Preload("FromMember").
		Preload("ToMember").
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&txs).Error
	return txs, err
}

func lockOrder(a, b uuid.UUID) []uuid.UUID {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return []uuid.UUID{a, b}
	}
	return []uuid.UUID{b, a}
}
