package database

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicateCode   = errors.New("room code already taken")
	ErrMemberNotInRoom = errors.New("member belongs to another room")
	ErrRoomClosed      = errors.New("room is closed")
	ErrDuplicateMember = errors.New("member name already taken in room")
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// DB отдает нижележащее соединение (миграции и тесты)
func (d *Database) DB() *gorm.DB {
	return d.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
