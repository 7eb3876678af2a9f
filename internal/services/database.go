package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/thereayou/score-rooms/internal/database"
	"github.com/thereayou/score-rooms/internal/models"
)

// LedgerStore хранилище комнат, участников и журнала переводов.
// Реализуется *database.Database.
type LedgerStore interface {
	CreateRoom(ctx context.Context, room *models.Room, creator *models.Member) error
	FindRoomByCode(ctx context.Context, code string) (*models.Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	GetRoomSnapshot(ctx context.Context, code string) (*models.Room, error)
	SetRoomActive(ctx context.Context, id uuid.UUID, active bool) error

	AddMember(ctx context.Context, member *models.Member) error
	GetMember(ctx context.Context, id uuid.UUID) (*models.Member, error)
	FindMemberByName(ctx context.Context, roomID uuid.UUID, name string) (*models.Member, error)

	ApplyTransfer(ctx context.Context, roomID, fromID, toID uuid.UUID, amount int64, description string) (*database.TransferRecord, error)
}

var _ LedgerStore = (*database.Database)(nil)
