package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateRoomRequest struct {
	Name        string `json:"name" binding:"required"`
	CreatorName string `json:"creator_name" binding:"required"`
}

type JoinRoomRequest struct {
	RoomCode   string `json:"room_code" binding:"required"`
	MemberName string `json:"member_name" binding:"required"`
}

type RoomResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	CreatorID uuid.UUID `json:"creator_id"`
}

type MemberResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Balance  int64     `json:"balance"`
	JoinedAt time.Time `json:"joined_at"`
}

type CreateRoomResponse struct {
	Room   RoomResponse   `json:"room"`
	Member MemberResponse `json:"member"`
}

type JoinRoomResponse struct {
	Room       RoomResponse   `json:"room"`
	Member     MemberResponse `json:"member"`
	JustJoined bool           `json:"just_joined"`
}

// SnapshotResponse полное состояние комнаты: участники в порядке входа,
// переводы от новых к старым
type SnapshotResponse struct {
	RoomResponse
	Members      []MemberResponse   `json:"members"`
	Transactions []TransactionEntry `json:"transactions"`
}

type TransactionEntry struct {
	ID          uuid.UUID  `json:"id"`
	FromMember  MemberInfo `json:"from_member"`
	ToMember    MemberInfo `json:"to_member"`
	Amount      int64      `json:"amount"`
	Description string     `json:"description"`
	Timestamp   time.Time  `json:"timestamp"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
