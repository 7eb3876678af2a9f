package dto

import (
	"time"

	"github.com/google/uuid"
)

// TransferRequest тело перевода по HTTP и данные команды transfer по WebSocket
type TransferRequest struct {
	FromMemberID string `json:"from_member_id"`
	ToMemberID   string `json:"to_member_id"`
	Amount       int64  `json:"amount"`
	Description  string `json:"description,omitempty"`
}

type MemberInfo struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Balance int64     `json:"balance"`
}

type TransactionInfo struct {
	ID          uuid.UUID `json:"id"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type TransferResponse struct {
	RoomID      uuid.UUID       `json:"room_id"`
	FromMember  MemberInfo      `json:"from_member"`
	ToMember    MemberInfo      `json:"to_member"`
	Transaction TransactionInfo `json:"transaction"`
}
