package dto

import (
	"time"

	"github.com/google/uuid"
)

// ScoreUpdatePayload данные события score-updated
type ScoreUpdatePayload struct {
	TransactionID uuid.UUID  `json:"transaction_id"`
	FromMember    MemberInfo `json:"from_member"`
	ToMember      MemberInfo `json:"to_member"`
	Amount        int64      `json:"amount"`
	Description   string     `json:"description"`
	Timestamp     time.Time  `json:"timestamp"`
}

// MemberJoinedPayload данные события user-joined
type MemberJoinedPayload struct {
	Member    MemberInfo `json:"member"`
	Timestamp time.Time  `json:"timestamp"`
}

type RoomJoinPayload struct {
	MemberID   string `json:"member_id,omitempty"`
	JustJoined bool   `json:"just_joined,omitempty"`
}

type RoomJoinedPayload struct {
	RoomID   uuid.UUID  `json:"room_id"`
	RoomCode string     `json:"room_code"`
	MemberID *uuid.UUID `json:"member_id,omitempty"`
}
