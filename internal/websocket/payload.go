package websocket

import (
	"github.com/thereayou/score-rooms/internal/handlers/dto"
	"github.com/thereayou/score-rooms/internal/services"
)

// TransferPayload ответ инициатору перевода
func TransferPayload(res *services.TransferResult) dto.TransferResponse {
	return dto.TransferResponse{
		RoomID:     res.RoomID,
		FromMember: memberInfo(res.From),
		ToMember:   memberInfo(res.To),
		Transaction: dto.TransactionInfo{
			ID:          res.TransactionID,
			Amount:      res.Amount,
			Description: res.Description,
			CreatedAt:   res.CreatedAt,
		},
	}
}

// ScoreUpdatePayload данные события score-updated для комнаты
func ScoreUpdatePayload(res *services.TransferResult) dto.ScoreUpdatePayload {
	return dto.ScoreUpdatePayload{
		TransactionID: res.TransactionID,
		FromMember:    memberInfo(res.From),
		ToMember:      memberInfo(res.To),
		Amount:        res.Amount,
		Description:   res.Description,
		Timestamp:     res.CreatedAt,
	}
}

func memberInfo(m services.MemberBalance) dto.MemberInfo {
	return dto.MemberInfo{ID: m.ID, Name: m.Name, Balance: m.Balance}
}
