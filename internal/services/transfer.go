package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/thereayou/score-rooms/internal/database"
	"github.com/thereayou/score-rooms/internal/metrics"
	"github.com/thereayou/score-rooms/internal/models"
)

const (
	maxDescriptionLength = 200
	commitTimeout        = 10 * time.Second
)

type TransferRequest struct {
	FromMemberID uuid.UUID
	ToMemberID   uuid.UUID
	Amount       int64
	Description  string
}

// MemberBalance участник с балансом после перевода
type MemberBalance struct {
	ID      uuid.UUID
	Name    string
	Balance int64
}

type TransferResult struct {
	RoomID        uuid.UUID
	RoomCode      string
	From          MemberBalance
	To            MemberBalance
	TransactionID uuid.UUID
	Amount        int64
	Description   string
	CreatedAt     time.Time
}

// TransferService проводит переводы очков между участниками одной комнаты.
// Это единственный путь, которым меняются балансы.
type TransferService struct {
	store   LedgerStore
	metrics metrics.MetricsCollector
}

func NewTransferService(store LedgerStore, mc metrics.MetricsCollector) *TransferService {
	if store == nil {
		panic("LedgerStore cannot be nil for TransferService")
	}
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &TransferService{store: store, metrics: mc}
}

// ParseMemberID разбирает id участника из запроса; пустая строка дает uuid.Nil
func ParseMemberID(field, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s is not a valid id", ErrValidation, field)
	}
	return id, nil
}

// Transfer проводит перевод в комнате с кодом roomCode.
func (s *TransferService) Transfer(ctx context.Context, roomCode string, req TransferRequest) (*TransferResult, error) {
	return s.run(ctx, req, func(ctx context.Context) (*models.Room, error) {
		if strings.TrimSpace(roomCode) == "" {
			return nil, fmt.Errorf("%w: room code is required", ErrValidation)
		}
		return s.store.FindRoomByCode(ctx, roomCode)
	})
}

// TransferInRoom то же, что Transfer, для вызывающих, которые уже знают id комнаты.
func (s *TransferService) TransferInRoom(ctx context.Context, roomID uuid.UUID, req TransferRequest) (*TransferResult, error) {
	return s.run(ctx, req, func(ctx context.Context) (*models.Room, error) {
		return s.store.GetRoom(ctx, roomID)
	})
}

func (s *TransferService) run(ctx context.Context, req TransferRequest, resolve func(context.Context) (*models.Room, error)) (*TransferResult, error) {
	// Отправленный перевод доводится до конца независимо от жизни запроса клиента
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()

	res, err := s.transfer(ctx, req, resolve)
	if err != nil {
		s.metrics.RecordTransfer(outcome(err))
		return nil, err
	}
	s.metrics.RecordTransfer(metrics.OutcomeCommitted)
	return res, nil
}

func (s *TransferService) transfer(ctx context.Context, req TransferRequest, resolve func(context.Context) (*models.Room, error)) (*TransferResult, error) {
	if err := validateTransfer(&req); err != nil {
		return nil, err
	}

	logCtx := logrus.WithFields(logrus.Fields{
		"from_member_id": req.FromMemberID,
		"to_member_id":   req.ToMemberID,
		"amount":         req.Amount,
	})

	room, err := resolve(ctx)
	if err != nil {
		return nil, mapStoreError(err, "room")
	}
	if !room.IsActive {
		return nil, fmt.Errorf("%w: room %s is closed", ErrNotFound, room.Code)
	}
	logCtx = logCtx.WithField("room_id", room.ID)

	from, err := s.memberOf(ctx, room, req.FromMemberID)
	if err != nil {
		return nil, err
	}
	to, err := s.memberOf(ctx, room, req.ToMemberID)
	if err != nil {
		return nil, err
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("%s lent %d to %s", from.Name, req.Amount, to.Name)
	}

	started := time.Now()
	rec, err := s.store.ApplyTransfer(ctx, room.ID, from.ID, to.ID, req.Amount, description)
	s.metrics.RecordTransferLatency(time.Since(started))
	if err != nil {
		err = mapStoreError(err, "member")
		if errors.Is(err, ErrPersistence) {
			logCtx.WithError(err).Error("Transfer commit failed")
		}
		return nil, err
	}

	logCtx.WithField("transaction_id", rec.Transaction.ID).Info("Transfer committed")

	return &TransferResult{
		RoomID:        room.ID,
		RoomCode:      room.Code,
		From:          MemberBalance{ID: rec.From.ID, Name: rec.From.Name, Balance: rec.From.Balance},
		To:            MemberBalance{ID: rec.To.ID, Name: rec.To.Name, Balance: rec.To.Balance},
		TransactionID: rec.Transaction.ID,
		Amount:        rec.Transaction.Amount,
		Description:   rec.Transaction.Description,
		CreatedAt:     rec.Transaction.CreatedAt,
	}, nil
}

func (s *TransferService) memberOf(ctx context.Context, room *models.Room, id uuid.UUID) (*models.Member, error) {
	m, err := s.store.GetMember(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "member")
	}
	if m.RoomID != room.ID {
		return nil, fmt.Errorf("%w: member %s is not in room %s", ErrMembership, id, room.Code)
	}
	return m, nil
}

func validateTransfer(req *TransferRequest) error {
	if req.FromMemberID == uuid.Nil || req.ToMemberID == uuid.Nil {
		return fmt.Errorf("%w: lender and borrower are required", ErrValidation)
	}
	if req.FromMemberID == req.ToMemberID {
		return fmt.Errorf("%w: lender and borrower must differ", ErrValidation)
	}
	if req.Amount <= 0 {
		return fmt.Errorf("%w: amount must be greater than 0", ErrValidation)
	}
	req.Description = strings.TrimSpace(req.Description)
	if utf8.RuneCountInString(req.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description is longer than %d characters", ErrValidation, maxDescriptionLength)
	}
	return nil
}

func mapStoreError(err error, what string) error {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrMembership):
		return err
	case errors.Is(err, database.ErrNotFound):
		return fmt.Errorf("%w: %s does not exist", ErrNotFound, what)
	case errors.Is(err, database.ErrRoomClosed):
		return fmt.Errorf("%w: room is closed", ErrNotFound)
	case errors.Is(err, database.ErrMemberNotInRoom):
		return fmt.Errorf("%w: %v", ErrMembership, err)
	default:
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
}
