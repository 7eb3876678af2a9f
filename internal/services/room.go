package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/thereayou/score-rooms/internal/database"
	"github.com/thereayou/score-rooms/internal/models"
)

const (
	DefaultCodeLength = 8
	maxNameLength     = 50
	maxCodeAttempts   = 10
	codeAlphabet      = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"
)

// CodeGenerator выдает короткий код комнаты
type CodeGenerator func() string

// UUIDCodes берет энтропию из uuid.New и переводит ее в алфавит кодов без I и O.
// Байты версии и варианта пропускаются, байты за пределами кратного
// размеру алфавита отбрасываются, поэтому все символы равновероятны.
func UUIDCodes(length int) CodeGenerator {
	if length <= 0 || length > 16 {
		length = DefaultCodeLength
	}
	limit := 256 - 256%len(codeAlphabet)
	return func() string {
		b := make([]byte, 0, length)
		for len(b) < length {
			id := uuid.New()
			for i, v := range id {
				if i == 6 || i == 8 || int(v) >= limit {
					continue
				}
				b = append(b, codeAlphabet[int(v)%len(codeAlphabet)])
				if len(b) == length {
					break
				}
			}
		}
		return string(b)
	}
}

// RoomService создание комнат, вход по коду и чтение снимка комнаты.
type RoomService struct {
	store   LedgerStore
	newCode CodeGenerator
}

func NewRoomService(store LedgerStore, codes CodeGenerator) *RoomService {
	if store == nil {
		panic("LedgerStore cannot be nil for RoomService")
	}
	if codes == nil {
		codes = UUIDCodes(DefaultCodeLength)
	}
	return &RoomService{store: store, newCode: codes}
}

// CreateRoom создает комнату и участника-создателя с нулевым балансом.
func (s *RoomService) CreateRoom(ctx context.Context, name, creatorName string) (*models.Room, *models.Member, error) {
	name, err := cleanName("room name", name)
	if err != nil {
		return nil, nil, err
	}
	creatorName, err = cleanName("creator name", creatorName)
	if err != nil {
		return nil, nil, err
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		room := &models.Room{Name: name, Code: s.newCode(), IsActive: true}
		creator := &models.Member{Name: creatorName}

		err := s.store.CreateRoom(ctx, room, creator)
		if errors.Is(err, database.ErrDuplicateCode) {
			logrus.WithField("code", room.Code).Debug("Room code collision, retrying")
			continue
		}
		if err != nil {
			logrus.WithError(err).Error("Failed to create room")
			return nil, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}

		logrus.WithFields(logrus.Fields{"room_id": room.ID, "code": room.Code}).Info("Room created")
		return room, creator, nil
	}

	return nil, nil, fmt.Errorf("%w: could not allocate a unique room code", ErrPersistence)
}

// JoinRoom добавляет участника в активную комнату. Участник с тем же
// отображаемым именем переиспользуется, и тогда justJoined == false.
// TODO: сопоставление по имени склеивает двух разных людей с одинаковым именем, нужен токен участника.
func (s *RoomService) JoinRoom(ctx context.Context, code, memberName string) (room *models.Room, member *models.Member, justJoined bool, err error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil, false, fmt.Errorf("%w: room code is required", ErrValidation)
	}
	memberName, err = cleanName("member name", memberName)
	if err != nil {
		return nil, nil, false, err
	}

	room, err = s.store.FindRoomByCode(ctx, code)
	if err != nil {
		return nil, nil, false, mapStoreError(err, "room")
	}
	if !room.IsActive {
		return nil, nil, false, fmt.Errorf("%w: room %s is closed", ErrNotFound, room.Code)
	}

	existing, err := s.store.FindMemberByName(ctx, room.ID, memberName)
	switch {
	case err == nil:
		return room, existing, false, nil
	case !errors.Is(err, database.ErrNotFound):
		return nil, nil, false, mapStoreError(err, "member")
	}

	member = &models.Member{RoomID: room.ID, Name: memberName}
	err = s.store.AddMember(ctx, member)
	if errors.Is(err, database.ErrDuplicateMember) {
		// параллельный вход с тем же именем успел вставить участника
		existing, err := s.store.FindMemberByName(ctx, room.ID, memberName)
		if err != nil {
			return nil, nil, false, mapStoreError(err, "member")
		}
		return room, existing, false, nil
	}
	if err != nil {
		return nil, nil, false, mapStoreError(err, "member")
	}

	logrus.WithFields(logrus.Fields{"room_id": room.ID, "member_id": member.ID}).Info("Member joined room")
	return room, member, true, nil
}

// Snapshot авторитетное состояние комнаты: участники в порядке входа,
// журнал от новых к старым. Закрытая комната возвращается с IsActive == false.
func (s *RoomService) Snapshot(ctx context.Context, code string) (*models.Room, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: room code is required", ErrValidation)
	}
	room, err := s.store.GetRoomSnapshot(ctx, code)
	if err != nil {
		return nil, mapStoreError(err, "room")
	}
	return room, nil
}

// CloseRoom помечает комнату неактивной. Код остается занятым навсегда.
func (s *RoomService) CloseRoom(ctx context.Context, code string) (*models.Room, error) {
	room, err := s.store.FindRoomByCode(ctx, code)
	if err != nil {
		return nil, mapStoreError(err, "room")
	}
	if err := s.store.SetRoomActive(ctx, room.ID, false); err != nil {
		return nil, mapStoreError(err, "room")
	}
	room.IsActive = false
	return room, nil
}

// ActiveRoom возвращает комнату по id, если она существует и открыта.
func (s *RoomService) ActiveRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	room, err := s.store.GetRoom(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "room")
	}
	if !room.IsActive {
		return nil, fmt.Errorf("%w: room %s is closed", ErrNotFound, room.Code)
	}
	return room, nil
}

// RoomMember возвращает участника, если он состоит в комнате roomID.
func (s *RoomService) RoomMember(ctx context.Context, roomID, memberID uuid.UUID) (*models.Member, error) {
	m, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, mapStoreError(err, "member")
	}
	if m.RoomID != roomID {
		return nil, fmt.Errorf("%w: member %s is not in room", ErrMembership, memberID)
	}
	return m, nil
}

func cleanName(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	if utf8.RuneCountInString(v) > maxNameLength {
		return "", fmt.Errorf("%w: %s is longer than %d characters", ErrValidation, field, maxNameLength)
	}
	return v, nil
}
