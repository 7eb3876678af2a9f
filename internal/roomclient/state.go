// Package roomclient клиентская сторона комнаты: держит локальный вид
// комнаты согласованным со снимком сервера при потерях событий и
// переподключениях.
package roomclient

import "errors"

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateSynced
	// StateAbandoned комната удалена или закрыта либо сессия устарела,
	// нужен новый вход
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSynced:
		return "synced"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

var (
	// ErrRoomGone комнаты нет или она неактивна
	ErrRoomGone = errors.New("room does not exist or is closed")
	// ErrStaleSession участник сессии не состоит в этой комнате
	ErrStaleSession = errors.New("member does not belong to the room")
	// ErrChannel канал реального времени недоступен; переводы по HTTP
	// продолжают работать
	ErrChannel = errors.New("real-time channel unavailable")
)
