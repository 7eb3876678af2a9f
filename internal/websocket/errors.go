package websocket

import (
	"errors"

	"github.com/thereayou/score-rooms/internal/services"
)

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrClientClosed    = errors.New("client session is closed")
	ErrInvalidMessage  = errors.New("invalid message format")
	ErrNotInRoom       = errors.New("session has not entered this room")
	ErrRateLimited     = errors.New("too many commands")
)

// ErrorKind имя класса ошибки для сообщения error
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidMessage):
		return "validation"
	case errors.Is(err, ErrNotInRoom):
		return "membership"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return services.Kind(err)
	}
}
