package services

import (
	"errors"

	"github.com/thereayou/score-rooms/internal/metrics"
)

// Классы ошибок ядра. Конкретные ошибки оборачивают их через %w, поэтому
// вызывающий различает их через errors.Is.
var (
	// ErrValidation пустые или некорректные поля, неположительная сумма
	ErrValidation = errors.New("validation failed")
	// ErrNotFound комнаты или участника нет, либо комната закрыта
	ErrNotFound = errors.New("not found")
	// ErrMembership участник из другой комнаты
	ErrMembership = errors.New("member does not belong to room")
	// ErrPersistence хранилище не смогло зафиксировать изменения; можно
	// повторить все действие целиком, сам движок повторов не делает
	ErrPersistence = errors.New("persistence failure")
)

// Kind возвращает машинное имя класса ошибки для ответов клиенту.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrMembership):
		return "membership"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "internal"
	}
}

func outcome(err error) string {
	switch Kind(err) {
	case "validation":
		return metrics.OutcomeValidation
	case "not_found":
		return metrics.OutcomeNotFound
	case "membership":
		return metrics.OutcomeMembership
	default:
		return metrics.OutcomePersistence
	}
}
