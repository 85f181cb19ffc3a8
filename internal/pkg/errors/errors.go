package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden используется, когда действие запрещено правилами игры (например, повторная попытка).
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (например, параллельная отправка одного этапа).
	ErrConflict = errors.New("resource state conflict")

	// ErrUnavailable используется, когда внешняя зависимость (модель эмбеддингов, каталог) не может обслужить запрос.
	ErrUnavailable = errors.New("service unavailable")
)
