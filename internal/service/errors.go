package service

import (
	"fmt"

	apperrors "github.com/yourusername/promptgame-api/internal/pkg/errors"
)

// RerunMessage - ответ игроку, который уже завершил свою попытку
const RerunMessage = "No reruns, ace! You've already flown this mission. Leaderboard's that way."

// Ошибки игровых сервисов. Все оборачивают общие ошибки приложения,
// поэтому обработчики сопоставляют их со статусами через errors.Is.
var (
	ErrDisplayNameRequired = fmt.Errorf("%w: display name required", apperrors.ErrValidation)
	ErrDisplayNameTooLong  = fmt.Errorf("%w: display name is too long", apperrors.ErrValidation)
	ErrRerunForbidden      = fmt.Errorf("%w: %s", apperrors.ErrForbidden, RerunMessage)
	ErrSessionNotActive    = fmt.Errorf("%w: session not active", apperrors.ErrValidation)
	ErrNoActiveStage       = fmt.Errorf("%w: no active stage", apperrors.ErrValidation)
	ErrStartInProgress     = fmt.Errorf("%w: start already in progress for this player", apperrors.ErrConflict)
)
