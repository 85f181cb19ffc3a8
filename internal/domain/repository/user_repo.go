package repository

import (
	"github.com/yourusername/promptgame-api/internal/domain/entity"
)

// UserRepository определяет методы для работы с игроками
type UserRepository interface {
	Create(user *entity.User) error
	GetByID(id string) (*entity.User, error)
	GetByDisplayName(displayName string) (*entity.User, error)
}
