package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/promptgame-api/internal/domain/entity"
	"github.com/yourusername/promptgame-api/internal/domain/repository"
	apperrors "github.com/yourusername/promptgame-api/internal/pkg/errors"
)

// SessionRepo реализует repository.SessionRepository
type SessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo создает новый репозиторий игровых сессий
func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// CreateWithImages создаёт сессию и все её назначения изображений в одной транзакции
func (r *SessionRepo) CreateWithImages(session *entity.Session, images []entity.SessionImage) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		if len(images) == 0 {
			return nil
		}
		return tx.Create(&images).Error
	})
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: duplicate stage order for session %s", apperrors.ErrConflict, session.ID)
	}
	return err
}

// GetByID возвращает сессию по ID
func (r *SessionRepo) GetByID(id string) (*entity.Session, error) {
	var session entity.Session
	err := r.db.Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetActiveByUser возвращает самую свежую активную сессию пользователя
func (r *SessionRepo) GetActiveByUser(userID string) (*entity.Session, error) {
	var session entity.Session
	err := r.db.Where("user_id = ? AND state = ?", userID, entity.SessionStateActive).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// HasFinishedSession проверяет, есть ли у пользователя завершённая или проигранная сессия
func (r *SessionRepo) HasFinishedSession(userID string) (bool, error) {
	var count int64
	err := r.db.Model(&entity.Session{}).
		Where("user_id = ? AND state IN ?", userID, []entity.SessionState{entity.SessionStateCompleted, entity.SessionStateEliminated}).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetStageImages возвращает изображения этапа вместе с записями каталога
func (r *SessionRepo) GetStageImages(sessionID string, stage entity.Stage) ([]entity.SessionImage, error) {
	var images []entity.SessionImage
	err := r.db.Preload("Image").
		Where("session_id = ? AND stage_name = ?", sessionID, stage).
		Order("stage_order ASC").
		Find(&images).Error
	return images, err
}

// GetAllImages возвращает все изображения сессии вместе с записями каталога
func (r *SessionRepo) GetAllImages(sessionID string) ([]entity.SessionImage, error) {
	var images []entity.SessionImage
	err := r.db.Preload("Image").
		Where("session_id = ?", sessionID).
		Order("stage_order ASC").
		Find(&images).Error
	return images, err
}

// ApplyStageResult сохраняет ответы этапа и переход сессии в одной транзакции.
// Строка сессии блокируется (SELECT ... FOR UPDATE), состояние и этап перепроверяются под блокировкой,
// поэтому параллельные отправки одного этапа сериализуются: вторая получает ErrConflict.
func (r *SessionRepo) ApplyStageResult(sessionID string, update repository.StageUpdate) (*repository.StageCommit, error) {
	commit := &repository.StageCommit{}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var session entity.Session
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", sessionID).
			First(&session).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}

		if !session.IsActive() || session.CurrentStage != update.Stage {
			return fmt.Errorf("%w: session %s is %s at stage %s, submission was for stage %s",
				apperrors.ErrConflict, sessionID, session.State, session.CurrentStage, update.Stage)
		}

		now := time.Now()
		for _, scored := range update.Scored {
			result := tx.Model(&entity.SessionImage{}).
				Where("id = ? AND session_id = ? AND stage_name = ?", scored.SessionImageID, sessionID, update.Stage).
				Updates(map[string]interface{}{
					"user_prompt": scored.UserPrompt,
					"score":       scored.Score,
					"points":      scored.Points,
					"scored_at":   now,
				})
			if result.Error != nil {
				return fmt.Errorf("failed to save score for session image %s: %w", scored.SessionImageID, result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: session image %s is not part of stage %s", apperrors.ErrConflict, scored.SessionImageID, update.Stage)
			}
		}

		var completed int64
		if err := tx.Model(&entity.SessionImage{}).
			Where("session_id = ? AND score IS NOT NULL", sessionID).
			Count(&completed).Error; err != nil {
			return err
		}

		var totalPoints int64
		if err := tx.Model(&entity.SessionImage{}).
			Where("session_id = ?", sessionID).
			Select("COALESCE(SUM(points), 0)").
			Scan(&totalPoints).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"images_completed": completed,
			"current_stage":    update.NextStage,
			"state":            update.NextState,
			"updated_at":       now,
		}
		switch update.NextState {
		case entity.SessionStateEliminated:
			updates["total_score"] = float64(totalPoints)
			updates["eliminated_at"] = update.EliminatedAt
			updates["eliminated_stage"] = update.Stage
			updates["eliminated_image_order"] = update.EliminatedImageOrder
		case entity.SessionStateCompleted:
			updates["total_score"] = float64(totalPoints)
			updates["completed_at"] = now
		}

		if err := tx.Model(&entity.Session{}).Where("id = ?", sessionID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update session %s: %w", sessionID, err)
		}

		if err := tx.Where("id = ?", sessionID).First(&session).Error; err != nil {
			return err
		}

		commit.ImagesCompleted = int(completed)
		commit.TotalPoints = int(totalPoints)
		commit.Session = &session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return commit, nil
}

// GetLeaderboard возвращает завершённые сессии для лидерборда с пагинацией и общим количеством.
// Сортировка: очки по убыванию, при равенстве завершившие игру выше выбывших, затем более ранние.
func (r *SessionRepo) GetLeaderboard(limit, offset int) ([]repository.LeaderboardEntry, int64, error) {
	var entries []repository.LeaderboardEntry
	var total int64

	finished := []entity.SessionState{entity.SessionStateCompleted, entity.SessionStateEliminated}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.Session{}).
			Where("state IN ? AND total_score IS NOT NULL", finished).
			Count(&total).Error; err != nil {
			return err
		}

		return tx.Table("sessions AS s").
			Select("s.id AS session_id, u.display_name, s.total_score, s.state, s.eliminated_at, s.created_at, s.completed_at").
			Joins("JOIN users u ON u.id = s.user_id").
			Where("s.state IN ? AND s.total_score IS NOT NULL", finished).
			Order("s.total_score DESC, (s.state = 'completed') DESC, s.created_at ASC").
			Limit(limit).
			Offset(offset).
			Scan(&entries).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
