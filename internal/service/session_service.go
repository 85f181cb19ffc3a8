package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/promptgame-api/internal/domain/entity"
	"github.com/yourusername/promptgame-api/internal/domain/repository"
	"github.com/yourusername/promptgame-api/internal/handler/dto"
	apperrors "github.com/yourusername/promptgame-api/internal/pkg/errors"
	"github.com/yourusername/promptgame-api/internal/service/game"
	"github.com/yourusername/promptgame-api/pkg/logger"
	"github.com/yourusername/promptgame-api/pkg/monitoring"
)

// PromptScorer оценивает сходство двух промптов по шкале 0..100
type PromptScorer interface {
	Score(ctx context.Context, userPrompt, originalPrompt string) (float64, error)
}

// ImageURLResolver строит URL изображения по его file_path
type ImageURLResolver interface {
	ImageURL(ctx context.Context, filePath string) string
}

// LeaderboardInvalidator сбрасывает кеш лидерборда
type LeaderboardInvalidator interface {
	Invalidate()
}

// SessionService реализует жизненный цикл игровой сессии
type SessionService struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.SessionRepository
	imageRepo    repository.ImageRepository
	cacheRepo    repository.CacheRepository
	scorer       PromptScorer
	urls         ImageURLResolver
	leaderboard  LeaderboardInvalidator
	rules        *game.Rules
	startLockTTL time.Duration
}

// NewSessionService создает новый SessionService
func NewSessionService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	imageRepo repository.ImageRepository,
	cacheRepo repository.CacheRepository,
	scorer PromptScorer,
	urls ImageURLResolver,
	leaderboard LeaderboardInvalidator,
	rules *game.Rules,
	startLockTTL time.Duration,
) *SessionService {
	if startLockTTL <= 0 {
		startLockTTL = 10 * time.Second
	}
	return &SessionService{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		imageRepo:    imageRepo,
		cacheRepo:    cacheRepo,
		scorer:       scorer,
		urls:         urls,
		leaderboard:  leaderboard,
		rules:        rules,
		startLockTTL: startLockTTL,
	}
}

// Start начинает новую игру или возобновляет активную сессию игрока
func (s *SessionService) Start(ctx context.Context, displayName string) (*dto.StageImagesResponse, error) {
	name := entity.NormalizeDisplayName(displayName)
	if name == "" {
		return nil, ErrDisplayNameRequired
	}
	if utf8.RuneCountInString(name) > entity.MaxDisplayNameLength {
		return nil, ErrDisplayNameTooLong
	}

	// Параллельные старты одного игрока не должны создать две сессии
	lockKey := "start:lock:" + name
	acquired, err := s.cacheRepo.SetNX(lockKey, "1", s.startLockTTL)
	if err != nil {
		logger.Log.Warn("[SessionService] Кеш недоступен, старт без блокировки", zap.Error(err))
	} else if !acquired {
		return nil, ErrStartInProgress
	} else {
		defer func() {
			if err := s.cacheRepo.Delete(lockKey); err != nil {
				logger.Log.Warn("[SessionService] Не удалось снять блокировку старта", zap.Error(err))
			}
		}()
	}

	user, err := s.getOrCreateUser(name)
	if err != nil {
		return nil, err
	}

	finished, err := s.sessionRepo.HasFinishedSession(user.ID)
	if err != nil {
		return nil, fmt.Errorf("check finished sessions: %w", err)
	}
	if finished {
		return nil, ErrRerunForbidden
	}

	active, err := s.sessionRepo.GetActiveByUser(user.ID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	if active != nil {
		images, err := s.sessionRepo.GetStageImages(active.ID, active.CurrentStage)
		if err != nil {
			return nil, fmt.Errorf("get stage images: %w", err)
		}
		monitoring.SessionsStarted.WithLabelValues("resumed").Inc()
		logger.Log.Info("[SessionService] Сессия возобновлена",
			zap.String("session_id", active.ID), zap.String("stage", string(active.CurrentStage)))
		return s.stageResponse(ctx, active, images, true), nil
	}

	session, assigned, err := s.createSession(user.ID)
	if err != nil {
		return nil, err
	}

	monitoring.SessionsStarted.WithLabelValues("new").Inc()
	logger.Log.Info("[SessionService] Создана новая сессия",
		zap.String("session_id", session.ID), zap.String("user_id", user.ID))

	var easy []entity.SessionImage
	for _, si := range assigned {
		if si.StageName == entity.StageEasy {
			easy = append(easy, si)
		}
	}
	return s.stageResponse(ctx, session, easy, false), nil
}

func (s *SessionService) getOrCreateUser(name string) (*entity.User, error) {
	user, err := s.userRepo.GetByDisplayName(name)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}

	user = &entity.User{ID: uuid.NewString(), DisplayName: name}
	if err := s.userRepo.Create(user); err != nil {
		// Игрока успели создать параллельным запросом
		if errors.Is(err, apperrors.ErrConflict) {
			return s.userRepo.GetByDisplayName(name)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// createSession выбирает изображения для всех этапов и сохраняет сессию одной транзакцией
func (s *SessionService) createSession(userID string) (*entity.Session, []entity.SessionImage, error) {
	session := &entity.Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		State:        entity.SessionStateActive,
		CurrentStage: entity.StageEasy,
	}

	picked := make(map[entity.Level][]entity.Image)
	for _, stage := range entity.PlayableStages() {
		level := stage.Level()
		need := s.rules.Count(stage)
		images, err := s.imageRepo.PickRandomActive(nil, level, need)
		if err != nil {
			return nil, nil, fmt.Errorf("pick %s images: %w", level, err)
		}
		if len(images) < need {
			return nil, nil, fmt.Errorf("%w: not enough active %s images in catalog (need %d, have %d)",
				apperrors.ErrUnavailable, level, need, len(images))
		}
		picked[level] = images
	}

	plan := s.rules.Plan()
	assigned := make([]entity.SessionImage, 0, len(plan))
	used := make(map[entity.Level]int)
	for _, slot := range plan {
		img := picked[slot.Level][used[slot.Level]]
		used[slot.Level]++
		assigned = append(assigned, entity.SessionImage{
			ID:         uuid.NewString(),
			SessionID:  session.ID,
			ImageID:    img.ID,
			Level:      slot.Level,
			StageName:  slot.Stage,
			StageOrder: slot.StageOrder,
			Image:      &img,
		})
	}

	if err := s.sessionRepo.CreateWithImages(session, withoutImageRefs(assigned)); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	return session, assigned, nil
}

// withoutImageRefs убирает ссылки на каталог, чтобы GORM не пытался сохранить ассоциации
func withoutImageRefs(images []entity.SessionImage) []entity.SessionImage {
	out := make([]entity.SessionImage, len(images))
	for i, si := range images {
		si.Image = nil
		out[i] = si
	}
	return out
}

// NextStage возвращает изображения текущего этапа активной сессии
func (s *SessionService) NextStage(ctx context.Context, sessionID string) (*dto.StageImagesResponse, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, ErrSessionNotActive
	}
	if !session.CurrentStage.IsPlayable() {
		return nil, ErrNoActiveStage
	}

	images, err := s.sessionRepo.GetStageImages(session.ID, session.CurrentStage)
	if err != nil {
		return nil, fmt.Errorf("get stage images: %w", err)
	}
	return s.stageResponse(ctx, session, images, false), nil
}

// SubmitStage оценивает ответы текущего этапа и переводит сессию дальше
func (s *SessionService) SubmitStage(ctx context.Context, sessionID string, items []dto.SubmitItem) (*dto.StageResultResponse, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, fmt.Errorf("%w (state=%s)", ErrSessionNotActive, session.State)
	}
	stage := session.CurrentStage
	if !stage.IsPlayable() {
		return nil, ErrNoActiveStage
	}

	images, err := s.sessionRepo.GetStageImages(session.ID, stage)
	if err != nil {
		return nil, fmt.Errorf("get stage images: %w", err)
	}
	expected := s.rules.Count(stage)
	if len(images) != expected {
		return nil, fmt.Errorf("session %s has %d images for stage %s, rules expect %d",
			session.ID, len(images), stage, expected)
	}

	byID, err := validateItems(stage, expected, items, images)
	if err != nil {
		return nil, err
	}

	// Оценка идёт вне транзакции: запрос к модели может быть долгим
	scored := make([]repository.ScoredImage, 0, len(items))
	scores := make(map[string]float64, len(items))
	for _, item := range items {
		si := byID[strings.TrimSpace(item.SessionImageID)]
		if si.Image == nil {
			return nil, fmt.Errorf("catalog image %s for session image %s is not loaded", si.ImageID, si.ID)
		}
		prompt := strings.TrimSpace(item.UserPrompt)
		score, err := s.scorer.Score(ctx, prompt, si.Image.OriginalPrompt)
		if err != nil {
			return nil, fmt.Errorf("score session image %s: %w", si.ID, err)
		}
		scores[si.ID] = score
		scored = append(scored, repository.ScoredImage{
			SessionImageID: si.ID,
			UserPrompt:     prompt,
			Score:          score,
			Points:         s.rules.Points(si.Level, score),
		})
	}

	results := make([]game.ImageResult, 0, len(images))
	for _, si := range images {
		score := scores[si.ID]
		results = append(results, game.ImageResult{SessionImageID: si.ID, StageOrder: si.StageOrder, Score: &score})
	}
	outcome, err := s.rules.Evaluate(stage, results)
	if err != nil {
		return nil, err
	}

	update := repository.StageUpdate{
		Stage:     stage,
		Scored:    scored,
		NextStage: outcome.NextStage,
		NextState: outcome.NextState,
	}
	if !outcome.Passed {
		idx := outcome.EliminatedIndex
		update.EliminatedAt = outcome.EliminatedAt
		update.EliminatedImageOrder = &idx
	}

	commit, err := s.sessionRepo.ApplyStageResult(session.ID, update)
	if err != nil {
		return nil, err
	}

	label := "passed"
	switch outcome.NextState {
	case entity.SessionStateEliminated:
		label = "eliminated"
	case entity.SessionStateCompleted:
		label = "completed"
	}
	monitoring.StageSubmissions.WithLabelValues(string(stage), label).Inc()
	if outcome.NextState.IsFinished() && s.leaderboard != nil {
		s.leaderboard.Invalidate()
	}

	logger.Log.Info("[SessionService] Этап отправлен",
		zap.String("session_id", session.ID),
		zap.String("stage", string(stage)),
		zap.String("outcome", label),
		zap.Int("total_points", commit.TotalPoints))

	resp := &dto.StageResultResponse{
		NextStage:       outcome.NextStage,
		Passed:          outcome.Passed,
		ImagesCompleted: commit.ImagesCompleted,
		Matches:         make([]dto.MatchDTO, 0, len(images)),
	}
	if commit.Session != nil && commit.Session.TotalScore != nil {
		total := *commit.Session.TotalScore
		resp.TotalScore = &total
	}
	for i, si := range images {
		score := scores[si.ID]
		resp.Matches = append(resp.Matches, dto.MatchDTO{
			StageOrder: i + 1,
			Level:      si.Level,
			Score:      score,
			Points:     s.rules.Points(si.Level, score),
		})
		if !outcome.Passed && si.ID == outcome.EliminatedID {
			prompt := si.Image.OriginalPrompt
			url := s.urls.ImageURL(ctx, si.Image.FilePath)
			resp.EliminatedAt = outcome.EliminatedAt
			resp.EliminatedPrompt = &prompt
			resp.EliminatedImageURL = &url
		}
	}
	return resp, nil
}

// validateItems проверяет ответы этапа и возвращает изображения этапа по id
func validateItems(stage entity.Stage, expected int, items []dto.SubmitItem, images []entity.SessionImage) (map[string]entity.SessionImage, error) {
	if len(items) != expected {
		return nil, fmt.Errorf("%w: stage %s expects %d items, got %d", apperrors.ErrValidation, stage, expected, len(items))
	}

	byID := make(map[string]entity.SessionImage, len(images))
	for _, si := range images {
		byID[si.ID] = si
	}

	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		id := strings.TrimSpace(item.SessionImageID)
		if id == "" {
			return nil, fmt.Errorf("%w: item %d: session_image_id is required", apperrors.ErrValidation, i+1)
		}
		if strings.TrimSpace(item.UserPrompt) == "" {
			return nil, fmt.Errorf("%w: item %d: user_prompt is required", apperrors.ErrValidation, i+1)
		}
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("%w: session_image_id %s does not belong to stage %s", apperrors.ErrValidation, id, stage)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate session_image_id %s", apperrors.ErrValidation, id)
		}
		seen[id] = struct{}{}
	}
	return byID, nil
}

// Status возвращает полное состояние сессии со всеми изображениями
func (s *SessionService) Status(ctx context.Context, sessionID string) (*dto.StatusResponse, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	images, err := s.sessionRepo.GetAllImages(session.ID)
	if err != nil {
		return nil, fmt.Errorf("get session images: %w", err)
	}

	resp := &dto.StatusResponse{
		SessionID:       session.ID,
		State:           session.State,
		CurrentStage:    session.CurrentStage,
		TotalScore:      session.TotalScore,
		ImagesCompleted: session.ImagesCompleted,
		EliminatedAt:    session.EliminatedAt,
		CompletedAt:     session.CompletedAt,
		Images:          make([]dto.StatusImageDTO, 0, len(images)),
	}
	for _, si := range images {
		resp.Images = append(resp.Images, dto.StatusImageDTO{
			SessionImageID: si.ID,
			ImageID:        si.ImageID,
			ImageURL:       s.imageURL(ctx, si),
			Level:          si.Level,
			StageName:      si.StageName,
			StageOrder:     si.StageOrder,
			UserPrompt:     si.UserPrompt,
			Score:          si.Score,
			Points:         si.Points,
		})
	}
	return resp, nil
}

func (s *SessionService) stageResponse(ctx context.Context, session *entity.Session, images []entity.SessionImage, resumed bool) *dto.StageImagesResponse {
	resp := &dto.StageImagesResponse{
		SessionID:    session.ID,
		CurrentStage: session.CurrentStage,
		Resumed:      resumed,
		Images:       make([]dto.StageImageDTO, 0, len(images)),
	}
	for _, si := range images {
		resp.Images = append(resp.Images, dto.StageImageDTO{
			SessionImageID: si.ID,
			ImageID:        si.ImageID,
			ImageURL:       s.imageURL(ctx, si),
			Level:          si.Level,
			StageOrder:     si.StageOrder,
			StageName:      si.StageName,
		})
	}
	return resp
}

func (s *SessionService) imageURL(ctx context.Context, si entity.SessionImage) string {
	if si.Image == nil {
		return ""
	}
	return s.urls.ImageURL(ctx, si.Image.FilePath)
}
