package game

import (
	"fmt"
	"sort"

	"github.com/yourusername/promptgame-api/internal/domain/entity"
)

// ImageResult - результат по одному изображению этапа
type ImageResult struct {
	SessionImageID string
	StageOrder     int      // глобальный порядок
	Score          *float64 // nil, если ответа нет
}

// Outcome - итог этапа и переход сессии
type Outcome struct {
	Passed    bool
	NextStage entity.Stage
	NextState entity.SessionState

	// Заполняются при выбывании
	EliminatedAt    *string
	EliminatedIndex int    // позиция внутри этапа, с 1
	EliminatedID    string // session_image_id провалившегося изображения
}

// Evaluate определяет исход этапа. Изображения проверяются в порядке stage_order,
// первое с баллом ниже порога (или без балла) выбивает игрока.
func (r *Rules) Evaluate(stage entity.Stage, results []ImageResult) (Outcome, error) {
	rules, ok := r.Stage(stage)
	if !ok {
		return Outcome{}, fmt.Errorf("stage %q is not playable", stage)
	}
	if len(results) != rules.Count {
		return Outcome{}, fmt.Errorf("stage %s expects %d images, got %d", stage, rules.Count, len(results))
	}

	ordered := make([]ImageResult, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].StageOrder < ordered[j].StageOrder })

	for i, res := range ordered {
		if res.Score == nil || *res.Score < rules.Threshold {
			at := entity.FormatEliminatedAt(stage, i+1)
			return Outcome{
				Passed:          false,
				NextStage:       entity.StageDone,
				NextState:       entity.SessionStateEliminated,
				EliminatedAt:    &at,
				EliminatedIndex: i + 1,
				EliminatedID:    res.SessionImageID,
			}, nil
		}
	}

	next := stage.Next()
	state := entity.SessionStateActive
	if next == entity.StageDone {
		state = entity.SessionStateCompleted
	}
	return Outcome{Passed: true, NextStage: next, NextState: state}, nil
}
