package game

import (
	"math"

	"github.com/yourusername/promptgame-api/internal/config"
	"github.com/yourusername/promptgame-api/internal/domain/entity"
)

// Slot - позиция изображения в плане сессии
type Slot struct {
	Stage      entity.Stage
	Level      entity.Level
	StageOrder int // глобальный порядок 1..N
}

// Rules - правила этапов: количество изображений, порог прохождения, вес очков
type Rules struct {
	stages map[entity.Stage]config.StageRules
}

// NewRules создает правила из конфигурации игры
func NewRules(cfg config.GameConfig) *Rules {
	return &Rules{stages: map[entity.Stage]config.StageRules{
		entity.StageEasy:   cfg.Easy,
		entity.StageMedium: cfg.Medium,
		entity.StageHard:   cfg.Hard,
	}}
}

// DefaultRules возвращает стандартные правила: 1/2/2 изображения, пороги 70/75/85, веса 20/40/50
func DefaultRules() *Rules {
	return NewRules(config.GameConfig{
		Easy:   config.StageRules{Count: 1, Threshold: 70, Weight: 20},
		Medium: config.StageRules{Count: 2, Threshold: 75, Weight: 40},
		Hard:   config.StageRules{Count: 2, Threshold: 85, Weight: 50},
	})
}

// Stage возвращает правила этапа. Для done возвращается false.
func (r *Rules) Stage(stage entity.Stage) (config.StageRules, bool) {
	rules, ok := r.stages[stage]
	return rules, ok
}

// Count возвращает количество изображений на этапе
func (r *Rules) Count(stage entity.Stage) int {
	return r.stages[stage].Count
}

// Threshold возвращает порог прохождения этапа
func (r *Rules) Threshold(stage entity.Stage) float64 {
	return r.stages[stage].Threshold
}

// Points переводит балл сходства в очки: floor(score × weight / 100).
// Балл ограничивается диапазоном 0..100, поэтому очки не превышают вес уровня.
func (r *Rules) Points(level entity.Level, score float64) int {
	if math.IsNaN(score) || score <= 0 {
		return 0
	}
	if score > 100 {
		score = 100
	}
	weight := r.stages[entity.Stage(level)].Weight
	return int(math.Floor(score * float64(weight) / 100))
}

// TotalImages возвращает число изображений за всю игру
func (r *Rules) TotalImages() int {
	total := 0
	for _, stage := range entity.PlayableStages() {
		total += r.Count(stage)
	}
	return total
}

// MaxTotal возвращает максимально возможную сумму очков
func (r *Rules) MaxTotal() int {
	total := 0
	for _, stage := range entity.PlayableStages() {
		rules := r.stages[stage]
		total += rules.Count * rules.Weight
	}
	return total
}

// Plan возвращает раскладку изображений сессии: сначала easy, затем medium, затем hard,
// stage_order идёт подряд с 1
func (r *Rules) Plan() []Slot {
	slots := make([]Slot, 0, r.TotalImages())
	order := 1
	for _, stage := range entity.PlayableStages() {
		for i := 0; i < r.Count(stage); i++ {
			slots = append(slots, Slot{Stage: stage, Level: stage.Level(), StageOrder: order})
			order++
		}
	}
	return slots
}
