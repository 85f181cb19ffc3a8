package entity

// Level - уровень сложности изображения в каталоге
type Level string

const (
	LevelEasy   Level = "easy"
	LevelMedium Level = "medium"
	LevelHard   Level = "hard"
)

// Levels возвращает уровни в порядке прохождения игры
func Levels() []Level {
	return []Level{LevelEasy, LevelMedium, LevelHard}
}

// IsValid проверяет, что уровень известен
func (l Level) IsValid() bool {
	switch l {
	case LevelEasy, LevelMedium, LevelHard:
		return true
	}
	return false
}

// Stage - этап игровой сессии
type Stage string

const (
	StageEasy   Stage = "easy"
	StageMedium Stage = "medium"
	StageHard   Stage = "hard"
	StageDone   Stage = "done"
)

// PlayableStages возвращает игровые этапы в порядке прохождения
func PlayableStages() []Stage {
	return []Stage{StageEasy, StageMedium, StageHard}
}

// IsPlayable возвращает true для этапов, на которых принимаются ответы
func (s Stage) IsPlayable() bool {
	return s == StageEasy || s == StageMedium || s == StageHard
}

// Next возвращает этап, следующий за текущим. После hard игра завершается.
func (s Stage) Next() Stage {
	switch s {
	case StageEasy:
		return StageMedium
	case StageMedium:
		return StageHard
	default:
		return StageDone
	}
}

// Level возвращает уровень изображений, которые показываются на этапе.
// Для done возвращается пустое значение.
func (s Stage) Level() Level {
	switch s {
	case StageEasy:
		return LevelEasy
	case StageMedium:
		return LevelMedium
	case StageHard:
		return LevelHard
	}
	return ""
}

// SessionState - состояние игровой сессии
type SessionState string

const (
	SessionStateActive     SessionState = "active"     // игра идёт
	SessionStateCompleted  SessionState = "completed"  // пройден этап hard
	SessionStateEliminated SessionState = "eliminated" // выбыл на одном из этапов
)

// IsFinished возвращает true для терминальных состояний
func (s SessionState) IsFinished() bool {
	return s == SessionStateCompleted || s == SessionStateEliminated
}
