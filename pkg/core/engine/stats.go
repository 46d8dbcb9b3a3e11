package engine

import (
	"time"

	"github.com/rs/zerolog"
)

// StepStats статистика генерации одной колонки
type StepStats struct {
	Step      int           `json:"step"`
	Column    string        `json:"column"`
	Strategy  string        `json:"strategy"`
	Operation Operation     `json:"operation"`
	Selected  int           `json:"selected"` // строк выбрано маской
	Written   int           `json:"written"`  // ячеек записано
	Duration  time.Duration `json:"duration"`
}

// Stats отчет о прогоне
type Stats struct {
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Rows      int           `json:"rows"`
	Columns   []string      `json:"columns"`
	Steps     []StepStats   `json:"steps"`
	Skipped   int           `json:"skipped"` // отключенные шаги
	Shuffled  bool          `json:"shuffled"`
	Dropped   []string      `json:"dropped"` // удаленные промежуточные колонки
}

// Written возвращает общее число записанных ячеек
func (s *Stats) Written() int {
	total := 0
	for _, st := range s.Steps {
		total += st.Written
	}
	return total
}

// Log выводит отчет о производительности
func (s *Stats) Log(logger zerolog.Logger) {
	for _, st := range s.Steps {
		logger.Debug().
			Int("step", st.Step).
			Str("column", st.Column).
			Str("strategy", st.Strategy).
			Str("operation", string(st.Operation)).
			Int("selected", st.Selected).
			Int("written", st.Written).
			Dur("duration", st.Duration).
			Msg("step finished")
	}
	logger.Info().
		Int("rows", s.Rows).
		Int("columns", len(s.Columns)).
		Int("steps", len(s.Steps)).
		Int("skipped", s.Skipped).
		Int("cells_written", s.Written()).
		Bool("shuffled", s.Shuffled).
		Strs("dropped", s.Dropped).
		Dur("duration", s.Duration).
		Msg("generation finished")
}
