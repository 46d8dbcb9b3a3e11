package strategy

import "math/rand/v2"

// Delete обнуляет выбранные ячейки
type Delete struct{}

func newDelete(Params, *rand.Rand) (Strategy, error) { return Delete{}, nil }

// Generate возвращает count значений null
func (Delete) Generate(_ *Context, count int) ([]any, error) {
	return make([]any, count), nil
}
