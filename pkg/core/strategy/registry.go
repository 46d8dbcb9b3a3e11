package strategy

import (
	"errors"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
)

// Constructor создает стратегию из провалидированных параметров.
// rng - собственный источник случайности экземпляра.
type Constructor func(p Params, rng *rand.Rand) (Strategy, error)

type entry struct {
	schema Schema
	ctor   Constructor
}

// Registry реестр стратегий: имя → конструктор + схема параметров.
// Поиск по имени нечувствителен к регистру.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry // ключ - имя в верхнем регистре
	order   []string          // канонические имена в порядке регистрации
}

// NewRegistry создает пустой реестр
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// NewDefaultRegistry создает реестр со всеми встроенными стратегиями
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	registerBuiltins(r)
	return r
}

// DefaultRegistry реестр со всеми встроенными стратегиями
var DefaultRegistry = NewDefaultRegistry()

// seedField добавляется в схему каждой стратегии
var seedField = Field{
	Name:        "seed",
	Type:        TypeInt,
	Description: "seed of the strategy random source, makes the step reproducible",
}

// Register регистрирует стратегию под именем name и псевдонимами схемы.
// Повторная регистрация заменяет предыдущую.
func (r *Registry) Register(name string, ctor Constructor, schema Schema) {
	schema.Name = name
	if _, ok := schema.Field(seedField.Name); !ok {
		schema.Fields = append(schema.Fields, seedField)
	}
	e := &entry{schema: schema, ctor: ctor}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToUpper(name)
	if _, exists := r.entries[key]; !exists {
		r.order = append(r.order, name)
	}
	r.entries[key] = e
	for _, alias := range schema.Aliases {
		r.entries[strings.ToUpper(alias)] = e
	}
}

// Lookup возвращает схему стратегии по имени или псевдониму
func (r *Registry) Lookup(name string) (Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Schema{}, false
	}
	return e.schema.clone(), true
}

// CreateOption опция создания стратегии
type CreateOption func(*createOptions)

type createOptions struct {
	seed    uint64
	hasSeed bool
}

// WithSeed задает seed по умолчанию (параметр seed имеет приоритет)
func WithSeed(seed uint64) CreateOption {
	return func(o *createOptions) {
		o.seed = seed
		o.hasSeed = true
	}
}

// Create валидирует параметры и создает новый экземпляр стратегии
func (r *Registry) Create(name string, params map[string]any, opts ...CreateOption) (Strategy, error) {
	r.mu.RLock()
	e, ok := r.entries[strings.ToUpper(strings.TrimSpace(name))]
	r.mu.RUnlock()
	if !ok {
		return nil, generr.Configuration("unknown strategy %q", name)
	}

	// некорректные поля заменяются значениями по умолчанию, поэтому
	// конструктор проверяет остальные поля и при ошибках схемы
	p, fieldErrs := e.schema.Validate(params)

	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}
	seed := rand.Uint64()
	if o.hasSeed {
		seed = o.seed
	}
	if p.Has(seedField.Name) {
		seed = uint64(p.Int(seedField.Name))
	}

	s, err := e.ctor(p, NewRand(seed))
	if len(fieldErrs) > 0 {
		var gerr *generr.Error
		if errors.As(err, &gerr) && gerr.Kind == generr.KindValidation {
			fieldErrs = mergeFieldErrors(fieldErrs, gerr.Fields)
		}
		verr := generr.Validation(fieldErrs)
		verr.Msg = "invalid parameters for " + e.schema.Name
		return nil, verr
	}
	if err != nil {
		var gerr *generr.Error
		if errors.As(err, &gerr) {
			if gerr.Kind == generr.KindValidation && gerr.Msg == "invalid parameters" {
				gerr.Msg = "invalid parameters for " + e.schema.Name
			}
			return nil, gerr
		}
		return nil, generr.Configuration("failed to create strategy %s: %v", e.schema.Name, err)
	}
	return s, nil
}

// mergeFieldErrors дописывает к ошибкам схемы ошибки конструктора
// по полям, которые схема еще не назвала
func mergeFieldErrors(schemaErrs, ctorErrs []generr.FieldError) []generr.FieldError {
	out := schemaErrs
	for _, ce := range ctorErrs {
		reported := false
		for _, se := range schemaErrs {
			if ce.Field == se.Field || strings.HasPrefix(ce.Field, se.Field+".") || strings.HasPrefix(ce.Field, se.Field+"[") {
				reported = true
				break
			}
		}
		if !reported {
			out = append(out, ce)
		}
	}
	return out
}

// Names возвращает канонические имена в порядке регистрации
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Schemas возвращает копии схем всех стратегий, отсортированные по имени
func (r *Registry) Schemas() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Schema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[strings.ToUpper(name)].schema.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NewRand создает детерминированный источник случайности
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
