package strategy

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"regexp/syntax"
	"strings"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
)

const (
	defaultMaxRepeat = 10
	patternAttempts  = 100
)

// printable печатные ASCII-символы, которыми ограничиваются классы символов
var printable = []rune{0x20, 0x7e}

// Pattern строки, полностью совпадающие с регулярным выражением
type Pattern struct {
	source    string
	re        *syntax.Regexp
	full      *regexp.Regexp
	maxRepeat int
	rng       *rand.Rand
}

func newPattern(p Params, rng *rand.Rand) (Strategy, error) {
	source := p.String("regex")
	s := &Pattern{source: source, maxRepeat: p.Int("max_repeat"), rng: rng}

	var errs []generr.FieldError
	re, err := syntax.Parse(source, syntax.Perl)
	if err != nil {
		errs = append(errs, generr.FieldError{Field: "regex", Message: err.Error()})
	} else {
		s.re = re
		s.full, err = regexp.Compile(`\A(?:` + source + `)\z`)
		if err != nil {
			errs = append(errs, generr.FieldError{Field: "regex", Message: err.Error()})
		}
	}
	if s.maxRepeat < 0 {
		errs = append(errs, generr.FieldError{Field: "max_repeat", Message: "must not be negative"})
	}
	if len(errs) > 0 {
		return nil, generr.Validation(errs)
	}
	return s, nil
}

// Generate возвращает count строк, каждая проверена полным совпадением
func (s *Pattern) Generate(_ *Context, count int) ([]any, error) {
	out := make([]any, count)
	var b strings.Builder
	for i := range out {
		ok := false
		for attempt := 0; attempt < patternAttempts; attempt++ {
			b.Reset()
			if err := s.walk(&b, s.re); err != nil {
				return nil, err
			}
			if s.full.MatchString(b.String()) {
				ok = true
				break
			}
		}
		if !ok {
			return nil, generr.Generation("cannot produce a string matching %q in %d attempts", s.source, patternAttempts)
		}
		out[i] = b.String()
	}
	return out, nil
}

func (s *Pattern) walk(b *strings.Builder, re *syntax.Regexp) error {
	switch re.Op {
	case syntax.OpNoMatch:
		return generr.Generation("pattern %q matches nothing", s.source)

	case syntax.OpEmptyMatch,
		syntax.OpBeginLine, syntax.OpEndLine,
		syntax.OpBeginText, syntax.OpEndText,
		syntax.OpWordBoundary, syntax.OpNoWordBoundary:
		// якоря и границы слова ничего не добавляют

	case syntax.OpLiteral:
		b.WriteString(string(re.Rune))

	case syntax.OpCharClass:
		r, err := s.pickRune(re.Rune)
		if err != nil {
			return err
		}
		b.WriteRune(r)

	case syntax.OpAnyCharNotNL, syntax.OpAnyChar:
		r, _ := s.pickRune(printable)
		b.WriteRune(r)

	case syntax.OpCapture:
		return s.walk(b, re.Sub[0])

	case syntax.OpStar, syntax.OpPlus, syntax.OpQuest, syntax.OpRepeat:
		lo, hi := s.bounds(re)
		n := lo + s.rng.IntN(hi-lo+1)
		for i := 0; i < n; i++ {
			if err := s.walk(b, re.Sub[0]); err != nil {
				return err
			}
		}

	case syntax.OpConcat:
		for _, sub := range re.Sub {
			if err := s.walk(b, sub); err != nil {
				return err
			}
		}

	case syntax.OpAlternate:
		return s.walk(b, re.Sub[s.rng.IntN(len(re.Sub))])

	default:
		return generr.Generation("unsupported construct %s in pattern %q", re.Op, s.source)
	}
	return nil
}

// bounds возвращает число повторений квантификатора.
// Неограниченные квантификаторы ограничиваются maxRepeat.
func (s *Pattern) bounds(re *syntax.Regexp) (int, int) {
	switch re.Op {
	case syntax.OpStar:
		return 0, s.maxRepeat
	case syntax.OpPlus:
		return 1, max(1, s.maxRepeat)
	case syntax.OpQuest:
		return 0, 1
	}
	if re.Max < 0 {
		return re.Min, max(re.Min, s.maxRepeat)
	}
	return re.Min, re.Max
}

// pickRune выбирает символ класса, предпочитая печатные ASCII
func (s *Pattern) pickRune(ranges []rune) (rune, error) {
	if len(ranges) == 0 {
		return 0, generr.Generation("empty character class in pattern %q", s.source)
	}
	candidates := intersectRanges(ranges, printable)
	if len(candidates) == 0 {
		candidates = ranges
	}

	var total int
	for i := 0; i < len(candidates); i += 2 {
		total += int(candidates[i+1]-candidates[i]) + 1
	}
	k := s.rng.IntN(total)
	for i := 0; i < len(candidates); i += 2 {
		size := int(candidates[i+1]-candidates[i]) + 1
		if k < size {
			return candidates[i] + rune(k), nil
		}
		k -= size
	}
	return 0, fmt.Errorf("unreachable: rune index out of class")
}

// intersectRanges пересекает класс (пары lo, hi) с одним диапазоном
func intersectRanges(ranges []rune, with []rune) []rune {
	var out []rune
	for i := 0; i+1 < len(ranges); i += 2 {
		lo, hi := max(ranges[i], with[0]), min(ranges[i+1], with[1])
		if lo <= hi {
			out = append(out, lo, hi)
		}
	}
	return out
}
