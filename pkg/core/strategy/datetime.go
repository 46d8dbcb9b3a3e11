package strategy

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
)

const (
	defaultDateFormat = "%Y-%m-%d"
	defaultTimeFormat = "%H:%M:%S"
	secondsPerDay     = 24 * 60 * 60
)

// timeOfDayDirectives директивы strftime, задающие время суток
var timeOfDayDirectives = []string{"%H", "%I", "%k", "%l", "%M", "%S", "%T", "%R", "%r", "%X", "%c", "%s", "%p"}

func hasTimeOfDay(format string) bool {
	for _, d := range timeOfDayDirectives {
		if strings.Contains(format, d) {
			return true
		}
	}
	return false
}

// inputFormat возвращает формат разбора: format или устаревший input_format
func inputFormat(p Params, def string) string {
	if f := p.String("format"); f != "" {
		return f
	}
	if f := p.String("input_format"); f != "" {
		return f
	}
	return def
}

// dateRange равномерный выбор момента в [start, end]
type dateRange struct {
	start, end time.Time
	// step шаг выбора: сутки, если формат не содержит времени, иначе секунда
	step   time.Duration
	output string
}

func newDateRange(startValue, endValue, format, output string) (dateRange, []generr.FieldError) {
	var errs []generr.FieldError
	start, err := strftime.Parse(format, startValue)
	if err != nil {
		errs = append(errs, generr.FieldError{Field: "start_date", Message: fmt.Sprintf("cannot parse %q with %q: %v", startValue, format, err)})
	}
	end, err := strftime.Parse(format, endValue)
	if err != nil {
		errs = append(errs, generr.FieldError{Field: "end_date", Message: fmt.Sprintf("cannot parse %q with %q: %v", endValue, format, err)})
	}
	if len(errs) == 0 && end.Before(start) {
		errs = append(errs, generr.FieldError{Field: "end_date", Message: fmt.Sprintf("%s is before %s", endValue, startValue)})
	}
	if output == "" {
		output = format
	}
	if _, err := strftime.Layout(output); err != nil {
		errs = append(errs, generr.FieldError{Field: "output_format", Message: err.Error()})
	}

	d := dateRange{start: start, end: end, step: time.Second, output: output}
	if !hasTimeOfDay(format) {
		d.step = 24 * time.Hour
	}
	return d, errs
}

// draw считает в секундах Unix: time.Duration ограничен ~292 годами
func (d dateRange) draw(rng *rand.Rand) string {
	step := int64(d.step / time.Second)
	first := d.start.Unix()
	steps := (d.end.Unix() - first) / step
	t := time.Unix(first+rng.Int64N(steps+1)*step, 0).In(d.start.Location())
	return strftime.Format(d.output, t)
}

// DateGenerator случайные даты в [start_date, end_date]
type DateGenerator struct {
	r   dateRange
	rng *rand.Rand
}

func newDateGenerator(p Params, rng *rand.Rand) (Strategy, error) {
	r, errs := newDateRange(p.String("start_date"), p.String("end_date"),
		inputFormat(p, defaultDateFormat), p.String("output_format"))
	if len(errs) > 0 {
		return nil, generr.Validation(errs)
	}
	return &DateGenerator{r: r, rng: rng}, nil
}

// Generate возвращает count отформатированных дат
func (s *DateGenerator) Generate(_ *Context, count int) ([]any, error) {
	out := make([]any, count)
	for i := range out {
		out[i] = s.r.draw(s.rng)
	}
	return out, nil
}

// timeRange равномерный выбор секунды суток в [start, end].
// Если end < start, диапазон проходит через полночь.
type timeRange struct {
	start, span int64
	output      string
}

func secondOfDay(format, value string) (int64, error) {
	t, err := strftime.Parse(format, value)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q with %q: %v", value, format, err)
	}
	return int64(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
}

func newTimeRange(startValue, endValue, format, output string, startField, endField string) (timeRange, []generr.FieldError) {
	var errs []generr.FieldError
	start, err := secondOfDay(format, startValue)
	if err != nil {
		errs = append(errs, generr.FieldError{Field: startField, Message: err.Error()})
	}
	end, err := secondOfDay(format, endValue)
	if err != nil {
		errs = append(errs, generr.FieldError{Field: endField, Message: err.Error()})
	}
	if output == "" {
		output = format
	}
	if _, err := strftime.Layout(output); err != nil {
		errs = append(errs, generr.FieldError{Field: "output_format", Message: err.Error()})
	}

	span := end - start
	if span < 0 {
		span += secondsPerDay
	}
	return timeRange{start: start, span: span, output: output}, errs
}

func (r timeRange) draw(rng *rand.Rand) string {
	sec := (r.start + rng.Int64N(r.span+1)) % secondsPerDay
	t := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(sec) * time.Second)
	return strftime.Format(r.output, t)
}

// TimeRange случайное время суток в [start_time, end_time]
type TimeRange struct {
	r   timeRange
	rng *rand.Rand
}

func newTimeRangeStrategy(p Params, rng *rand.Rand) (Strategy, error) {
	r, errs := newTimeRange(p.String("start_time"), p.String("end_time"),
		inputFormat(p, defaultTimeFormat), p.String("output_format"), "start_time", "end_time")
	if len(errs) > 0 {
		return nil, generr.Validation(errs)
	}
	return &TimeRange{r: r, rng: rng}, nil
}

// Generate возвращает count отформатированных значений времени
func (s *TimeRange) Generate(_ *Context, count int) ([]any, error) {
	out := make([]any, count)
	for i := range out {
		out[i] = s.r.draw(s.rng)
	}
	return out, nil
}
