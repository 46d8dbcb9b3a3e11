package strategy

import (
	"errors"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
)

func create(t *testing.T, name string, params map[string]any) Strategy {
	t.Helper()
	s, err := DefaultRegistry.Create(name, params, WithSeed(1))
	if err != nil {
		t.Fatalf("Create(%s) failed: %v", name, err)
	}
	return s
}

func generate(t *testing.T, s Strategy, ctx *Context, count int) []any {
	t.Helper()
	if ctx == nil {
		ctx = &Context{}
	}
	values, err := s.Generate(ctx, count)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(values) != count {
		t.Fatalf("expected %d values, got %d", count, len(values))
	}
	return values
}

func TestSeries(t *testing.T) {
	tests := []struct {
		name     string
		params   map[string]any
		expected []any
	}{
		{"defaults", nil, []any{int64(1), int64(2), int64(3), int64(4), int64(5)}},
		{"negative step", map[string]any{"start": 10, "step": -3}, []any{int64(10), int64(7), int64(4), int64(1), int64(-2)}},
		{"fractional", map[string]any{"start": 0.5, "step": 0.25}, []any{0.5, 0.75, 1.0, 1.25, 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := generate(t, create(t, NameSeries, tt.params), nil, 5)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestSeries_Formula(t *testing.T) {
	for _, start := range []int{-5, 0, 1, 1000} {
		for _, step := range []int{-2, 0, 1, 7} {
			s := create(t, NameSeries, map[string]any{"start": start, "step": step})
			for i, v := range generate(t, s, nil, 50) {
				if v != int64(start+i*step) {
					t.Fatalf("start=%d step=%d: output[%d]=%v", start, step, i, v)
				}
			}
		}
	}
}

func TestNumberRange_Uniform(t *testing.T) {
	s := create(t, NameRandomNumberRange, map[string]any{"start": 10, "end": 20})
	seen := map[int64]bool{}
	for _, v := range generate(t, s, nil, 2000) {
		n, ok := v.(int64)
		if !ok {
			t.Fatalf("expected int64 for precision 0, got %T", v)
		}
		if n < 10 || n > 20 {
			t.Fatalf("value %d out of [10, 20]", n)
		}
		seen[n] = true
	}
	if len(seen) != 11 {
		t.Errorf("expected every value of [10, 20] to appear, got %d distinct", len(seen))
	}
}

func TestNumberRange_Precision(t *testing.T) {
	s := create(t, NameRandomNumberRange, map[string]any{"start": 0.05, "end": 1.5, "precision": 2})
	for _, v := range generate(t, s, nil, 500) {
		f, ok := v.(float64)
		if !ok {
			t.Fatalf("expected float64, got %T", v)
		}
		if f < 0.05 || f > 1.5 {
			t.Fatalf("value %v out of range", f)
		}
		if math.Abs(f*100-math.Round(f*100)) > 1e-9 {
			t.Fatalf("value %v has more than 2 digits", f)
		}
	}
}

func TestNumberRange_Distributions(t *testing.T) {
	for _, dist := range []string{DistNormal, DistExponential} {
		t.Run(dist, func(t *testing.T) {
			s := create(t, NameRandomNumberRange, map[string]any{
				"start": 0, "end": 100, "precision": 1, "distribution": dist,
			})
			sum := 0.0
			for _, v := range generate(t, s, nil, 1000) {
				f := v.(float64)
				if f < 0 || f > 100 {
					t.Fatalf("value %v out of [0, 100]", f)
				}
				sum += f
			}
			mean := sum / 1000
			if dist == DistNormal && math.Abs(mean-50) > 5 {
				t.Errorf("normal mean %v is far from 50", mean)
			}
			if dist == DistExponential && mean >= 50 {
				t.Errorf("exponential mean %v must be below the range middle", mean)
			}
		})
	}
}

func TestNumberRange_UniqueInfeasible(t *testing.T) {
	s := create(t, NameRandomNumberRange, map[string]any{"start": 1, "end": 2, "precision": 0, "unique": true})
	_, err := s.Generate(&Context{}, 5)
	if !errors.Is(err, generr.ErrGeneration) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestNumberRange_UniqueExhaustive(t *testing.T) {
	for _, dist := range []string{DistUniform, DistNormal, DistExponential} {
		t.Run(dist, func(t *testing.T) {
			s := create(t, NameRandomNumberRange, map[string]any{
				"start": 1, "end": 50, "unique": true, "distribution": dist,
			})
			seen := map[any]bool{}
			for _, v := range generate(t, s, nil, 50) {
				if seen[v] {
					t.Fatalf("duplicate value %v", v)
				}
				seen[v] = true
			}
		})
	}
}

func TestNumberRange_UniqueLargeRange(t *testing.T) {
	s := create(t, NameRandomNumberRange, map[string]any{
		"start": 0, "end": 1e12, "unique": true,
	})
	seen := map[any]bool{}
	for _, v := range generate(t, s, nil, 10000) {
		if seen[v] {
			t.Fatalf("duplicate value %v", v)
		}
		seen[v] = true
	}
}

func TestNumberRange_InvalidParams(t *testing.T) {
	tests := []map[string]any{
		{"start": 10, "end": 1},
		{"start": 0.1, "end": 0.2, "precision": 0},
		{"rate": 0, "distribution": "exponential"},
		{"std_dev": -1, "distribution": "normal"},
	}
	for _, params := range tests {
		if _, err := DefaultRegistry.Create(NameRandomNumberRange, params); !errors.Is(err, generr.ErrValidation) {
			t.Errorf("%v: expected ValidationError, got %v", params, err)
		}
	}
}

func countLabels(values []any) map[any]int {
	counts := map[any]int{}
	for _, v := range values {
		counts[v]++
	}
	return counts
}

func TestDistributedChoice_TieByDeclarationOrder(t *testing.T) {
	choices := Mapping{{Key: "B", Value: 50}, {Key: "A", Value: 50}}
	s := create(t, NameDistributedChoice, map[string]any{"choices": choices})

	got := countLabels(generate(t, s, nil, 5))
	if got["B"] != 3 || got["A"] != 2 {
		t.Errorf("expected B=3 A=2, got %v", got)
	}
}

func TestDistributedChoice_Proportions(t *testing.T) {
	s := create(t, NameDistributedChoice, map[string]any{
		"choices": map[string]any{"active": 70, "blocked": 20, "new": 10},
	})
	got := countLabels(generate(t, s, nil, 1000))
	expected := map[any]int{"active": 700, "blocked": 200, "new": 100}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestDistributedChoice_InvalidWeights(t *testing.T) {
	for _, choices := range []any{
		Mapping{},
		Mapping{{Key: "A", Value: "heavy"}},
		Mapping{{Key: "A", Value: 0}, {Key: "B", Value: 0}},
		Mapping{{Key: "A", Value: -5}},
	} {
		if _, err := DefaultRegistry.Create(NameDistributedChoice, map[string]any{"choices": choices}); !errors.Is(err, generr.ErrValidation) {
			t.Errorf("%v: expected ValidationError, got %v", choices, err)
		}
	}
}

func TestDistributedNumberRange(t *testing.T) {
	s := create(t, NameDistributedNumberRange, map[string]any{
		"ranges": []any{
			map[string]any{"start": 0, "end": 9, "distribution": 70},
			map[string]any{"start": 100, "end": 109, "distribution": 30},
		},
	})
	values := generate(t, s, nil, 10)
	for i, v := range values {
		n := v.(int64)
		inFirst := n >= 0 && n <= 9
		if i < 7 && !inFirst {
			t.Errorf("value #%d = %d, expected bucket [0, 9]", i, n)
		}
		if i >= 7 && (n < 100 || n > 109) {
			t.Errorf("value #%d = %d, expected bucket [100, 109]", i, n)
		}
	}
}

func TestDistributedNumberRange_InvalidItems(t *testing.T) {
	_, err := DefaultRegistry.Create(NameDistributedNumberRange, map[string]any{
		"ranges": []any{
			map[string]any{"start": 0},
			"oops",
		},
	})
	var gerr *generr.Error
	if !errors.As(err, &gerr) || gerr.Kind != generr.KindValidation {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	var fields []string
	for _, f := range gerr.Fields {
		fields = append(fields, f.Field)
	}
	expected := []string{"ranges[0].end", "ranges[1]"}
	if !reflect.DeepEqual(fields, expected) {
		t.Errorf("expected %v, got %v", expected, fields)
	}
}

func TestDateGenerator_WideRange(t *testing.T) {
	s := create(t, NameDateGenerator, map[string]any{
		"start_date": "1000-01-01",
		"end_date":   "2900-12-31",
		"seed":       11,
	})
	minYear, maxYear := 9999, 0
	for _, v := range generate(t, s, nil, 2000) {
		year, err := strconv.Atoi(v.(string)[:4])
		if err != nil {
			t.Fatalf("unexpected date %q", v)
		}
		minYear = min(minYear, year)
		maxYear = max(maxYear, year)
	}
	if minYear < 1000 || maxYear > 2900 {
		t.Errorf("dates outside range: %d..%d", minYear, maxYear)
	}
	// 1900 лет, 2000 выборок: обе крайние сотни лет должны встретиться
	if minYear > 1100 || maxYear < 2800 {
		t.Errorf("dates do not cover the range: %d..%d", minYear, maxYear)
	}
}

func TestDateGenerator(t *testing.T) {
	s := create(t, NameDateGenerator, map[string]any{
		"start_date":    "2024-02-27",
		"end_date":      "2024-03-01",
		"output_format": "%d.%m.%Y",
	})
	allowed := map[any]bool{"27.02.2024": true, "28.02.2024": true, "29.02.2024": true, "01.03.2024": true}
	seen := map[any]bool{}
	for _, v := range generate(t, s, nil, 400) {
		if !allowed[v] {
			t.Fatalf("unexpected date %v", v)
		}
		seen[v] = true
	}
	if len(seen) != len(allowed) {
		t.Errorf("expected every day including the bounds, got %v", seen)
	}
}

func TestDateGenerator_WithTime(t *testing.T) {
	s := create(t, NameDateGenerator, map[string]any{
		"start_date": "2024-01-01 10:00:00",
		"end_date":   "2024-01-01 10:00:59",
		"format":     "%Y-%m-%d %H:%M:%S",
	})
	for _, v := range generate(t, s, nil, 100) {
		if !strings.HasPrefix(v.(string), "2024-01-01 10:00:") {
			t.Fatalf("unexpected value %v", v)
		}
	}
}

func TestDateGenerator_InvalidParams(t *testing.T) {
	tests := []map[string]any{
		{"start_date": "2024-13-01", "end_date": "2024-12-01"},
		{"start_date": "2024-05-01", "end_date": "2024-01-01"},
		{"start_date": "01/02/2024", "end_date": "2024-01-01"},
	}
	for _, params := range tests {
		if _, err := DefaultRegistry.Create(NameDateGenerator, params); !errors.Is(err, generr.ErrValidation) {
			t.Errorf("%v: expected ValidationError, got %v", params, err)
		}
	}
}

func TestTimeRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		inRange    func(string) bool
	}{
		{"daytime", "09:00:00", "17:30:00", func(v string) bool { return v >= "09:00:00" && v <= "17:30:00" }},
		{"overnight", "23:00:00", "01:00:00", func(v string) bool { return v >= "23:00:00" || v <= "01:00:00" }},
		{"single second", "12:00:00", "12:00:00", func(v string) bool { return v == "12:00:00" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := create(t, NameTimeRange, map[string]any{"start_time": tt.start, "end_time": tt.end})
			for _, v := range generate(t, s, nil, 500) {
				if !tt.inRange(v.(string)) {
					t.Fatalf("value %v out of [%s, %s]", v, tt.start, tt.end)
				}
			}
		})
	}
}

func TestTimeRange_OutputFormat(t *testing.T) {
	s := create(t, NameTimeRange, map[string]any{
		"start_time": "08:15", "end_time": "08:15", "format": "%H:%M", "output_format": "%H.%M.%S",
	})
	if got := generate(t, s, nil, 1)[0]; got != "08.15.00" {
		t.Errorf("expected 08.15.00, got %v", got)
	}
}

func TestDistributedDateRange(t *testing.T) {
	s := create(t, NameDistributedDateRange, map[string]any{
		"ranges": []any{
			map[string]any{"start_date": "2020-01-01", "end_date": "2020-01-31", "distribution": 25},
			map[string]any{"start_date": "2023-06-01", "end_date": "2023-06-30", "distribution": 75},
		},
	})
	values := generate(t, s, nil, 8)
	for i, v := range values {
		prefix := "2020-01-"
		if i >= 2 {
			prefix = "2023-06-"
		}
		if !strings.HasPrefix(v.(string), prefix) {
			t.Errorf("value #%d = %v, expected prefix %s", i, v, prefix)
		}
	}
}

func TestDistributedTimeRange(t *testing.T) {
	s := create(t, NameDistributedTimeRange, map[string]any{
		"ranges": []any{
			map[string]any{"start": "08:00:00", "end": "09:00:00", "distribution": 50},
			map[string]any{"start": "22:00:00", "end": "02:00:00", "distribution": 50},
		},
		"output_format": "%H:%M",
	})
	values := generate(t, s, nil, 4)
	for i, v := range values {
		str := v.(string)
		if len(str) != 5 {
			t.Fatalf("unexpected format %q", str)
		}
		if i < 2 && (str < "08:00" || str > "09:00") {
			t.Errorf("value #%d = %s, expected morning range", i, str)
		}
		if i >= 2 && str < "22:00" && str > "02:00" {
			t.Errorf("value #%d = %s, expected overnight range", i, str)
		}
	}
}

func TestPattern_FullMatch(t *testing.T) {
	patterns := []string{
		`^[A-Z]{3}-\d{4}$`,
		`(foo|bar)+baz`,
		`[a-z]+@[a-z]+\.(com|org|net)`,
		`[^a-z]{5}`,
		`.*x`,
		`\+7 \(\d{3}\) \d{3}-\d{2}-\d{2}`,
		`(?i)abc[0-9]?`,
		`ID_\w{2,}`,
		`a{2,4}b*c?`,
		`\bword\b`,
	}
	for _, expr := range patterns {
		t.Run(expr, func(t *testing.T) {
			s := create(t, NamePattern, map[string]any{"regex": expr})
			full := regexp.MustCompile(`\A(?:` + expr + `)\z`)
			for _, v := range generate(t, s, nil, 200) {
				if !full.MatchString(v.(string)) {
					t.Fatalf("%q does not fully match %s", v, expr)
				}
			}
		})
	}
}

func TestPattern_MaxRepeat(t *testing.T) {
	s := create(t, NamePattern, map[string]any{"regex": `x+`, "max_repeat": 3})
	for _, v := range generate(t, s, nil, 200) {
		if n := len(v.(string)); n < 1 || n > 3 {
			t.Fatalf("unexpected length %d of %q", n, v)
		}
	}
}

func TestPattern_Errors(t *testing.T) {
	if _, err := DefaultRegistry.Create(NamePattern, map[string]any{"regex": "(unclosed"}); !errors.Is(err, generr.ErrValidation) {
		t.Errorf("expected ValidationError for invalid regex, got %v", err)
	}

	s := create(t, NamePattern, map[string]any{"regex": `a\bb`})
	if _, err := s.Generate(&Context{}, 1); !errors.Is(err, generr.ErrGeneration) {
		t.Errorf("expected GenerationError for an unsatisfiable pattern, got %v", err)
	}
}

// newContextTable таблица с заполненными колонками first, last, status
func newContextTable(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New(3, "first", "last", "status", "empty")
	data := map[string][]any{
		"first":  {"Ann", "Bob", nil},
		"last":   {"Lee", "Ray", "Fox"},
		"status": {"Active", "blocked", "ACTIVE"},
	}
	for name, values := range data {
		for i, v := range values {
			if err := tbl.Set(name, i, v); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
		}
		tbl.MarkPopulated(name, false)
	}
	return tbl
}

func TestConcat(t *testing.T) {
	tbl := newContextTable(t)
	tests := []struct {
		name     string
		params   map[string]any
		rows     []int
		expected []any
	}{
		{
			"lhs and rhs",
			map[string]any{"lhs_col": "first", "rhs_col": "last", "separator": " "},
			[]int{0, 1, 2},
			[]any{"Ann Lee", "Bob Ray", " Fox"},
		},
		{
			"columns with prefix and suffix",
			map[string]any{"columns": []any{"last", "first", "status"}, "separator": "-", "prefix": "<", "suffix": ">"},
			[]int{1, 2},
			[]any{"<Ray-Bob-blocked>", "<Fox--ACTIVE>"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := create(t, NameConcat, tt.params)
			ctx := &Context{Target: "full", Rows: tt.rows, Table: tbl}
			got := generate(t, s, ctx, len(tt.rows))
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestConcat_MissingColumn(t *testing.T) {
	tbl := newContextTable(t)
	s := create(t, NameConcat, map[string]any{"lhs_col": "first", "rhs_col": "email"})

	if deps := Dependencies(s, "full"); !reflect.DeepEqual(deps, []string{"first", "email"}) {
		t.Errorf("unexpected dependencies %v", deps)
	}

	for _, missing := range []string{"email", "empty"} {
		s := create(t, NameConcat, map[string]any{"columns": []any{"first", missing}})
		_, err := s.Generate(&Context{Target: "full", Rows: []int{0}, Table: tbl}, 1)
		var gerr *generr.Error
		if !errors.As(err, &gerr) || gerr.Kind != generr.KindDependency {
			t.Fatalf("expected DependencyError, got %v", err)
		}
		if gerr.Column != missing {
			t.Errorf("expected error to name %s, got %q", missing, gerr.Column)
		}
	}
}

func TestConcat_RequiresColumns(t *testing.T) {
	if _, err := DefaultRegistry.Create(NameConcat, map[string]any{"lhs_col": "a"}); !errors.Is(err, generr.ErrValidation) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestReplacement(t *testing.T) {
	tbl := newContextTable(t)
	tests := []struct {
		name     string
		params   map[string]any
		target   string
		expected []any
	}{
		{"exact", map[string]any{"from_value": "Active", "to_value": "A"}, "status", []any{"A", "blocked", "ACTIVE"}},
		{"case insensitive", map[string]any{"from_value": "active", "to_value": "A", "case_insensitive": true}, "status", []any{"A", "blocked", "A"}},
		{"other column", map[string]any{"from_value": nil, "to_value": "unknown", "column": "first"}, "status", []any{"Ann", "Bob", "unknown"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := create(t, NameReplacement, tt.params)
			ctx := &Context{Target: tt.target, Rows: []int{0, 1, 2}, Table: tbl}
			got := generate(t, s, ctx, 3)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestReplacement_MatchesByKind(t *testing.T) {
	tbl := table.New(4, "code", "amount")
	data := map[string][]any{
		"code":   {"3", "x", "3", "3.0"},
		"amount": {3.0, int64(3), 4.5, 3.5},
	}
	for name, values := range data {
		for i, v := range values {
			if err := tbl.Set(name, i, v); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
		}
		tbl.MarkPopulated(name, false)
	}
	rows := []int{0, 1, 2, 3}

	tests := []struct {
		name     string
		params   map[string]any
		target   string
		expected []any
	}{
		{"number does not match string", map[string]any{"from_value": 3, "to_value": "three"}, "code", []any{"3", "x", "3", "3.0"}},
		{"string matches string", map[string]any{"from_value": "3", "to_value": "three"}, "code", []any{"three", "x", "three", "3.0"}},
		{"string does not match number", map[string]any{"from_value": "3", "to_value": 0}, "amount", []any{3.0, 3.0, 4.5, 3.5}},
		{"int matches float", map[string]any{"from_value": 3, "to_value": 0}, "amount", []any{int64(0), int64(0), 4.5, 3.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := create(t, NameReplacement, tt.params)
			got := generate(t, s, &Context{Target: tt.target, Rows: rows, Table: tbl}, 4)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if table.Format(got[i]) != table.Format(tt.expected[i]) {
					t.Errorf("row %d: expected %v, got %v", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestRandomName(t *testing.T) {
	s := create(t, NameRandomName, map[string]any{"name_type": "full", "gender": "female", "case": "upper"})
	female := map[string]bool{}
	for _, n := range femaleFirstNames {
		female[strings.ToUpper(n)] = true
	}
	for _, v := range generate(t, s, nil, 100) {
		parts := strings.Split(v.(string), " ")
		if len(parts) != 2 || !female[parts[0]] || parts[1] != strings.ToUpper(parts[1]) {
			t.Fatalf("unexpected name %q", v)
		}
	}

	if _, err := DefaultRegistry.Create(NameRandomName, map[string]any{"gender": "robot"}); !errors.Is(err, generr.ErrValidation) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	got := generate(t, create(t, NameDelete, nil), nil, 3)
	if !reflect.DeepEqual(got, []any{nil, nil, nil}) {
		t.Errorf("expected nulls, got %v", got)
	}
}
