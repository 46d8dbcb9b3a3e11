package strategy

// Канонические имена встроенных стратегий
const (
	NameSeries                 = "SERIES_STRATEGY"
	NameRandomNumberRange      = "RANDOM_NUMBER_RANGE_STRATEGY"
	NameDistributedNumberRange = "DISTRIBUTED_NUMBER_RANGE_STRATEGY"
	NameDistributedChoice      = "DISTRIBUTED_CHOICE_STRATEGY"
	NameDateGenerator          = "DATE_GENERATOR_STRATEGY"
	NameDistributedDateRange   = "DISTRIBUTED_DATE_RANGE_STRATEGY"
	NameTimeRange              = "TIME_RANGE_STRATEGY"
	NameDistributedTimeRange   = "DISTRIBUTED_TIME_RANGE_STRATEGY"
	NamePattern                = "PATTERN_STRATEGY"
	NameConcat                 = "CONCAT_STRATEGY"
	NameReplacement            = "REPLACEMENT_STRATEGY"
	NameRandomName             = "RANDOM_NAME_STRATEGY"
	NameDelete                 = "DELETE_STRATEGY"
)

func registerBuiltins(r *Registry) {
	r.Register(NameSeries, newSeries, Schema{
		Description: "arithmetic progression start + i*step",
		Aliases:     []string{"series"},
		Fields: []Field{
			{Name: "start", Type: TypeFloat, Default: 1, Description: "first value"},
			{Name: "step", Type: TypeFloat, Default: 1, Description: "difference between neighbours"},
		},
	})

	r.Register(NameRandomNumberRange, newNumberRange, Schema{
		Description: "random numbers in [start, end] rounded to precision digits",
		Aliases:     []string{"number_range", "random_number_range"},
		Fields: []Field{
			{Name: "start", Type: TypeFloat, Default: 0.0},
			{Name: "end", Type: TypeFloat, Default: 99.0},
			{Name: "precision", Type: TypeInt, Default: 0, Description: "decimal digits, 0 produces integers"},
			{Name: "distribution", Type: TypeString, Default: DistUniform,
				Enum: []string{DistUniform, DistNormal, DistExponential}},
			{Name: "mean", Type: TypeFloat, Description: "normal distribution mean, defaults to the range middle"},
			{Name: "std_dev", Type: TypeFloat, Description: "normal distribution deviation, defaults to a sixth of the range"},
			{Name: "rate", Type: TypeFloat, Default: 1.0, Description: "exponential distribution rate over the unit range"},
			{Name: "unique", Type: TypeBool, Default: false, Description: "no duplicates within the column"},
		},
	})

	r.Register(NameDistributedNumberRange, newDistributedNumberRange, Schema{
		Description: "uniform numbers from several weighted ranges",
		Aliases:     []string{"distributed_number_range"},
		Fields: []Field{
			{Name: "ranges", Type: TypeList, Required: true, Description: "list of {start, end, distribution}"},
			{Name: "precision", Type: TypeInt, Default: 0},
		},
	})

	r.Register(NameDistributedChoice, newDistributedChoice, Schema{
		Description: "labels repeated in proportion to their weights",
		Aliases:     []string{"distributed_choice", "choice"},
		Fields: []Field{
			{Name: "choices", Type: TypeMap, Required: true, Description: "label: weight, declaration order is kept"},
		},
	})

	r.Register(NameDateGenerator, newDateGenerator, Schema{
		Description: "random dates in [start_date, end_date]",
		Aliases:     []string{"date", "date_generator"},
		Fields: []Field{
			{Name: "start_date", Type: TypeString, Required: true},
			{Name: "end_date", Type: TypeString, Required: true},
			{Name: "format", Type: TypeString, Default: defaultDateFormat, Description: "strftime format of start_date and end_date"},
			{Name: "input_format", Type: TypeString, Description: "same as format"},
			{Name: "output_format", Type: TypeString, Description: "strftime format of values, defaults to format"},
		},
	})

	r.Register(NameDistributedDateRange, newDistributedDateRange, Schema{
		Description: "dates from several weighted ranges",
		Aliases:     []string{"distributed_date_range"},
		Fields: []Field{
			{Name: "ranges", Type: TypeList, Required: true, Description: "list of {start_date, end_date, format, output_format, distribution}"},
			{Name: "output_format", Type: TypeString},
		},
	})

	r.Register(NameTimeRange, newTimeRangeStrategy, Schema{
		Description: "random time of day in [start_time, end_time], wraps over midnight when end < start",
		Aliases:     []string{"time", "time_range"},
		Fields: []Field{
			{Name: "start_time", Type: TypeString, Required: true},
			{Name: "end_time", Type: TypeString, Required: true},
			{Name: "format", Type: TypeString, Default: defaultTimeFormat},
			{Name: "input_format", Type: TypeString, Description: "same as format"},
			{Name: "output_format", Type: TypeString},
		},
	})

	r.Register(NameDistributedTimeRange, newDistributedTimeRange, Schema{
		Description: "time of day from several weighted ranges",
		Aliases:     []string{"distributed_time_range"},
		Fields: []Field{
			{Name: "ranges", Type: TypeList, Required: true, Description: "list of {start, end, format, distribution}"},
			{Name: "output_format", Type: TypeString},
		},
	})

	r.Register(NamePattern, newPattern, Schema{
		Description: "strings fully matching a regular expression",
		Aliases:     []string{"pattern", "regex"},
		Fields: []Field{
			{Name: "regex", Type: TypeString, Required: true},
			{Name: "max_repeat", Type: TypeInt, Default: defaultMaxRepeat, Description: "upper bound for *, + and {n,}"},
		},
	})

	r.Register(NameConcat, newConcat, Schema{
		Description: "per-row join of populated columns",
		Aliases:     []string{"concat"},
		Fields: []Field{
			{Name: "lhs_col", Type: TypeString},
			{Name: "rhs_col", Type: TypeString},
			{Name: "columns", Type: TypeList, Description: "source columns, replaces lhs_col and rhs_col"},
			{Name: "separator", Type: TypeString, Default: ""},
			{Name: "prefix", Type: TypeString, Default: ""},
			{Name: "suffix", Type: TypeString, Default: ""},
		},
	})

	r.Register(NameReplacement, newReplacement, Schema{
		Description: "replaces exact matches of from_value with to_value",
		Aliases:     []string{"replacement", "replace"},
		Fields: []Field{
			{Name: "from_value", Type: TypeAny, Required: true},
			{Name: "to_value", Type: TypeAny, Required: true},
			{Name: "column", Type: TypeString, Description: "scanned column, defaults to the target"},
			{Name: "case_insensitive", Type: TypeBool, Default: false},
		},
	})

	r.Register(NameRandomName, newRandomName, Schema{
		Description: "random person names",
		Aliases:     []string{"random_name", "name"},
		Fields: []Field{
			{Name: "name_type", Type: TypeString, Default: "first", Enum: []string{"first", "last", "full"}},
			{Name: "gender", Type: TypeString, Default: "any", Enum: []string{"any", "male", "female"}},
			{Name: "case", Type: TypeString, Default: "title", Enum: []string{"title", "upper", "lower"}},
		},
	})

	r.Register(NameDelete, newDelete, Schema{
		Description: "sets selected cells to null",
		Aliases:     []string{"delete"},
	})
}
