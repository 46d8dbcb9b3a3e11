package main

import "flag"

// Flags флаги командной строки
type Flags struct {
	// Команды
	List     *bool
	Schemas  *bool
	Validate *bool
	Version  *bool

	// Прогон
	Config   *string
	Rows     *int
	Seed     *int64
	Shuffle  *bool
	NoStream *bool
	NoWrite  *bool

	// Вывод
	Verbose *bool
	JSONLog *bool
}

// ParseFlags разбирает аргументы
func ParseFlags(args []string) (*Flags, error) {
	fs := flag.NewFlagSet("datagen", flag.ContinueOnError)
	f := &Flags{
		List:     fs.Bool("list", false, "list registered strategies"),
		Schemas:  fs.Bool("schemas", false, "print strategy parameter schemas as JSON"),
		Validate: fs.Bool("validate", false, "validate the config and steps without generating"),
		Version:  fs.Bool("version", false, "print version"),

		Config:   fs.String("config", "", "path to YAML or JSON config"),
		Rows:     fs.Int("rows", 0, "override num_of_rows"),
		Seed:     fs.Int64("seed", -1, "override seed for a reproducible run"),
		Shuffle:  fs.Bool("shuffle", false, "shuffle rows after generation"),
		NoStream: fs.Bool("no-stream", false, "skip the stream section"),
		NoWrite:  fs.Bool("no-write", false, "skip file writers"),

		Verbose: fs.Bool("v", false, "debug logging"),
		JSONLog: fs.Bool("json-log", false, "log as JSON instead of console output"),
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}
