// Package config loads tally configuration from CUE.
//
// A config file is plain CUE unified with the embedded #Config schema, so
// unknown fields and wrongly typed values are rejected with a position:
//
//	todos:   [4, 5, 6]
//	journal: ":memory:"
//	addr:    "127.0.0.1:9090"
package config

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/tally/internal/journal"
	"github.com/roach88/tally/internal/state"
)

//go:embed schema.cue
var schemaSource string

// Config is the resolved configuration.
type Config struct {
	Todos   []int64 `json:"todos"`
	Journal string  `json:"journal"`
	Addr    string  `json:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Todos:   slices.Clone(state.DefaultTodos),
		Journal: journal.MemoryPath,
		Addr:    "127.0.0.1:8080",
	}
}

// Error is a configuration error, with the CUE position when one is known.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads path and resolves it against the schema. An empty path
// returns Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, src)
}

// Parse resolves CUE source against the schema. filename is used only in
// error positions.
func Parse(filename string, src []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	user := ctx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	v := def.Unify(user)
	if err := v.Validate(); err != nil {
		return Config{}, formatCUEError(err)
	}

	return decode(v)
}

func decode(v cue.Value) (Config, error) {
	var cfg Config

	todosVal, _ := v.LookupPath(cue.ParsePath("todos")).Default()
	iter, err := todosVal.List()
	if err != nil {
		return Config{}, formatField("todos", todosVal, err)
	}
	cfg.Todos = []int64{}
	for iter.Next() {
		n, err := iter.Value().Int64()
		if err != nil {
			return Config{}, formatField("todos", iter.Value(), err)
		}
		cfg.Todos = append(cfg.Todos, n)
	}

	if cfg.Journal, err = stringField(v, "journal"); err != nil {
		return Config{}, err
	}
	if cfg.Addr, err = stringField(v, "addr"); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func stringField(v cue.Value, name string) (string, error) {
	fv, _ := v.LookupPath(cue.ParsePath(name)).Default()
	s, err := fv.String()
	if err != nil {
		return "", formatField(name, fv, err)
	}
	return s, nil
}

func formatField(field string, v cue.Value, err error) error {
	return &Error{Field: field, Message: err.Error(), Pos: v.Pos()}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	e := &Error{Field: "cue", Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
