// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// FlagsFromParams returns a flag set named after the command whose
// flags write straight into the tagged fields of params, a pointer to a
// struct. A params type that cannot be bound is a bug in the command,
// so this panics instead of returning an error.
//
//	var params moveRankParams
//	command := &cli.Command{
//	    Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("move-rank", &params) },
//	    Run:   func(ctx context.Context, args []string) error { ... },
//	}
func FlagsFromParams(name string, params any) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SortFlags = false
	if err := BindFlags(params, flagSet); err != nil {
		panic(fmt.Sprintf("cli.FlagsFromParams(%q): %v", name, err))
	}
	return flagSet
}

// BindFlags adds a flag to flagSet for every field of *params carrying
// a flag tag. Three tags are read:
//
//	flag:"story-points"   long name; "limit,n" adds a shorthand
//	desc:"..."            help text
//	default:"50"          default, parsed as the field's type
//
// Fields may be string, bool, int, float64, [time.Duration] or
// []string (default written comma-separated). Embedded structs
// contribute their own fields, so [JSONOutput] and [TrackerParams]
// can be shared between commands.
func BindFlags(params any, flagSet *pflag.FlagSet) error {
	pointer := reflect.ValueOf(params)
	if pointer.Kind() != reflect.Pointer || pointer.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a pointer to a struct, got %T", params)
	}
	return bindFields(pointer.Elem(), flagSet)
}

// flagSpec is the parsed form of one field's tags.
type flagSpec struct {
	name, shorthand string
	usage           string
	fallback        string
}

func specFor(field reflect.StructField) (flagSpec, bool) {
	tag, ok := field.Tag.Lookup("flag")
	if !ok || tag == "" {
		return flagSpec{}, false
	}
	name, shorthand, _ := strings.Cut(tag, ",")
	return flagSpec{
		name:      name,
		shorthand: shorthand,
		usage:     field.Tag.Get("desc"),
		fallback:  field.Tag.Get("default"),
	}, true
}

func bindFields(value reflect.Value, flagSet *pflag.FlagSet) error {
	for _, field := range reflect.VisibleFields(value.Type()) {
		// Promoted fields are reached through the recursion below.
		if len(field.Index) != 1 {
			continue
		}
		fieldValue := value.Field(field.Index[0])
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := bindFields(fieldValue, flagSet); err != nil {
				return fmt.Errorf("embedded %s: %w", field.Name, err)
			}
			continue
		}
		spec, ok := specFor(field)
		if !ok {
			continue
		}
		if !fieldValue.CanAddr() {
			return fmt.Errorf("field %s: not addressable", field.Name)
		}
		if err := spec.bind(fieldValue.Addr().Interface(), flagSet); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

func (spec flagSpec) bind(target any, flagSet *pflag.FlagSet) error {
	var err error
	switch target := target.(type) {
	case *string:
		flagSet.StringVarP(target, spec.name, spec.shorthand, spec.fallback, spec.usage)
	case *bool:
		err = define(spec, strconv.ParseBool, func(initial bool) {
			flagSet.BoolVarP(target, spec.name, spec.shorthand, initial, spec.usage)
		})
	case *int:
		err = define(spec, strconv.Atoi, func(initial int) {
			flagSet.IntVarP(target, spec.name, spec.shorthand, initial, spec.usage)
		})
	case *float64:
		err = define(spec, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }, func(initial float64) {
			flagSet.Float64VarP(target, spec.name, spec.shorthand, initial, spec.usage)
		})
	case *time.Duration:
		err = define(spec, time.ParseDuration, func(initial time.Duration) {
			flagSet.DurationVarP(target, spec.name, spec.shorthand, initial, spec.usage)
		})
	case *[]string:
		var initial []string
		if spec.fallback != "" {
			initial = strings.Split(spec.fallback, ",")
		}
		flagSet.StringSliceVarP(target, spec.name, spec.shorthand, initial, spec.usage)
	default:
		return fmt.Errorf("unsupported type %s for flag --%s", reflect.TypeOf(target).Elem(), spec.name)
	}
	return err
}

// define parses the default tag (empty means the zero value) and hands
// the result to register.
func define[T any](spec flagSpec, parse func(string) (T, error), register func(T)) error {
	var initial T
	if spec.fallback != "" {
		parsed, err := parse(spec.fallback)
		if err != nil {
			return fmt.Errorf("default for --%s: %w", spec.name, err)
		}
		initial = parsed
	}
	register(initial)
	return nil
}
