// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// FlagBinder is implemented by types that register their own flags,
// such as a value reachable under more than one flag name.
type FlagBinder interface {
	AddFlags(flagSet *pflag.FlagSet)
}

// FlagsFromParams creates a flag set bound to the tagged fields of
// params, which must be a pointer to a struct. A malformed params
// struct is a programming error and panics.
//
//	var params statusParams
//	command := &cli.Command{
//	    Name:  "status",
//	    Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("status", &params) },
//	    Run:   func(args []string) error { /* params populated here */ },
//	}
func FlagsFromParams(name string, params any) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SortFlags = false
	if err := BindFlags(params, flagSet); err != nil {
		panic(fmt.Sprintf("cli.FlagsFromParams(%q): %v", name, err))
	}
	return flagSet
}

// BindFlags registers a pflag entry for each tagged field of params.
//
// A field tagged flag:"name" or flag:"name,n" becomes --name (and -n).
// desc:"..." is the usage text and default:"..." the initial value,
// parsed for the field's type. Fields may be string, bool, int or
// []string (comma-separated default). A field implementing
// [FlagBinder] registers itself; other embedded structs are walked.
func BindFlags(params any, flagSet *pflag.FlagSet) error {
	value := reflect.ValueOf(params)
	if value.Kind() != reflect.Pointer || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a pointer to a struct, got %T", params)
	}
	return bindStruct(value.Elem(), flagSet)
}

func bindStruct(structValue reflect.Value, flagSet *pflag.FlagSet) error {
	for _, field := range reflect.VisibleFields(structValue.Type()) {
		// Promoted fields are reached through their embedding struct.
		if len(field.Index) > 1 || !field.IsExported() {
			continue
		}
		fieldValue := structValue.Field(field.Index[0])
		if binder, ok := fieldValue.Addr().Interface().(FlagBinder); ok {
			binder.AddFlags(flagSet)
			continue
		}
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := bindStruct(fieldValue, flagSet); err != nil {
				return fmt.Errorf("embedded %s: %w", field.Name, err)
			}
			continue
		}

		tag, ok := field.Tag.Lookup("flag")
		if !ok {
			continue
		}
		spec := flagSpec{description: field.Tag.Get("desc"), initial: field.Tag.Get("default")}
		spec.name, spec.shorthand, _ = strings.Cut(tag, ",")
		if err := spec.bind(fieldValue.Addr().Interface(), flagSet); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

type flagSpec struct {
	name, shorthand string
	description     string
	initial         string
}

func (s flagSpec) bind(target any, flagSet *pflag.FlagSet) error {
	switch target := target.(type) {
	case *string:
		flagSet.StringVarP(target, s.name, s.shorthand, s.initial, s.description)
	case *bool:
		initial, err := parseInitial(s, strconv.ParseBool)
		if err != nil {
			return err
		}
		flagSet.BoolVarP(target, s.name, s.shorthand, initial, s.description)
	case *int:
		initial, err := parseInitial(s, strconv.Atoi)
		if err != nil {
			return err
		}
		flagSet.IntVarP(target, s.name, s.shorthand, initial, s.description)
	case *[]string:
		var initial []string
		if s.initial != "" {
			initial = strings.Split(s.initial, ",")
		}
		flagSet.StringSliceVarP(target, s.name, s.shorthand, initial, s.description)
	default:
		return fmt.Errorf("unsupported type %T for flag --%s", target, s.name)
	}
	return nil
}

// parseInitial parses the default tag, yielding the zero value when the
// tag is absent.
func parseInitial[T any](s flagSpec, parse func(string) (T, error)) (T, error) {
	var zero T
	if s.initial == "" {
		return zero, nil
	}
	value, err := parse(s.initial)
	if err != nil {
		return zero, fmt.Errorf("default for --%s: %w", s.name, err)
	}
	return value, nil
}
