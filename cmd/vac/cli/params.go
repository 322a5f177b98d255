// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// FlagBinder lets a params field register its own flags instead of
// being bound from struct tags.
type FlagBinder interface {
	AddFlags(flagSet *pflag.FlagSet)
}

// FlagsFromParams returns a flag set bound to params, a pointer to a
// tagged struct. A malformed params type is a programming error and
// panics.
func FlagsFromParams(name string, params any) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if err := BindFlags(params, flagSet); err != nil {
		panic(fmt.Sprintf("cli: flags for %q: %v", name, err))
	}
	return flagSet
}

// BindFlags registers one flag per tagged field of the struct params
// points to:
//
//	Tree  string `flag:"tree,t" desc:"tree ID" default:"clinic"`
//
// The flag tag holds the long name and an optional shorthand. The
// default is parsed as if given on the command line, so it accepts the
// same syntax ("1m", "a,b"). Field types: string, bool, int, uint64,
// time.Duration, []string. Embedded structs are bound recursively and
// exported struct fields implementing [FlagBinder] bind themselves.
func BindFlags(params any, flagSet *pflag.FlagSet) error {
	pointer := reflect.ValueOf(params)
	if pointer.Kind() != reflect.Pointer || pointer.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a pointer to a struct, got %T", params)
	}
	return bindStruct(pointer.Elem(), flagSet)
}

func bindStruct(value reflect.Value, flagSet *pflag.FlagSet) error {
	for _, field := range reflect.VisibleFields(value.Type()) {
		if len(field.Index) > 1 {
			// Promoted through an embedded struct; bound when that
			// struct is visited.
			continue
		}
		fieldValue := value.FieldByIndex(field.Index)

		if field.Type.Kind() == reflect.Struct {
			if field.IsExported() {
				if binder, ok := fieldValue.Addr().Interface().(FlagBinder); ok {
					binder.AddFlags(flagSet)
					continue
				}
			}
			if field.Anonymous {
				if err := bindStruct(fieldValue, flagSet); err != nil {
					return fmt.Errorf("embedded %s: %w", field.Name, err)
				}
				continue
			}
		}

		tag, ok := field.Tag.Lookup("flag")
		if !ok || tag == "" {
			continue
		}
		name, shorthand, _ := strings.Cut(tag, ",")
		if err := bindField(fieldValue, flagSet, name, shorthand, field.Tag.Get("desc"), field.Tag.Get("default")); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

func bindField(value reflect.Value, flagSet *pflag.FlagSet, name, shorthand, usage, def string) error {
	switch target := value.Addr().Interface().(type) {
	case *string:
		flagSet.StringVarP(target, name, shorthand, def, usage)
		return nil
	case *[]string:
		var values []string
		if def != "" {
			values = strings.Split(def, ",")
		}
		flagSet.StringSliceVarP(target, name, shorthand, values, usage)
		return nil
	case *bool:
		flagSet.BoolVarP(target, name, shorthand, false, usage)
	case *int:
		flagSet.IntVarP(target, name, shorthand, 0, usage)
	case *uint64:
		flagSet.Uint64VarP(target, name, shorthand, 0, usage)
	case *time.Duration:
		flagSet.DurationVarP(target, name, shorthand, 0, usage)
	default:
		return fmt.Errorf("unsupported type %s for --%s", value.Type(), name)
	}
	if def == "" {
		return nil
	}

	// Parse the default with the flag's own syntax and show it in help.
	flag := flagSet.Lookup(name)
	if err := flag.Value.Set(def); err != nil {
		return fmt.Errorf("default for --%s: %w", name, err)
	}
	flag.DefValue = flag.Value.String()
	return nil
}
