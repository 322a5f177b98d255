// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"io"
	"reflect"
)

// JSONOutput adds a --json flag to any params struct that embeds it.
// Commands call [JSONOutput.EmitJSON] first and fall through to their
// text output when it reports false:
//
//	if done, err := params.EmitJSON(env.Stdout, view); done {
//		return err
//	}
type JSONOutput struct {
	OutputJSON bool `json:"-" flag:"json" desc:"print machine-readable JSON"`
}

// EmitJSON prints result when --json was given and reports whether it
// did. A nil slice prints as [] so scripts can always iterate.
func (j *JSONOutput) EmitJSON(w io.Writer, result any) (bool, error) {
	if !j.OutputJSON {
		return false, nil
	}
	if v := reflect.ValueOf(result); v.Kind() == reflect.Slice && v.IsNil() {
		result = reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	return true, WriteJSON(w, result)
}

// WriteJSON prints value as two-space indented JSON with a trailing
// newline. HTML characters are not escaped; canonical strings print
// as they are hashed.
func WriteJSON(w io.Writer, value any) error {
	out := json.NewEncoder(w)
	out.SetIndent("", "  ")
	out.SetEscapeHTML(false)
	return out.Encode(value)
}
