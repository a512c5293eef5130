// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"io"
	"reflect"
)

// JSONOutput gives a command a --json flag. Embed it in the params
// struct and try EmitJSON before printing text:
//
//	if done, err := params.EmitJSON(env.Stdout, fetched); done {
//	    return err
//	}
//	fmt.Fprintln(env.Stdout, refineui.RenderTicket(*fetched, env.Styles(), env.OutputWidth()))
type JSONOutput struct {
	OutputJSON bool `json:"-" flag:"json" desc:"print the result as JSON"`
}

// EmitJSON writes result to w when --json was given and reports
// whether it did; the error is the write error, if any. A nil slice is
// written as [] rather than null so scripts can always iterate.
func (output *JSONOutput) EmitJSON(w io.Writer, result any) (bool, error) {
	if !output.OutputJSON {
		return false, nil
	}
	if value := reflect.ValueOf(result); value.Kind() == reflect.Slice && value.IsNil() {
		result = reflect.MakeSlice(value.Type(), 0, 0).Interface()
	}
	return true, WriteJSON(w, result)
}

// WriteJSON writes value to w as two-space indented JSON without HTML
// escaping.
func WriteJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(value)
}
