// Copyright © 2024 The ELPS authors

package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/viper"
	"github.com/vmihailenco/msgpack/v5"
)

// Output formats.
const (
	formatText    = "text"
	formatJSON    = "json"
	formatMsgpack = "msgpack"
)

func outputFormat() (string, error) {
	f := viper.GetString(keyFormat)
	switch f {
	case formatText, formatJSON, formatMsgpack:
		return f, nil
	case "":
		return formatText, nil
	}
	return "", fmt.Errorf("unknown output format %q", f)
}

// encode writes v to w in a machine readable format.
func encode(w io.Writer, format string, v interface{}) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.UseCompactInts(true)
		return enc.Encode(v)
	}
	return fmt.Errorf("format %q is not machine readable", format)
}
