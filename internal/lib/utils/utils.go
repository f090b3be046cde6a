// Package utils contains small output helpers shared by the command line.
package utils

import (
	"encoding/json"
	"fmt"
	"io"
)

// PrintJSON writes v to w as tab-indented JSON followed by a newline.
func PrintJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	_, err = fmt.Fprintln(w, string(out))
	return err
}

// FormatValue renders a looked-up value the way the CLI prints it: the
// shortest representation that reads back to the same float.
func FormatValue(v float64) string {
	return fmt.Sprintf("%g", v)
}
