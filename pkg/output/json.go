// Package output provides standardized formatting for the engine's
// optional structured run-report output, keeping the fmt-to-stdout
// formatting in one place.
package output

import (
	"encoding/json"
	"io"
	"os"
)

// JSONToStdout writes any data structure as formatted JSON to stdout.
func JSONToStdout(data interface{}) error {
	return JSONTo(os.Stdout, data)
}

// JSONTo writes any data structure as formatted JSON to the specified writer.
// This allows for more flexibility when outputting to different destinations.
func JSONTo(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
