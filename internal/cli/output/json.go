package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter writes indented JSON. HTML characters are left as is so
// record text such as "Tom & Jerry" round-trips through shell pipelines.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(data)
}
