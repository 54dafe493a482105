package output

import (
	"encoding/json"

	"github.com/plainly/plainly/internal/core"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatResult renders a simplify result as JSON.
func (f *JSONFormatter) FormatResult(result *core.SimplifyResult) (string, error) {
	if result == nil {
		return "", nil
	}
	return f.marshal(result)
}

// FormatLevels renders the detail-level catalog as a JSON array.
func (f *JSONFormatter) FormatLevels(levels []core.DetailLevel) (string, error) {
	return f.marshal(levelRows(levels))
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
