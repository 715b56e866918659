package features

import (
	"errors"
	"fmt"
	"strings"
)

// ErrExtractionFailed is returned when no metadata could be read from a sample.
// The message is user facing.
var ErrExtractionFailed = errors.New("No se pudieron extraer metadatos del archivo.")

// RawRecord is metadata as produced by an extractor: unordered, possibly with
// columns the schema does not use. A nil RawRecord means extraction failed.
type RawRecord map[string]int64

// MissingFieldError reports schema columns absent from an input.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// FromMetadata builds a Record from extractor output. Extra keys are ignored;
// every schema column must be present.
func FromMetadata(raw RawRecord) (Record, error) {
	if raw == nil {
		return Record{}, ErrExtractionFailed
	}

	var (
		rec     Record
		missing []string
	)
	for i, name := range fieldNames {
		v, ok := raw[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		rec.Set(Field(i), v)
	}
	if len(missing) > 0 {
		return Record{}, &MissingFieldError{Fields: missing}
	}
	return rec, nil
}
