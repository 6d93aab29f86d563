package cloudtrail

import (
	"encoding/json"
	"fmt"
	"io"
)

// ValidateRecords checks that the reader holds a JSON object with a Records
// array, the shape CloudTrail delivers. It scans tokens instead of decoding
// the document, so memory use stays flat for large log files.
func ValidateRecords(r io.Reader) error {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return ErrNotJSONObject
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read payload key: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return ErrNotJSONObject
		}

		if name == "Records" {
			tok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("read Records value: %w", err)
			}
			if d, ok := tok.(json.Delim); !ok || d != '[' {
				return ErrMissingRecords
			}
			return nil
		}

		// Skip the value of any other key.
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return fmt.Errorf("skip payload value: %w", err)
		}
	}

	return ErrMissingRecords
}
