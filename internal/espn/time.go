package espn

import (
	"strings"
	"time"
)

// Time accepts both RFC3339 and the minute-precision "2006-01-02T15:04Z" stamps ESPN emits.
type Time struct {
	time.Time
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (t *Time) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}

	var parseErr error
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z07:00"} {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		parseErr = err
	}
	return parseErr
}
