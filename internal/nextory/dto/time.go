package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// NextoryTime handles the date formats the API uses for publication dates.
type NextoryTime struct {
	time.Time
}

var timeFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON accepts RFC 3339 style strings, plain dates, epoch
// milliseconds and null.
func (nt *NextoryTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		nt.Time = time.Time{}
		return nil
	}

	if len(data) > 0 && data[0] != '"' {
		var millis int64
		if err := json.Unmarshal(data, &millis); err != nil {
			return fmt.Errorf("unable to parse date: %s", data)
		}
		nt.Time = time.UnixMilli(millis).UTC()
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		nt.Time = time.Time{}
		return nil
	}

	for _, format := range timeFormats {
		if t, err := time.Parse(format, s); err == nil {
			nt.Time = t.UTC()
			return nil
		}
	}

	return fmt.Errorf("unable to parse date: %s", s)
}
