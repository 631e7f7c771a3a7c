package query

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// dateFormats are tried in order; day-first layouts come before month-first
// ones because the indexed documents are European business records.
var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.06",
}

// ParseDate normalizes token to the engine date layout. The second result is
// false when no known layout matches.
func ParseDate(token string) (string, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, token); err == nil {
			return t.Format(dateLayout), true
		}
	}
	return "", false
}
