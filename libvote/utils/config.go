package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/ararog/timeago"
)

const (
	LogFileName = "cryptovote.log"

	// DefaultLogLevel is the level used by every subsystem until
	// configured otherwise.
	DefaultLogLevel = "info"

	// UserFilePerm is the permission used for directories created by the
	// application.
	UserFilePerm = 0700

	fullDateformat = "2006-01-02 15:04:05"
	dateOnlyFormat = "2006-01-02"
)

// backendTimeLayouts lists the timestamp layouts the backend is known to
// return: ISO strings from the datastore and datetime-local form values.
var backendTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	fullDateformat,
	dateOnlyFormat,
}

// ParseBackendTime parses a backend timestamp. Values without a zone are
// read as UTC.
func ParseBackendTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range backendTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// TimeAgo returns the time elapsed between t and now in words.
func TimeAgo(t, now time.Time) string {
	timeAgo, _ := timeago.TimeAgoWithTime(now, t)
	return timeAgo
}

// FormatDateOrTime returns the elapsed time in words if t is within a day of
// now, otherwise the date alone.
func FormatDateOrTime(t, now time.Time) string {
	utcTime := t.UTC()
	diff := now.UTC().Sub(utcTime)
	if diff < 0 {
		diff = -diff
	}
	if diff.Hours() > 24 {
		return utcTime.Format(dateOnlyFormat)
	}
	return TimeAgo(t, now)
}

// FormatFullDate formats t in UTC with date and time.
func FormatFullDate(t time.Time) string {
	return t.UTC().Format(fullDateformat)
}
