package utils

import "time"

// TimestampLayout is the layout used across screens, reports and process logs.
const TimestampLayout = "01/02/2006, 03:04:05 PM"

// FormatTimestamp renders a time the way reports display it
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
