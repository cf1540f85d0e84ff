package logging

import "time"

// Console timestamps keep milliseconds; decoder startup and segment merges
// are usually well under a second apart.
const consoleTimeLayout = "2006-01-02 15:04:05.000"

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(consoleTimeLayout)
}
