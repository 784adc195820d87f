package utils

import (
	"time"
)

const millisPerDay = 24 * 60 * 60 * 1000

// EpochDay returns the number of whole UTC days since 1970-01-01.
func EpochDay(t time.Time) int64 {
	ms := t.UnixMilli()
	day := ms / millisPerDay
	if ms%millisPerDay < 0 {
		day--
	}
	return day
}

// Days returns a duration of n days.
func Days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// FromEpochMillis converts epoch milliseconds to a UTC time.
func FromEpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
