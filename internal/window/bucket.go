package window

import "dexstats/internal/domain"

const (
	DaySeconds  int64 = 86400
	HourSeconds int64 = 3600
)

// floor division, timestamps before the epoch still land in the right bucket
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func DayIndex(ts int64) int64  { return floorDiv(ts, DaySeconds) }
func HourIndex(ts int64) int64 { return floorDiv(ts, HourSeconds) }

func DayStart(dayIndex int64) int64   { return dayIndex * DaySeconds }
func HourStart(hourIndex int64) int64 { return hourIndex * HourSeconds }

// BucketID "<subject>-<index>"
func BucketID(subject string, index int64) string {
	return domain.BucketID(subject, index)
}
