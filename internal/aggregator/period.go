package aggregator

import (
	"time"

	"github.com/sanspareilsmyn/mongolens/internal/config"
)

const (
	secondsPerDay = 24 * 60 * 60
	bucketLayout  = "2006-01-02"
)

// Bucket returns the first and last day (inclusive, UTC) of the fixed-width
// calendar bucket containing t. Buckets are aligned on the Unix epoch for
// days, on January of year 0 for months and on year 0 for years, so every
// timestamp maps to exactly one bucket regardless of when the report runs.
func Bucket(t time.Time, period string, count int) (start, end time.Time) {
	if count < 1 {
		count = 1
	}
	t = t.UTC()

	switch period {
	case config.PeriodDay:
		day := floorDiv(floorDiv(t.Unix(), secondsPerDay), int64(count)) * int64(count)
		start = time.Unix(day*secondsPerDay, 0).UTC()
		end = start.AddDate(0, 0, count-1)
	case config.PeriodYear:
		year := int(floorDiv(int64(t.Year()), int64(count)) * int64(count))
		start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(count, 0, -1)
	default:
		months := int64(t.Year())*12 + int64(t.Month()) - 1
		first := floorDiv(months, int64(count)) * int64(count)
		start = time.Date(int(floorDiv(first, 12)), time.Month(first-floorDiv(first, 12)*12+1), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, count, -1)
	}
	return start, end
}

// BucketKey formats the bucket containing t as "YYYY-MM-DD/YYYY-MM-DD".
func BucketKey(t time.Time, period string, count int) string {
	start, end := Bucket(t, period, count)
	return start.Format(bucketLayout) + "/" + end.Format(bucketLayout)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
