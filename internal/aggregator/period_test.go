package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sanspareilsmyn/mongolens/internal/config"
)

func TestBucketKey(t *testing.T) {
	ts := time.Date(2024, time.March, 15, 13, 45, 0, 0, time.UTC)

	tests := []struct {
		name   string
		period string
		count  int
		want   string
	}{
		{"single day", config.PeriodDay, 1, "2024-03-15/2024-03-15"},
		{"week of days", config.PeriodDay, 7, "2024-03-14/2024-03-20"},
		{"single month", config.PeriodMonth, 1, "2024-03-01/2024-03-31"},
		{"quarter", config.PeriodMonth, 3, "2024-01-01/2024-03-31"},
		{"half year", config.PeriodMonth, 6, "2024-01-01/2024-06-30"},
		{"single year", config.PeriodYear, 1, "2024-01-01/2024-12-31"},
		{"decade", config.PeriodYear, 10, "2020-01-01/2029-12-31"},
		{"zero count", config.PeriodMonth, 0, "2024-03-01/2024-03-31"},
		{"unknown period", "fortnight", 1, "2024-03-01/2024-03-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BucketKey(ts, tt.period, tt.count))
		})
	}
}

func TestBucketUsesUTC(t *testing.T) {
	zone := time.FixedZone("UTC+9", 9*60*60)
	ts := time.Date(2024, time.April, 1, 2, 0, 0, 0, zone)

	assert.Equal(t, "2024-03-31/2024-03-31", BucketKey(ts, config.PeriodDay, 1))
	assert.Equal(t, "2024-03-01/2024-03-31", BucketKey(ts, config.PeriodMonth, 1))
}

func TestBucketsPartitionTime(t *testing.T) {
	start := time.Date(2023, time.December, 25, 0, 0, 0, 0, time.UTC)
	for i := range 30 {
		ts := start.AddDate(0, 0, i)
		from, to := Bucket(ts, config.PeriodDay, 5)
		assert.False(t, ts.Before(from), ts)
		assert.False(t, ts.After(to.AddDate(0, 0, 1)), ts)
		assert.Equal(t, 4, int(to.Sub(from).Hours()/24))
	}
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, int64(2), floorDiv(7, 3))
	assert.Equal(t, int64(-3), floorDiv(-7, 3))
	assert.Equal(t, int64(-2), floorDiv(-6, 3))
}
