package entities

import (
	"fmt"
	"time"
)

// TimeBucket is one period of the planning horizon: [Start, End)
type TimeBucket struct {
	Index int       `json:"index"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the bucket length in whole days
func (b TimeBucket) Days() int {
	return int(b.End.Sub(b.Start).Hours() / 24)
}

// Contains reports whether t falls inside the bucket
func (b TimeBucket) Contains(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End)
}

// Horizon is the ordered, contiguous sequence of buckets a run plans over
type Horizon []TimeBucket

// NewHorizon builds count contiguous buckets of bucketDays each, starting at start (truncated to the day)
func NewHorizon(start time.Time, bucketDays, count int) (Horizon, error) {
	if bucketDays <= 0 {
		return nil, fmt.Errorf("bucket length must be positive, got %d", bucketDays)
	}
	if count <= 0 {
		return nil, fmt.Errorf("horizon must have at least one bucket, got %d", count)
	}

	cursor := TruncateDay(start)
	horizon := make(Horizon, count)
	for i := range horizon {
		end := cursor.AddDate(0, 0, bucketDays)
		horizon[i] = TimeBucket{Index: i, Start: cursor, End: end}
		cursor = end
	}
	return horizon, nil
}

// Start returns the first instant of the horizon
func (h Horizon) Start() time.Time {
	if len(h) == 0 {
		return time.Time{}
	}
	return h[0].Start
}

// End returns the instant right after the horizon
func (h Horizon) End() time.Time {
	if len(h) == 0 {
		return time.Time{}
	}
	return h[len(h)-1].End
}

// TotalDays is the horizon length in days
func (h Horizon) TotalDays() int {
	return int(h.End().Sub(h.Start()).Hours() / 24)
}

// IndexOf maps a date to its bucket. Dates before the horizon land in bucket 0 (past due);
// dates at or after the end return false.
func (h Horizon) IndexOf(t time.Time) (int, bool) {
	if len(h) == 0 || !t.Before(h.End()) {
		return 0, false
	}
	if t.Before(h.Start()) {
		return 0, true
	}
	for _, b := range h {
		if b.Contains(t) {
			return b.Index, true
		}
	}
	return 0, false
}

// NeedDate is the date a receipt must be available for bucket i
func (h Horizon) NeedDate(i int) time.Time {
	return h[i].Start
}

// TruncateDay drops the time-of-day part, keeping the location
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the signed number of whole days from a to b
func DaysBetween(a, b time.Time) int {
	return int(TruncateDay(b).Sub(TruncateDay(a)).Hours() / 24)
}
