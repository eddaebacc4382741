package event

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Bucket is a relative date-range filter for event listings.
// Weeks run Sunday through Saturday.
type Bucket string

const (
	BucketAll          Bucket = "all"
	BucketToday        Bucket = "today"
	BucketCurrentWeek  Bucket = "current-week"
	BucketLastWeek     Bucket = "last-week"
	BucketCurrentMonth Bucket = "current-month"
	BucketLastMonth    Bucket = "last-month"
)

func ParseBucket(s string) (Bucket, error) {
	switch Bucket(s) {
	case "", BucketAll:
		return BucketAll, nil
	case BucketToday, BucketCurrentWeek, BucketLastWeek, BucketCurrentMonth, BucketLastMonth:
		return Bucket(s), nil
	}
	return "", fmt.Errorf("unknown date range %q", s)
}

// Filter narrows events by a case-insensitive title substring and a date
// bucket computed against now, then orders the result by date descending.
// Ties keep their relative order. The input slice is not modified.
func Filter(events []Event, term string, bucket Bucket, now time.Time) []Event {
	out := make([]Event, 0, len(events))

	term = strings.ToLower(strings.TrimSpace(term))

	for _, e := range events {
		if term != "" && !strings.Contains(strings.ToLower(e.Title), term) {
			continue
		}
		if !inBucket(e.DateTime, bucket, now) {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateTime.After(out[j].DateTime)
	})

	return out
}

func inBucket(t time.Time, bucket Bucket, now time.Time) bool {
	loc := now.Location()
	day := startOfDay(t.In(loc))
	today := startOfDay(now)

	// Sunday that starts the current week.
	weekStart := today.AddDate(0, 0, -int(today.Weekday()))

	switch bucket {
	case BucketAll, "":
		return true
	case BucketToday:
		return day.Equal(today)
	case BucketCurrentWeek:
		return !day.Before(weekStart) && day.Before(weekStart.AddDate(0, 0, 7))
	case BucketLastWeek:
		lastStart := weekStart.AddDate(0, 0, -7)
		return !day.Before(lastStart) && day.Before(weekStart)
	case BucketCurrentMonth:
		return day.Year() == today.Year() && day.Month() == today.Month()
	case BucketLastMonth:
		prev := today.AddDate(0, 0, -today.Day()) // last day of the prior month
		return day.Year() == prev.Year() && day.Month() == prev.Month()
	}

	return false
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
