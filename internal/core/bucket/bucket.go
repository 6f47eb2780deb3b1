// Package bucket partitions a date range into contiguous, calendar-aligned periods
package bucket

import (
	"fmt"
	"sort"
	"strings"
	"time"

	perr "reportdash/internal/platform/errors"
)

// Granularity is the calendar period length of a bucket
type Granularity string

const (
	Day     Granularity = "day"
	Week    Granularity = "week"
	Month   Granularity = "month"
	Quarter Granularity = "quarter"
	Year    Granularity = "year"
)

// MaxBuckets caps how many periods one range may expand to
const MaxBuckets = 5000

// Valid reports whether g is a known granularity
func (g Granularity) Valid() bool {
	switch g {
	case Day, Week, Month, Quarter, Year:
		return true
	}
	return false
}

// ParseGranularity accepts a granularity name case-insensitively
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", perr.InvalidArgf("unknown granularity %q", s)
	}
	return g, nil
}

// Bucket is a half-open period [Start, End) with its display label
type Bucket struct {
	Start time.Time
	End   time.Time
	Label string
}

// Bucketer holds the ordered buckets for one range
type Bucketer struct {
	g       Granularity
	start   time.Time
	buckets []Bucket
}

// New expands [start, end] into buckets of g. The first bucket begins at
// start and the last runs to the end of the period containing end.
// Week buckets begin on Monday.
func New(start, end time.Time, g Granularity) (*Bucketer, error) {
	if !g.Valid() {
		return nil, perr.WithField(perr.InvalidArgf("unknown granularity %q", g), "granularity")
	}
	start, end = start.UTC(), end.UTC()
	if start.After(end) {
		return nil, perr.WithField(perr.InvalidArgf("range start %s is after end %s",
			start.Format(time.DateOnly), end.Format(time.DateOnly)), "start")
	}
	b := &Bucketer{g: g, start: start}
	last := Floor(end, g)
	for cur := Floor(start, g); !cur.After(last); cur = Next(cur, g) {
		if len(b.buckets) == MaxBuckets {
			return nil, perr.WithField(perr.InvalidArgf("range expands to more than %d %s buckets", MaxBuckets, g), "granularity")
		}
		bk := Bucket{Start: cur, End: Next(cur, g), Label: Label(cur, g)}
		if bk.Start.Before(start) {
			bk.Start = start
		}
		b.buckets = append(b.buckets, bk)
	}
	return b, nil
}

// Span covers the same window as New(start, end, g) with a single bucket
func Span(start, end time.Time, g Granularity) (*Bucketer, error) {
	if !g.Valid() {
		return nil, perr.WithField(perr.InvalidArgf("unknown granularity %q", g), "granularity")
	}
	start, end = start.UTC(), end.UTC()
	if start.After(end) {
		return nil, perr.WithField(perr.InvalidArgf("range start %s is after end %s",
			start.Format(time.DateOnly), end.Format(time.DateOnly)), "start")
	}
	bk := Bucket{Start: start, End: Next(Floor(end, g), g), Label: Label(Floor(start, g), g)}
	return &Bucketer{g: g, start: start, buckets: []Bucket{bk}}, nil
}

// Granularity returns the period length
func (b *Bucketer) Granularity() Granularity { return b.g }

// Buckets returns the periods in order. Callers must not mutate the slice.
func (b *Bucketer) Buckets() []Bucket { return b.buckets }

// Len is the bucket count
func (b *Bucketer) Len() int { return len(b.buckets) }

// Labels returns the bucket labels in order
func (b *Bucketer) Labels() []string {
	out := make([]string, len(b.buckets))
	for i, bk := range b.buckets {
		out[i] = bk.Label
	}
	return out
}

// Window is the half-open interval covered by all buckets
func (b *Bucketer) Window() (start, end time.Time) {
	return b.start, b.buckets[len(b.buckets)-1].End
}

// Contains reports whether t falls inside the window
func (b *Bucketer) Contains(t time.Time) bool {
	lo, hi := b.Window()
	return !t.Before(lo) && t.Before(hi)
}

// Assign returns the index of the bucket containing t
func (b *Bucketer) Assign(t time.Time) (int, bool) {
	if !b.Contains(t) {
		return -1, false
	}
	i := sort.Search(len(b.buckets), func(i int) bool { return t.Before(b.buckets[i].End) })
	return i, true
}

// Floor returns the start of the period of g containing t
func Floor(t time.Time, g Granularity) time.Time {
	t = t.UTC()
	y, m, d := t.Date()
	switch g {
	case Week:
		off := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-off, 0, 0, 0, 0, time.UTC)
	case Month:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case Quarter:
		return time.Date(y, ((m-1)/3)*3+1, 1, 0, 0, 0, 0, time.UTC)
	case Year:
		return time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}

// Next returns the start of the period following the one starting at floor
func Next(floor time.Time, g Granularity) time.Time {
	switch g {
	case Week:
		return floor.AddDate(0, 0, 7)
	case Month:
		return floor.AddDate(0, 1, 0)
	case Quarter:
		return floor.AddDate(0, 3, 0)
	case Year:
		return floor.AddDate(1, 0, 0)
	default:
		return floor.AddDate(0, 0, 1)
	}
}

// Label renders the period starting at floor: 2024-01-15, 2024-01, 2024-Q1 or 2024
func Label(floor time.Time, g Granularity) string {
	switch g {
	case Month:
		return floor.Format("2006-01")
	case Quarter:
		return fmt.Sprintf("%d-Q%d", floor.Year(), (int(floor.Month())-1)/3+1)
	case Year:
		return floor.Format("2006")
	default:
		return floor.Format(time.DateOnly)
	}
}
