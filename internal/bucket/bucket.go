// Package bucket maps instants to week-aligned partition keys for the column
// store. Rows are grouped by the Monday 00:00:00 of their ISO week, so a
// historical read scans a bounded number of partitions instead of one huge
// one.
//
// All bucket arithmetic is done in UTC. The original deployment used the
// machine's local zone; fixing UTC keeps bucket keys stable across hosts.
package bucket

import "time"

// epoch is the lower bound of all descending walks: Monday 2023-01-02.
// Messages predate nothing before it, so unbounded walks terminate here.
var epoch = time.Date(2023, time.January, 2, 0, 0, 0, 0, time.UTC)

// Bucket is a week-aligned date: the Monday 00:00:00 UTC of some ISO week.
// The zero value is NOT a valid bucket; use Epoch for the default lower
// bound.
type Bucket struct {
	start time.Time
}

// Epoch returns the default lower bound bucket (2023-01-02, a Monday).
func Epoch() Bucket {
	return Bucket{start: epoch}
}

// Current returns the bucket containing now.
func Current() Bucket {
	return FromTime(time.Now())
}

// FromTime returns the bucket containing t. The time is interpreted in UTC
// and truncated to the Monday of its week.
func FromTime(t time.Time) Bucket {
	t = t.UTC()
	// time.Weekday counts Sunday as 0; shift so Monday is 0.
	back := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return Bucket{start: day.AddDate(0, 0, -back)}
}

// Time returns the bucket's 00:00 instant.
func (b Bucket) Time() time.Time {
	return b.start
}

// Unix returns the bucket's 00:00 instant as seconds since the Unix epoch,
// which is how the partition key is written to the column store.
func (b Bucket) Unix() int64 {
	return b.start.Unix()
}

// Previous returns the prior week's bucket.
func (b Bucket) Previous() Bucket {
	return Bucket{start: b.start.AddDate(0, 0, -7)}
}

// Next returns the following week's bucket.
func (b Bucket) Next() Bucket {
	return Bucket{start: b.start.AddDate(0, 0, 7)}
}

// After reports whether b is a later week than other.
func (b Bucket) After(other Bucket) bool {
	return b.start.After(other.start)
}

// Before reports whether b is an earlier week than other.
func (b Bucket) Before(other Bucket) bool {
	return b.start.Before(other.start)
}

// IterPastTo walks b, b.Previous(), … while strictly after end. The walk is
// finite for any end not after b; callers that want the unbounded history
// pass Epoch().
func (b Bucket) IterPastTo(end Bucket) []Bucket {
	var out []Bucket
	for cur := b; cur.After(end); cur = cur.Previous() {
		out = append(out, cur)
	}
	return out
}

// IterForwardTo walks b, b.Next(), … while strictly before end.
func (b Bucket) IterForwardTo(end Bucket) []Bucket {
	var out []Bucket
	for cur := b; cur.Before(end); cur = cur.Next() {
		out = append(out, cur)
	}
	return out
}
