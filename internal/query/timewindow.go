package query

import "fmt"

// Bucket is the time-series sampling cadence of a bucketed query.
type Bucket string

const (
	BucketMinute         Bucket = "minute"
	BucketFiveMinutes    Bucket = "five_minutes"
	BucketTenMinutes     Bucket = "ten_minutes"
	BucketFifteenMinutes Bucket = "fifteen_minutes"
	BucketHour           Bucket = "hour"
	BucketDay            Bucket = "day"
	BucketWeek           Bucket = "week"
	BucketMonth          Bucket = "month"
	BucketYear           Bucket = "year"
)

// bucketSpec ties a granularity to its store-side truncation function
// and the fill step of the same cadence. Keeping both in one record is
// what guarantees the truncation and the gap-fill can never drift apart.
type bucketSpec struct {
	truncFn  string
	interval string
}

var bucketSpecs = map[Bucket]bucketSpec{
	BucketMinute:         {truncFn: "toStartOfMinute", interval: "1 MINUTE"},
	BucketFiveMinutes:    {truncFn: "toStartOfFiveMinutes", interval: "5 MINUTE"},
	BucketTenMinutes:     {truncFn: "toStartOfTenMinutes", interval: "10 MINUTE"},
	BucketFifteenMinutes: {truncFn: "toStartOfFifteenMinutes", interval: "15 MINUTE"},
	BucketHour:           {truncFn: "toStartOfHour", interval: "1 HOUR"},
	BucketDay:            {truncFn: "toStartOfDay", interval: "1 DAY"},
	BucketWeek:           {truncFn: "toStartOfWeek", interval: "7 DAY"},
	BucketMonth:          {truncFn: "toStartOfMonth", interval: "1 MONTH"},
	BucketYear:           {truncFn: "toStartOfYear", interval: "1 YEAR"},
}

// ParseBucket validates a bucket name. An empty name defaults to day.
func ParseBucket(name string) (Bucket, error) {
	if name == "" {
		return BucketDay, nil
	}
	b := Bucket(name)
	if _, ok := bucketSpecs[b]; !ok {
		return "", invalidParam("bucket", "unknown bucket %q", name)
	}
	return b, nil
}

// TruncFn returns the store-side timestamp truncation function for the
// bucket.
func (b Bucket) TruncFn() string {
	return bucketSpecs[b].truncFn
}

// Interval returns the fixed step interval literal matching the bucket's
// cadence.
func (b Bucket) Interval() string {
	return bucketSpecs[b].interval
}

// Buckets lists every supported granularity.
func Buckets() []Bucket {
	return []Bucket{
		BucketMinute, BucketFiveMinutes, BucketTenMinutes, BucketFifteenMinutes,
		BucketHour, BucketDay, BucketWeek, BucketMonth, BucketYear,
	}
}

// TimeFragment renders the WHERE fragment bounding the event timestamp
// for a validated TimeSpec. The fragment starts with "AND"; the all-time
// spec yields an empty string.
//
// Explicit ranges use caller-timezone day boundaries converted to UTC.
// A range ending on the caller's current day is bounded by now() instead
// of a future midnight.
func TimeFragment(ts TimeSpec) string {
	if ts.Date != nil {
		d := ts.Date
		if d.StartDate == "" && d.EndDate == "" {
			return ""
		}
		start := EscapeLiteral(d.StartDate)
		end := EscapeLiteral(d.EndDate)
		tz := EscapeLiteral(d.Timezone)
		return fmt.Sprintf(
			"AND timestamp >= toTimeZone(toStartOfDay(toDateTime(%s, %s)), 'UTC')"+
				" AND timestamp < if(toDate(%s) = toDate(now(), %s), now(),"+
				" toTimeZone(toStartOfDay(toDateTime(%s, %s)) + INTERVAL 1 DAY, 'UTC'))",
			start, tz, end, tz, end, tz)
	}

	if r := ts.PastMinutesRange; r != nil {
		return fmt.Sprintf(
			"AND timestamp > now() - INTERVAL %d MINUTE AND timestamp <= now() - INTERVAL %d MINUTE",
			r.Start, r.End)
	}

	if ts.PastMinutes > 0 {
		return fmt.Sprintf("AND timestamp > now() - INTERVAL %d MINUTE", ts.PastMinutes)
	}

	return ""
}

// FillFragment renders the WITH FILL clause gap-filling a bucketed query
// between the first and last bucket boundary of the TimeSpec. All-time
// specs never gap-fill: there is no fixed boundary to fill between.
//
// The upper boundary uses the same "ends today means now()" truncation
// as TimeFragment, so both fragments always agree on the window edge.
func FillFragment(ts TimeSpec, bucket Bucket) string {
	if ts.IsAllTime() {
		return ""
	}
	spec := bucketSpecs[bucket]

	if ts.Date != nil {
		d := ts.Date
		start := EscapeLiteral(d.StartDate)
		end := EscapeLiteral(d.EndDate)
		tz := EscapeLiteral(d.Timezone)
		return fmt.Sprintf(
			"WITH FILL FROM toTimeZone(toDateTime(%s(toDateTime(%s, %s))), 'UTC')"+
				" TO if(toDate(%s) = toDate(now(), %s), now(),"+
				" toTimeZone(toDateTime(%s(toDateTime(%s, %s))) + INTERVAL 1 DAY, 'UTC'))"+
				" STEP INTERVAL %s",
			spec.truncFn, start, tz, end, tz, spec.truncFn, end, tz, spec.interval)
	}

	if r := ts.PastMinutesRange; r != nil {
		return fmt.Sprintf(
			"WITH FILL FROM now() - INTERVAL %d MINUTE TO now() - INTERVAL %d MINUTE STEP INTERVAL %s",
			r.Start, r.End, spec.interval)
	}

	return fmt.Sprintf(
		"WITH FILL FROM now() - INTERVAL %d MINUTE TO now() STEP INTERVAL %s",
		ts.PastMinutes, spec.interval)
}
