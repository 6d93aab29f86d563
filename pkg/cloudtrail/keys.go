// Package cloudtrail models CloudTrail log object keys and their inferred
// metadata, and validates decompressed log payloads.
package cloudtrail

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

// ObjectRef identifies one remote compressed log object. Immutable once listed.
type ObjectRef struct {
	// Key is the full S3 key of the compressed log object.
	Key string
	// Size is the object size in bytes as reported by the listing.
	Size int64
	// Account is the AWS account id inferred from the key.
	Account string
	// Region is the AWS region inferred from the key.
	Region string
	// Date is the UTC day inferred from the key.
	Date time.Time
}

// DayPrefix returns the S3 key prefix for one day of CloudTrail delivery:
// AWSLogs/{account}/CloudTrail/{region}/{yyyy}/{mm}/{dd}/
func DayPrefix(account, region string, day time.Time) string {
	return fmt.Sprintf("AWSLogs/%s/CloudTrail/%s/%04d/%02d/%02d/",
		account, region, day.Year(), day.Month(), day.Day())
}

// ParseKey infers account, region, and delivery date from a CloudTrail key.
// Expected shape: AWSLogs/{account}/CloudTrail/{region}/{yyyy}/{mm}/{dd}/{file}
func ParseKey(key string) (account, region string, date time.Time, err error) {
	parts := strings.Split(key, "/")
	if len(parts) < 8 || parts[0] != "AWSLogs" || parts[2] != "CloudTrail" {
		return "", "", time.Time{}, fmt.Errorf("parse key %q: %w", key, ErrMalformedKey)
	}

	account = parts[1]
	region = parts[3]

	year, err1 := strconv.Atoi(parts[4])
	month, err2 := strconv.Atoi(parts[5])
	day, err3 := strconv.Atoi(parts[6])
	if err1 != nil || err2 != nil || err3 != nil {
		return "", "", time.Time{}, fmt.Errorf("parse key %q: %w", key, ErrMalformedKey)
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", "", time.Time{}, fmt.Errorf("parse key %q: %w", key, ErrMalformedKey)
	}

	date = time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return account, region, date, nil
}

// IsLogObject reports whether the key names a compressed CloudTrail log file.
// Delivery prefixes also contain digest and marker objects that are skipped.
func IsLogObject(key string) bool {
	return strings.HasSuffix(key, ".gz")
}

// ProcessedName maps a compressed key to its decompressed file name:
// the .gz suffix is dropped and a .json suffix is ensured.
func ProcessedName(key string) string {
	name := strings.TrimSuffix(key, ".gz")
	if path.Ext(name) != ".json" {
		name += ".json"
	}
	return name
}

// DateRange is an inclusive range of UTC days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a range from inclusive start and end days.
// The times are truncated to day granularity in UTC.
func NewDateRange(start, end time.Time) (DateRange, error) {
	s := truncateDay(start)
	e := truncateDay(end)
	if e.Before(s) {
		return DateRange{}, fmt.Errorf("date range end %s before start %s",
			e.Format("2006-01-02"), s.Format("2006-01-02"))
	}
	return DateRange{Start: s, End: e}, nil
}

// ParseDateRange parses YYYY-MM-DD start and end strings. An empty end
// means a single-day range.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.ParseInLocation("2006-01-02", start, time.UTC)
	if err != nil {
		return DateRange{}, fmt.Errorf("parse start date %q: %w", start, err)
	}
	if end == "" {
		return NewDateRange(s, s)
	}
	e, err := time.ParseInLocation("2006-01-02", end, time.UTC)
	if err != nil {
		return DateRange{}, fmt.Errorf("parse end date %q: %w", end, err)
	}
	return NewDateRange(s, e)
}

// Days returns every day in the range, in order.
func (r DateRange) Days() []time.Time {
	var days []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Contains reports whether the day falls within the range (inclusive).
func (r DateRange) Contains(day time.Time) bool {
	d := truncateDay(day)
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) String() string {
	return r.Start.Format("2006-01-02") + ".." + r.End.Format("2006-01-02")
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
