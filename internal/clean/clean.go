// Package clean holds the pure record-set transformations of the job. Every
// stage returns a new slice and never mutates its input.
package clean

import (
	"strings"

	"github.com/sqlpipe/taxi-zone-cleaner/internal/zone"
)

// Stage transforms a record set.
type Stage func([]zone.Record) []zone.Record

// Apply runs the stages in order.
func Apply(records []zone.Record, stages ...Stage) []zone.Record {
	for _, stage := range stages {
		records = stage(records)
	}
	return records
}

// Project drops the malformed-row capture column.
func Project(raw []zone.RawRecord) []zone.Record {
	out := make([]zone.Record, len(raw))
	for i, r := range raw {
		out[i] = r.Record
	}
	return out
}

// DropAllAbsent removes records whose business attributes are all absent.
// Records with only some attributes absent are kept.
func DropAllAbsent(records []zone.Record) []zone.Record {
	out := make([]zone.Record, 0, len(records))
	for _, r := range records {
		if !r.AllAbsent() {
			out = append(out, r)
		}
	}
	return out
}

// TrimStrings strips leading and trailing white space from Borough, Zone and
// service_zone. Absent values stay absent.
func TrimStrings(records []zone.Record) []zone.Record {
	out := make([]zone.Record, len(records))
	for i, r := range records {
		out[i] = zone.Record{
			LocationID:  r.LocationID,
			Borough:     trim(r.Borough),
			Zone:        trim(r.Zone),
			ServiceZone: trim(r.ServiceZone),
		}
	}
	return out
}

func trim(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// Dedup collapses exact duplicates, keeping the first occurrence and the
// input order of survivors.
func Dedup(records []zone.Record) []zone.Record {
	seen := make(map[zone.Key]struct{}, len(records))
	out := make([]zone.Record, 0, len(records))
	for _, r := range records {
		k := r.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
