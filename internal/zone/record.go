// Package zone defines the taxi zone lookup record shared by every stage of
// the cleaning job.
package zone

// Column names as they appear in the source header and in the Parquet output.
const (
	ColLocationID    = "LocationID"
	ColBorough       = "Borough"
	ColZone          = "Zone"
	ColServiceZone   = "service_zone"
	ColCorruptRecord = "_corrupt_record"
)

// BusinessColumns lists the business attributes in schema order.
var BusinessColumns = []string{ColLocationID, ColBorough, ColZone, ColServiceZone}

// Record is a single taxi zone. A nil field is absent.
// The parquet tags define the output schema.
type Record struct {
	LocationID  *int32  `parquet:"LocationID"`
	Borough     *string `parquet:"Borough"`
	Zone        *string `parquet:"Zone"`
	ServiceZone *string `parquet:"service_zone"`
}

// RawRecord is a Record as produced by the reader. CorruptRecord holds the
// raw line of a row that failed to parse; its business fields are then absent.
type RawRecord struct {
	Record
	CorruptRecord *string
}

// AllAbsent reports whether every business attribute is absent.
func (r Record) AllAbsent() bool {
	return r.LocationID == nil && r.Borough == nil && r.Zone == nil && r.ServiceZone == nil
}

// Key is a comparable projection of a Record: two records are identical
// iff their keys are equal.
type Key struct {
	HasLocationID  bool
	LocationID     int32
	HasBorough     bool
	Borough        string
	HasZone        bool
	Zone           string
	HasServiceZone bool
	ServiceZone    string
}

// Key returns the comparable projection of r.
func (r Record) Key() Key {
	var k Key
	if r.LocationID != nil {
		k.HasLocationID, k.LocationID = true, *r.LocationID
	}
	if r.Borough != nil {
		k.HasBorough, k.Borough = true, *r.Borough
	}
	if r.Zone != nil {
		k.HasZone, k.Zone = true, *r.Zone
	}
	if r.ServiceZone != nil {
		k.HasServiceZone, k.ServiceZone = true, *r.ServiceZone
	}
	return k
}

// Int returns a pointer to v.
func Int(v int32) *int32 { return &v }

// Str returns a pointer to v.
func Str(v string) *string { return &v }
