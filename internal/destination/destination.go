// Package destination derives daily index names from event timestamps.
package destination

import "time"

const (
	// DayLayout is the date suffix appended to the base index name.
	DayLayout = "2006.01.02"

	// Separator joins the base name and the date suffix.
	Separator = "-"
)

// Resolve returns base-YYYY.MM.DD for the calendar day of tsMillis in loc.
// A nil loc means UTC.
func Resolve(base string, tsMillis int64, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return base + Separator + time.UnixMilli(tsMillis).In(loc).Format(DayLayout)
}

// Resolver resolves index names for a fixed base name and zone.
type Resolver struct {
	Base     string
	Location *time.Location
}

// NewResolver creates a Resolver for base in loc.
func NewResolver(base string, loc *time.Location) Resolver {
	return Resolver{Base: base, Location: loc}
}

// Resolve returns the index for tsMillis.
func (r Resolver) Resolve(tsMillis int64) string {
	return Resolve(r.Base, tsMillis, r.Location)
}

// Pattern returns the wildcard pattern matching every index of the resolver.
func (r Resolver) Pattern() string {
	return r.Base + Separator + "*"
}
