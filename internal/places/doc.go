// Package places defines the core types shared across the scraper subsystems:
// work items read from the input store, the place records written to the
// output store, and the content-view capabilities a lookup session exposes.
//
// Every PlaceRecord field is a Field, which either carries an extracted value
// or reports that extraction failed. The textual Sentinel only appears when a
// record is serialized, so code handling records never confuses a scraped
// literal with a failure marker.
package places
