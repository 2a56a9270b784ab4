package places

import (
	"strings"
	"time"
)

// Sentinel is the serialized form of a field whose extraction failed. It
// matches the marker used by the legacy output files so mixed files resume cleanly.
const Sentinel = "Gagal"

// Status is the operating state of a place.
type Status string

// Operating states written to the status column.
const (
	StatusActive            Status = "Aktif"
	StatusPermanentlyClosed Status = "Tutup Permanen"
	StatusTemporarilyClosed Status = "Tutup Sementara"
	StatusClosed            Status = "Tutup"
	// StatusError marks a failed lookup; the classifier never returns it.
	StatusError Status = "Error"
)

// Specificity ranks statuses so a more specific signal can override a vaguer one.
func (s Status) Specificity() int {
	switch s {
	case StatusPermanentlyClosed:
		return 3
	case StatusTemporarilyClosed:
		return 2
	case StatusClosed:
		return 1
	default:
		return 0
	}
}

// WorkItem is one (id, query) pair to resolve.
type WorkItem struct {
	ID    string
	Query string
}

// Field is one extracted attribute. Source names the strategy that produced it.
type Field struct {
	Value  string
	Source string
	OK     bool
}

// Found builds a successfully extracted field.
func Found(value, source string) Field {
	return Field{Value: value, Source: source, OK: true}
}

// Missing builds a field whose extraction failed.
func Missing() Field {
	return Field{}
}

// String returns the value, or Sentinel when extraction failed.
func (f Field) String() string {
	if !f.OK {
		return Sentinel
	}
	return f.Value
}

// Coordinates is a latitude/longitude pair in decimal degrees, kept verbatim
// as it appeared in the locator.
type Coordinates struct {
	Lat string
	Lon string
}

// PlaceRecord is one output row: a single candidate resolved for a work item.
type PlaceRecord struct {
	ID             string
	Query          string
	DisplayName    Field
	Category       Field
	Rating         Field
	Address        Field
	Phone          Field
	Website        Field
	Latitude       Field
	Longitude      Field
	Status         Status
	OpenStatus     Field
	OperatingHours Field
	// Error explains a failed lookup; empty for extracted candidates.
	Error string
}

// Failed reports whether the record stands for a failed lookup rather than a candidate.
func (r PlaceRecord) Failed() bool {
	return r.Status == StatusError || !r.DisplayName.OK
}

// FailureRecord builds the single record emitted when a work item produced no
// usable candidate. Every field is missing so the id still checkpoints.
func FailureRecord(item WorkItem, reason string) PlaceRecord {
	return PlaceRecord{
		ID:     item.ID,
		Query:  item.Query,
		Status: StatusError,
		Error:  reason,
	}
}

// Columns is the fixed primary column order of the output store.
var Columns = []string{
	"id",
	"query",
	"display_name",
	"category",
	"rating",
	"address",
	"phone",
	"website",
	"latitude",
	"longitude",
	"status",
	"open_status",
	"operating_hours",
	"error",
}

// IDColumnAliases lists header names accepted for the id column when resuming.
var IDColumnAliases = []string{"id", "idsbr"}

// legacyColumns maps lowercased headers of older output files onto Columns.
var legacyColumns = map[string]string{
	"idsbr":             "id",
	"place":             "query",
	"actual place name": "display_name",
	"phone number":      "phone",
	"open status":       "open_status",
	"operation hours":   "operating_hours",
}

// CanonicalColumn maps a header name, including legacy names, onto its entry
// in Columns. Names that match nothing are returned lowercased.
func CanonicalColumn(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if col, ok := legacyColumns[key]; ok {
		return col
	}
	return strings.ReplaceAll(key, " ", "_")
}

// Values returns the record keyed by column name, with text cleaned for a
// single-line delimited row.
func (r PlaceRecord) Values() map[string]string {
	return map[string]string{
		"id":              CleanText(r.ID),
		"query":           CleanText(r.Query),
		"display_name":    CleanText(r.DisplayName.String()),
		"category":        CleanText(r.Category.String()),
		"rating":          CleanText(r.Rating.String()),
		"address":         CleanText(r.Address.String()),
		"phone":           CleanText(r.Phone.String()),
		"website":         CleanText(r.Website.String()),
		"latitude":        CleanText(r.Latitude.String()),
		"longitude":       CleanText(r.Longitude.String()),
		"status":          string(r.Status),
		"open_status":     CleanText(r.OpenStatus.String()),
		"operating_hours": CleanText(r.OperatingHours.String()),
		"error":           CleanText(r.Error),
	}
}

// Row returns the record in the given column order. Columns the record does
// not carry hold Sentinel.
func (r PlaceRecord) Row(columns []string) []string {
	values := r.Values()
	row := make([]string, len(columns))
	for i, col := range columns {
		v, ok := values[col]
		if !ok {
			v = Sentinel
		}
		row[i] = v
	}
	return row
}

// CleanText drops icon-font glyphs and line breaks so a value fits on one row.
func CleanText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 0xE000 && r <= 0xF8FF:
			// private use area: icon font glyphs rendered next to labels
		case r == '\n' || r == '\r':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Result is what a worker reports for one work item.
type Result struct {
	Item     WorkItem
	Records  []PlaceRecord
	Err      error
	Worker   int
	Duration time.Duration
}

// Failed reports whether every record of the result is a failure record.
func (r Result) Failed() bool {
	if len(r.Records) == 0 {
		return true
	}
	for _, rec := range r.Records {
		if !rec.Failed() {
			return false
		}
	}
	return true
}
