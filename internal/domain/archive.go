package domain

import "encoding/json"

// ArchivedPoint is a numeric sample persisted to the series archive.
// Corresponds to the series_points table in ClickHouse.
type ArchivedPoint struct {
	SessionID  string  // stream session identifier (see internal/idhash)
	SeriesName string  // series slot name
	Time       float64 // sample time in seconds
	Value      float64 // sample value
}

// LayoutRecord is a persisted layout document.
// Corresponds to the layouts table in PostgreSQL.
type LayoutRecord struct {
	Name      string          // unique layout name
	Document  json.RawMessage // serialized layout.Document
	SavedAtMs int64           // Unix timestamp in milliseconds
}
