// Package domain contains the core value types shared by the engine:
// series points, time windows and transform definitions.
package domain

// ValueKind identifies the payload type of a series.
// A series name is bound to exactly one kind while it exists.
type ValueKind string

// Supported series kinds.
const (
	KindNumeric     ValueKind = "numeric"
	KindString      ValueKind = "string"
	KindUserDefined ValueKind = "user_defined"
)

// Point is a single time-indexed sample. Time values within a series are
// non-decreasing; ties are permitted and lookups use the first match.
type Point[V any] struct {
	Time  float64 `json:"time"`
	Value V       `json:"value"`
}

// Window defines the interval [t-PrevSeconds, t+NextSeconds] relative to a
// reference time t (tracker time, or a preview midpoint before a tracker
// time exists).
type Window struct {
	PrevSeconds float64 `json:"prev_seconds"`
	NextSeconds float64 `json:"next_seconds"`
}

// Interval returns the closed bounds of the window around t.
func (w Window) Interval(t float64) (low, high float64) {
	return t - w.PrevSeconds, t + w.NextSeconds
}
