package domain

// TransformKind identifies a built-in transform implementation.
type TransformKind string

// Built-in transform kinds.
const (
	TransformTimeWindow     TransformKind = "time_window"
	TransformScaleOffset    TransformKind = "scale_offset"
	TransformMovingAverage  TransformKind = "moving_average"
	TransformDerivative     TransformKind = "derivative"
	TransformIntegral       TransformKind = "integral"
	TransformCustomEquation TransformKind = "custom_equation"
)

// TransformDef describes a named transform function. Identity is the
// Destination name: redefining a transform with the same destination
// replaces the previous definition.
type TransformDef struct {
	// Destination is the name of the output series.
	Destination string `json:"destination"`

	// LinkedSource is the primary input series name. May be empty for
	// source-less generators.
	LinkedSource string `json:"linked_source,omitempty"`

	// AdditionalSources are further input series names.
	AdditionalSources []string `json:"additional_sources,omitempty"`

	// Kind selects the implementation.
	Kind TransformKind `json:"kind"`

	// Params holds numeric parameters (window bounds, scale factors, ...).
	Params map[string]float64 `json:"params,omitempty"`

	// Formula is the user-authored expression for custom equations.
	Formula string `json:"formula,omitempty"`

	// Order is a tie-break for evaluation sequence among transforms with
	// no dependency relation. Lower values evaluate first.
	Order int `json:"order"`

	// Reactive transforms are recomputed on every tracker move instead of
	// on source-data change.
	Reactive bool `json:"reactive"`
}

// Sources returns the declared input names, linked source first, with
// duplicates and self-references removed.
func (d TransformDef) Sources() []string {
	seen := make(map[string]struct{}, 1+len(d.AdditionalSources))
	var out []string
	add := func(name string) {
		if name == "" || name == d.Destination {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	add(d.LinkedSource)
	for _, s := range d.AdditionalSources {
		add(s)
	}
	return out
}

// Param returns a numeric parameter or the given default when absent.
func (d TransformDef) Param(name string, def float64) float64 {
	if v, ok := d.Params[name]; ok {
		return v
	}
	return def
}
