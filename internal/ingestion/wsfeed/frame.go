package wsfeed

import (
	"encoding/json"
	"fmt"
)

// sampleFrame is one decoded feed message. Exactly one of numericValue and
// stringValue is set.
type sampleFrame struct {
	Series string
	Time   float64

	numericValue float64
	stringValue  *string
}

type wireFrame struct {
	Series string          `json:"series"`
	Time   float64         `json:"time"`
	Value  json.RawMessage `json:"value"`
}

func parseFrame(data []byte) (sampleFrame, error) {
	var wire wireFrame
	if err := json.Unmarshal(data, &wire); err != nil {
		return sampleFrame{}, fmt.Errorf("malformed frame: %w", err)
	}
	if wire.Series == "" {
		return sampleFrame{}, fmt.Errorf("frame without series name")
	}
	if len(wire.Value) == 0 {
		return sampleFrame{}, fmt.Errorf("frame without value")
	}

	frame := sampleFrame{Series: wire.Series, Time: wire.Time}

	if wire.Value[0] == '"' {
		var s string
		if err := json.Unmarshal(wire.Value, &s); err != nil {
			return sampleFrame{}, fmt.Errorf("string value: %w", err)
		}
		frame.stringValue = &s
		return frame, nil
	}

	if err := json.Unmarshal(wire.Value, &frame.numericValue); err != nil {
		return sampleFrame{}, fmt.Errorf("numeric value: %w", err)
	}
	return frame, nil
}
