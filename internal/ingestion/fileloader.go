package ingestion

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"telemetry-lab/internal/domain"
	"telemetry-lab/internal/store"
)

// JSONLoader reads data files with the layout:
//
//	{
//	  "series": [
//	    {"name": "motor/velocity", "points": [[0.0, 1.5], [0.1, 1.7]]},
//	    {"name": "state", "kind": "string", "points": [[0.0, "IDLE"]]}
//	  ]
//	}
//
// Points must be sorted by time within each series.
type JSONLoader struct {
	logger *log.Logger
}

// NewJSONLoader creates a loader. A nil logger falls back to log.Default().
func NewJSONLoader(logger *log.Logger) *JSONLoader {
	if logger == nil {
		logger = log.Default()
	}
	return &JSONLoader{logger: logger}
}

type fileSeries struct {
	Name   string              `json:"name"`
	Kind   string              `json:"kind,omitempty"`
	Group  string              `json:"group,omitempty"`
	Points [][]json.RawMessage `json:"points"`
}

type filePayload struct {
	Series []fileSeries `json:"series"`
}

// Load parses the file into a fresh series map.
func (l *JSONLoader) Load(path string) (*store.SeriesMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}

	var payload filePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse data file %s: %w", path, err)
	}

	sm := store.NewSeriesMap()
	for _, fs := range payload.Series {
		if fs.Name == "" {
			return nil, fmt.Errorf("data file %s: series with empty name", path)
		}
		switch fs.Kind {
		case "", "numeric":
			if err := loadNumeric(sm, fs); err != nil {
				return nil, fmt.Errorf("series %q: %w", fs.Name, err)
			}
		case "string":
			if err := loadString(sm, fs); err != nil {
				return nil, fmt.Errorf("series %q: %w", fs.Name, err)
			}
		default:
			return nil, fmt.Errorf("series %q: unknown kind %q", fs.Name, fs.Kind)
		}
	}

	l.logger.Printf("[loader] %s: %d series loaded", path, len(payload.Series))
	return sm, nil
}

func loadNumeric(sm *store.SeriesMap, fs fileSeries) error {
	s, err := sm.AddNumeric(fs.Name)
	if err != nil {
		return err
	}
	if fs.Group != "" {
		s.SetGroup(fs.Group)
	}
	for i, raw := range fs.Points {
		t, err := pointTime(raw)
		if err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
		var v float64
		if err := json.Unmarshal(raw[1], &v); err != nil {
			return fmt.Errorf("point %d: value: %w", i, err)
		}
		if err := s.Append(domain.Point[float64]{Time: t, Value: v}); err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
	}
	return nil
}

func loadString(sm *store.SeriesMap, fs fileSeries) error {
	s, err := sm.AddString(fs.Name)
	if err != nil {
		return err
	}
	if fs.Group != "" {
		s.SetGroup(fs.Group)
	}
	for i, raw := range fs.Points {
		t, err := pointTime(raw)
		if err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
		var v string
		if err := json.Unmarshal(raw[1], &v); err != nil {
			return fmt.Errorf("point %d: value: %w", i, err)
		}
		if err := s.Append(domain.Point[string]{Time: t, Value: v}); err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
	}
	return nil
}

func pointTime(raw []json.RawMessage) (float64, error) {
	if len(raw) != 2 {
		return 0, fmt.Errorf("expected [time, value] pair, got %d elements", len(raw))
	}
	var t float64
	if err := json.Unmarshal(raw[0], &t); err != nil {
		return 0, fmt.Errorf("time: %w", err)
	}
	return t, nil
}
