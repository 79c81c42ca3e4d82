// Package snapshot publishes the orchestrator's per-tick view for peer
// services: a JSON artifact validated against its own schema, plus an
// LZ4-compressed rotating history log for offline diagnostics.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// Snapshot is the serializable per-tick view. Thread totals are derived from
// the live process list, not from plans. Consumers treat the artifact as
// stale after two minutes.
type Snapshot struct {
	Timestamp       time.Time `json:"timestamp"`
	ShareThreads    int       `json:"share_threads"`
	TotalThreads    int       `json:"total_threads"`
	HackingThreads  int       `json:"hacking_threads"`
	PrepThreads     int       `json:"prep_threads"`
	CycleThreads    int       `json:"cycle_threads"`
	Saturated       bool      `json:"saturated"`
	PreppedServers  int       `json:"prepped_servers"`
	PreppingServers int       `json:"prepping_servers"`
	CyclingServers  int       `json:"cycling_servers"`
	FreeRAM         float64   `json:"free_ram"`
}

// Schema is the artifact contract shared with peer services.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "orchestrator-info",
  "type": "object",
  "required": [
    "timestamp", "share_threads", "total_threads", "hacking_threads",
    "prep_threads", "cycle_threads", "saturated",
    "prepped_servers", "prepping_servers", "cycling_servers", "free_ram"
  ],
  "properties": {
    "timestamp": {"type": "string"},
    "share_threads": {"type": "integer", "minimum": 0},
    "total_threads": {"type": "integer", "minimum": 0},
    "hacking_threads": {"type": "integer", "minimum": 0},
    "prep_threads": {"type": "integer", "minimum": 0},
    "cycle_threads": {"type": "integer", "minimum": 0},
    "saturated": {"type": "boolean"},
    "prepped_servers": {"type": "integer", "minimum": 0},
    "prepping_servers": {"type": "integer", "minimum": 0},
    "cycling_servers": {"type": "integer", "minimum": 0},
    "free_ram": {"type": "number", "minimum": 0}
  },
  "additionalProperties": false
}`

// compiledSchema caches the parsed schema; Validate compiles lazily so a
// zero Publisher still works.
var compiledSchema *gojsonschema.Schema

func schema() (*gojsonschema.Schema, error) {
	if compiledSchema != nil {
		return compiledSchema, nil
	}

	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(Schema))
	if err != nil {
		return nil, fmt.Errorf("compile snapshot schema: %w", err)
	}

	compiledSchema = s

	return s, nil
}

// Validate checks an encoded snapshot against the artifact schema.
func Validate(encoded []byte) error {
	s, err := schema()
	if err != nil {
		return err
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(encoded))
	if err != nil {
		return fmt.Errorf("validate snapshot: %w", err)
	}

	if !result.Valid() {
		return fmt.Errorf("snapshot violates schema: %v", result.Errors())
	}

	return nil
}

// Encode marshals and schema-validates a snapshot.
func Encode(s Snapshot) ([]byte, error) {
	encoded, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	if err := Validate(encoded); err != nil {
		return nil, err
	}

	return encoded, nil
}
