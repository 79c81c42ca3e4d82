// Package incident keeps a bounded append-only ring of diagnostic records.
// The ring is pure observation: the scheduler never reads it back to make
// decisions.
package incident

import (
	"log/slog"
	"time"
)

// Kind classifies a diagnostic record.
type Kind string

// Incident kinds.
const (
	KindOverHack        Kind = "OVER_HACK"
	KindPartialDispatch Kind = "PARTIAL_DISPATCH"
	KindOverlap         Kind = "OVERLAP"
	KindLargeGrow       Kind = "LARGE_GROW"
	KindNoRunner        Kind = "NO_RUNNER"
)

// DefaultCap is the ring capacity.
const DefaultCap = 20

// Record is one diagnostic observation.
type Record struct {
	Kind    Kind
	Target  string
	At      time.Time // wall clock; log timestamp only
	Details map[string]any
}

// LogValue renders the record as a structured slog value.
func (r Record) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(r.Details)+2)
	attrs = append(attrs,
		slog.String("kind", string(r.Kind)),
		slog.String("target", r.Target),
	)

	for k, v := range r.Details {
		attrs = append(attrs, slog.Any(k, v))
	}

	return slog.GroupValue(attrs...)
}

// Log is a fixed-capacity ring of records. Oldest records are evicted first.
type Log struct {
	capacity int
	records  []Record
	start    int
	total    int
}

// NewLog returns a ring with the given capacity; non-positive means DefaultCap.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCap
	}

	return &Log{capacity: capacity}
}

// Add appends a record, evicting the oldest when full.
func (l *Log) Add(r Record) {
	l.total++

	if len(l.records) < l.capacity {
		l.records = append(l.records, r)

		return
	}

	l.records[l.start] = r
	l.start = (l.start + 1) % l.capacity
}

// Records returns retained records oldest first.
func (l *Log) Records() []Record {
	out := make([]Record, 0, len(l.records))
	for i := range l.records {
		out = append(out, l.records[(l.start+i)%len(l.records)])
	}

	return out
}

// Total is the number of records ever added, including evicted ones.
func (l *Log) Total() int {
	return l.total
}

// CountByKind tallies retained records per kind.
func (l *Log) CountByKind() map[Kind]int {
	counts := map[Kind]int{}
	for _, r := range l.records {
		counts[r.Kind]++
	}

	return counts
}
