package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Timestamp:       time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		ShareThreads:    40,
		TotalThreads:    540,
		HackingThreads:  95,
		PrepThreads:     100,
		CycleThreads:    400,
		Saturated:       true,
		PreppedServers:  3,
		PreppingServers: 2,
		CyclingServers:  4,
		FreeRAM:         128.5,
	}
}

func TestEncode_ValidSnapshot(t *testing.T) {
	t.Parallel()

	encoded, err := Encode(sampleSnapshot())
	require.NoError(t, err)

	var decoded Snapshot

	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, sampleSnapshot(), decoded)
}

func TestValidate_RejectsNegativeCounts(t *testing.T) {
	t.Parallel()

	err := Validate([]byte(`{
		"timestamp": "2024-06-01T12:00:00Z",
		"share_threads": -1,
		"total_threads": 0, "hacking_threads": 0, "prep_threads": 0,
		"cycle_threads": 0, "saturated": false,
		"prepped_servers": 0, "prepping_servers": 0, "cycling_servers": 0,
		"free_ram": 0
	}`))
	assert.Error(t, err)
}

func TestValidate_RejectsMissingFields(t *testing.T) {
	t.Parallel()

	err := Validate([]byte(`{"timestamp": "2024-06-01T12:00:00Z"}`))
	assert.Error(t, err)
}

func TestValidate_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	encoded, err := Encode(sampleSnapshot())
	require.NoError(t, err)

	var loose map[string]any

	require.NoError(t, json.Unmarshal(encoded, &loose))
	loose["surprise"] = 1

	relaxed, err := json.Marshal(loose)
	require.NoError(t, err)
	assert.Error(t, Validate(relaxed))
}

func TestPublisher_WritesArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := &Publisher{ArtifactPath: filepath.Join(dir, "data", "orchestrator-info.json")}

	require.NoError(t, p.Publish(sampleSnapshot()))

	encoded, err := os.ReadFile(p.ArtifactPath)
	require.NoError(t, err)
	require.NoError(t, Validate(encoded))
}

func TestPublisher_HistoryRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := &Publisher{
		ArtifactPath: filepath.Join(dir, "info.json"),
		HistoryPath:  filepath.Join(dir, "history.lz4"),
	}

	first := sampleSnapshot()
	second := sampleSnapshot()
	second.TotalThreads = 999
	second.Timestamp = first.Timestamp.Add(time.Second)

	require.NoError(t, p.Publish(first))
	require.NoError(t, p.Publish(second))

	records, err := ReadHistory(p.HistoryPath)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first, records[0])
	assert.Equal(t, 999, records[1].TotalThreads)
}

func TestPublisher_HistoryRotation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := &Publisher{
		ArtifactPath: filepath.Join(dir, "info.json"),
		HistoryPath:  filepath.Join(dir, "history.lz4"),
		HistoryCap:   2,
	}

	s := sampleSnapshot()
	for i := range 3 {
		s.TotalThreads = i
		require.NoError(t, p.Publish(s))
	}

	current, err := ReadHistory(p.HistoryPath)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, 2, current[0].TotalThreads)

	previous, err := ReadHistory(p.HistoryPath + ".1")
	require.NoError(t, err)
	assert.Len(t, previous, 2)
}
