package snapshot

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
)

// History constants.
const (
	// DefaultHistoryCap is the record count per history file before rotation.
	DefaultHistoryCap = 7200 // two hours at one tick per second

	// recordHeaderSize prefixes each history record: compressed length then
	// uncompressed length, both uint32 little-endian.
	recordHeaderSize = 8
)

// Publisher writes the artifact and appends history records. History is
// observational only; restart recovery never reads it back.
type Publisher struct {
	// ArtifactPath is the well-known artifact location peers poll.
	ArtifactPath string

	// HistoryPath is the LZ4 history log; empty disables history.
	HistoryPath string

	// HistoryCap rotates the history file after this many records;
	// non-positive means DefaultHistoryCap.
	HistoryCap int

	records int
}

// Publish encodes, validates, and writes the snapshot artifact atomically,
// then appends a compressed history record. The artifact is written first, so
// a history failure is returned as an error with the artifact already in place.
func (p *Publisher) Publish(s Snapshot) error {
	encoded, err := Encode(s)
	if err != nil {
		return err
	}

	if err := writeAtomic(p.ArtifactPath, encoded); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	if p.HistoryPath != "" {
		if err := p.appendHistory(encoded); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
	}

	return nil
}

// writeAtomic writes via a temp file and rename so peers never observe a
// torn artifact.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return err
	}

	_, writeErr := tmp.Write(data)

	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmp.Name())

		if writeErr != nil {
			return writeErr
		}

		return closeErr
	}

	return os.Rename(tmp.Name(), path)
}

// appendHistory appends one length-prefixed LZ4 block and rotates when the
// record cap is reached.
func (p *Publisher) appendHistory(encoded []byte) error {
	limit := p.HistoryCap
	if limit <= 0 {
		limit = DefaultHistoryCap
	}

	if p.records >= limit {
		if err := p.rotate(); err != nil {
			return err
		}
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(encoded)))

	written, err := lz4.CompressBlock(encoded, compressed, nil)
	if err != nil {
		return err
	}

	record := compressed[:written]
	if written == 0 {
		// Incompressible input is stored raw; readers detect it by the
		// compressed length matching the raw length.
		record = encoded
	}

	header := make([]byte, recordHeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(record)))
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(encoded)))

	f, err := os.OpenFile(p.HistoryPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(header); err != nil {
		return err
	}

	if _, err := f.Write(record); err != nil {
		return err
	}

	p.records++

	return nil
}

// rotate moves the current history aside, keeping one previous generation.
func (p *Publisher) rotate() error {
	prev := p.HistoryPath + ".1"

	if err := os.Rename(p.HistoryPath, prev); err != nil && !os.IsNotExist(err) {
		return err
	}

	p.records = 0

	return nil
}

// ReadHistory decodes every record of a history file, oldest first. Used by
// diagnostics tooling and tests.
func ReadHistory(path string) ([]Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var out []Snapshot

	for len(data) >= recordHeaderSize {
		compressedLen := binary.LittleEndian.Uint32(data[0:4])
		rawLen := binary.LittleEndian.Uint32(data[4:8])
		data = data[recordHeaderSize:]

		if int(compressedLen) > len(data) {
			return nil, errors.New("truncated history record")
		}

		record := data[:compressedLen]
		data = data[compressedLen:]

		encoded := record
		if compressedLen != rawLen {
			decompressed := make([]byte, rawLen)
			if _, err := lz4.UncompressBlock(record, decompressed); err != nil {
				return nil, fmt.Errorf("decompress history record: %w", err)
			}

			encoded = decompressed
		}

		var s Snapshot
		if err := json.Unmarshal(encoded, &s); err != nil {
			return nil, fmt.Errorf("decode history record: %w", err)
		}

		out = append(out, s)
	}

	return out, nil
}
