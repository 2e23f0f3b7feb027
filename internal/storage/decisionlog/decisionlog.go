// Package decisionlog keeps an append-only archive of operator
// decisions in an embedded PebbleDB. Keys are ordered by decision time,
// so iteration replays decisions chronologically.
package decisionlog

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/pierrec/lz4"

	"github.com/securebank/bankd/internal/bank"
)

const (
	recordHeaderSize   = 4 + 1 // payload length + compressed flag
	minCompressionSize = 128   // don't compress very small records
)

// Entry is one archived decision.
type Entry struct {
	Request   bank.ApprovalRequest
	DecidedBy string
}

// Log is the decision archive.
type Log struct {
	db *pebble.DB
}

// Open opens (creating if missing) the archive at dir.
func Open(dir string) (*Log, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("decisionlog: open %s: %w", dir, err)
	}
	return &Log{db: db}, nil
}

// Close flushes and closes the archive.
func (l *Log) Close() error {
	if err := l.db.Flush(); err != nil {
		l.db.Close()
		return fmt.Errorf("decisionlog: flush: %w", err)
	}
	return l.db.Close()
}

// RecordDecision archives one decided request. Satisfies the approval
// broker's decision sink.
func (l *Log) RecordDecision(req bank.ApprovalRequest, outcome, decidedBy string) error {
	archived := req
	archived.Status = outcome

	key := fmt.Sprintf("%020d/%s", time.Now().UnixNano(), req.RequestID)
	value := encodeRecord(bank.MarshalApprovalRequest(archived) + "|" + decidedBy)

	if err := l.db.Set([]byte(key), value, pebble.Sync); err != nil {
		return fmt.Errorf("decisionlog: record %s: %w", req.RequestID, err)
	}
	return nil
}

// Count returns the number of archived decisions.
func (l *Log) Count() (int, error) {
	iter, err := l.db.NewIter(nil)
	if err != nil {
		return 0, fmt.Errorf("decisionlog: iterate: %w", err)
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, iter.Error()
}

// Entries returns all archived decisions in chronological order.
// Corrupt records are skipped.
func (l *Log) Entries() ([]Entry, error) {
	iter, err := l.db.NewIter(nil)
	if err != nil {
		return nil, fmt.Errorf("decisionlog: iterate: %w", err)
	}
	defer iter.Close()

	var out []Entry
	for iter.First(); iter.Valid(); iter.Next() {
		record, err := decodeRecord(iter.Value())
		if err != nil {
			continue
		}
		entry, err := parseRecord(record)
		if err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out, iter.Error()
}

// encodeRecord lays a record out as payload-length, payload, compressed
// flag. Compression is only kept when it actually saves space.
func encodeRecord(record string) []byte {
	raw := []byte(record)
	payload := raw
	compressed := byte(0)

	if len(raw) > minCompressionSize {
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		if n, err := lz4.CompressBlock(raw, dst, nil); err == nil && n > 0 && n < len(raw)*9/10 {
			payload = dst[:n]
			compressed = 1
		}
	}

	buf := make([]byte, recordHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(payload)))
	copy(buf[4:], payload)
	buf[4+len(payload)] = compressed
	return buf
}

func decodeRecord(value []byte) (string, error) {
	if len(value) < recordHeaderSize {
		return "", fmt.Errorf("decisionlog: record too short: %d bytes", len(value))
	}
	payloadLen := int(binary.LittleEndian.Uint32(value[0:4]))
	if 4+payloadLen+1 > len(value) {
		return "", fmt.Errorf("decisionlog: invalid payload length %d", payloadLen)
	}
	payload := value[4 : 4+payloadLen]
	if value[4+payloadLen] == 0 {
		return string(payload), nil
	}

	for size := len(payload) * 4; size <= len(payload)*64; size *= 2 {
		dst := make([]byte, size)
		if n, err := lz4.UncompressBlock(payload, dst); err == nil {
			return string(dst[:n]), nil
		}
	}
	return "", fmt.Errorf("decisionlog: lz4 decompression failed")
}

// parseRecord splits the operator id off the back and parses the rest
// as an approval request line.
func parseRecord(record string) (Entry, error) {
	cut := strings.LastIndex(record, "|")
	if cut < 0 {
		return Entry{}, fmt.Errorf("decisionlog: malformed record")
	}
	req, err := bank.UnmarshalApprovalRequest(record[:cut])
	if err != nil {
		return Entry{}, err
	}
	return Entry{Request: req, DecidedBy: record[cut+1:]}, nil
}
