// Package flows reads flow records from a time-windowed flow store.
package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is one flow as stored by the collector.
type Record struct {
	// ID is the store's document id. Two flows may carry identical fields,
	// so this is the only reliable identity.
	ID         string
	Timestamp  int64 // epoch millis
	SrcAddress string
	DstAddress string
	Bytes      int64
}

// Entry is a single document of a query batch. Err is set when the document
// could not be turned into a Record; Record.Timestamp is still filled in if
// that field alone was readable.
type Entry struct {
	Record Record
	Err    error
}

// Cursor selects a page of the time-ordered record stream: the records with
// a timestamp in [Since, now), oldest first, after skipping the first Skip of
// them. Skip is the number of records at Since that were already consumed.
type Cursor struct {
	Since int64
	Skip  int
}

// Source yields one page of records at a time.
type Source interface {
	Query(ctx context.Context, c Cursor) ([]Entry, error)
}

const (
	FieldTimestamp = "@timestamp"
	FieldSrcAddr   = "netflow.src_addr"
	FieldDstAddr   = "netflow.dst_addr"
	FieldBytes     = "netflow.bytes"
)

var errMissing = errors.New("missing field")

// TransportError means the query itself failed. The poll is retried later.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("flow source %s: %v", e.Op, e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedRecordError means one document had an unusable field.
type MalformedRecordError struct {
	Field string
	Err   error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed flow record field %s: %v", e.Field, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// ParseDocument converts a document's _source into a Record. Field names are
// accepted both as literal dotted keys and as nested objects.
func ParseDocument(doc map[string]any) Entry {
	var rec Record

	ts, err := parseTimestamp(lookup(doc, FieldTimestamp))
	if err != nil {
		return Entry{Err: &MalformedRecordError{Field: FieldTimestamp, Err: err}}
	}
	rec.Timestamp = ts

	if rec.SrcAddress, err = parseString(lookup(doc, FieldSrcAddr)); err != nil {
		return Entry{Record: rec, Err: &MalformedRecordError{Field: FieldSrcAddr, Err: err}}
	}
	if rec.DstAddress, err = parseString(lookup(doc, FieldDstAddr)); err != nil {
		return Entry{Record: rec, Err: &MalformedRecordError{Field: FieldDstAddr, Err: err}}
	}
	if rec.Bytes, err = parseInt(lookup(doc, FieldBytes)); err != nil {
		return Entry{Record: rec, Err: &MalformedRecordError{Field: FieldBytes, Err: err}}
	}
	if rec.Bytes <= 0 {
		return Entry{Record: rec, Err: &MalformedRecordError{Field: FieldBytes, Err: fmt.Errorf("non-positive byte count %d", rec.Bytes)}}
	}
	return Entry{Record: rec}
}

func lookup(doc map[string]any, field string) any {
	if v, ok := doc[field]; ok {
		return v
	}
	parts := strings.Split(field, ".")
	var cur any = doc
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		if cur, ok = m[p]; !ok {
			return nil
		}
	}
	return cur
}

func parseString(v any) (string, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		if v == nil {
			return "", errMissing
		}
		return "", fmt.Errorf("unexpected value %v", v)
	}
	return s, nil
}

func parseInt(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, errMissing
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected value %v", v)
	}
}

func parseTimestamp(v any) (int64, error) {
	if s, ok := v.(string); ok {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0, err
		}
		return t.UnixMilli(), nil
	}
	return parseInt(v)
}
