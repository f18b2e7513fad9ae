// Package record defines the persisted record type and its file codec.
// A record is one file on disk: a YAML front-matter header of typed fields
// plus an optional free-form text body.
package record

import (
	"strconv"
	"strings"
	"time"
)

// Record is one persisted entity.
type Record struct {
	// ID is globally unique within its table and immutable after creation.
	// It encodes the owning table: {plugin}_{table}_{unixMillis}_{suffix}.
	ID string

	// Content is the free-form body text.
	Content string

	// Fields holds the typed header values. Fields not declared in the
	// table schema are preserved here untouched.
	Fields map[string]any
}

// Clone returns a shallow copy with its own Fields map.
func (r *Record) Clone() *Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return &Record{ID: r.ID, Content: r.Content, Fields: fields}
}

// CreatedAt extracts the creation timestamp embedded in a record id.
// Returns false if the id does not carry a parsable timestamp segment.
func CreatedAt(id string) (time.Time, bool) {
	parts := strings.Split(id, "_")
	if len(parts) < 4 {
		return time.Time{}, false
	}
	millis, err := strconv.ParseInt(parts[len(parts)-2], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(millis).UTC(), true
}
