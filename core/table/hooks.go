package table

import (
	"context"
	"fmt"

	"github.com/artpar/vaultkit/core/record"
)

// RecordHook transforms a single record on the read or write path.
// Returning nil keeps the record unchanged. A hook error aborts the
// enclosing operation before any write lands.
type RecordHook func(ctx context.Context, rec *record.Record) (*record.Record, error)

// BatchHook transforms a batch of records around a sync.
type BatchHook func(ctx context.Context, recs []record.Record) ([]record.Record, error)

// Hooks are optional transforms spliced into the engine's read/write paths.
// Hooks never change a record's id; the engine rejects any that try.
type Hooks struct {
	// BeforeWrite runs before validation and persistence on create/update.
	BeforeWrite RecordHook

	// AfterWrite runs after the file is written; its result is returned
	// to the caller but not re-persisted.
	AfterWrite RecordHook

	// BeforeRead is reserved for future use; the read path returns
	// decoded records transformed only by AfterRead.
	BeforeRead RecordHook

	// AfterRead runs on every record returned by Get and List.
	AfterRead RecordHook

	// BeforeSync and AfterSync run around a table's batch during a
	// mirror sync.
	BeforeSync BatchHook
	AfterSync  BatchHook
}

func runRecordHook(ctx context.Context, hook RecordHook, rec *record.Record) (*record.Record, error) {
	if hook == nil {
		return rec, nil
	}
	out, err := hook(ctx, rec)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return rec, nil
	}
	if out.ID != rec.ID {
		return nil, fmt.Errorf("hook changed record id from %q to %q", rec.ID, out.ID)
	}
	return out, nil
}

func runBatchHook(ctx context.Context, hook BatchHook, recs []record.Record) ([]record.Record, error) {
	if hook == nil {
		return recs, nil
	}
	out, err := hook(ctx, recs)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return recs, nil
	}
	return out, nil
}
