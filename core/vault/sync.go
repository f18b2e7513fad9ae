package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/artpar/vaultkit/core/record"
	"github.com/artpar/vaultkit/core/schema"
	"github.com/artpar/vaultkit/core/table"
	"github.com/artpar/vaultkit/ports"
)

// Sync rebuilds the relational mirror from the file tree. It is idempotent:
// after completion the mirror reflects exactly the current on-disk state.
// Each table's BeforeSync hook runs before its snapshot is pushed and
// AfterSync after the mirror accepted it.
func (v *Vault) Sync(ctx context.Context) (err error) {
	if v.mirror == nil {
		return ErrNoMirror
	}

	start := time.Now()
	if so, ok := v.observer.(table.SyncObserver); ok {
		defer func() { so.ObserveSync(time.Since(start), err) }()
	}

	total := 0
	for _, eng := range v.engines() {
		recs, err := eng.SyncBatch(ctx)
		if err != nil {
			return fmt.Errorf("sync %s: %w", eng.MirrorName(), err)
		}
		snapshot, err := mirrorSnapshot(eng, recs)
		if err != nil {
			return fmt.Errorf("sync %s: %w", eng.MirrorName(), err)
		}
		if err := v.mirror.ReplaceTable(ctx, snapshot); err != nil {
			return fmt.Errorf("sync %s: %w", eng.MirrorName(), err)
		}
		if err := eng.FinishSync(ctx, recs); err != nil {
			return fmt.Errorf("sync %s: %w", eng.MirrorName(), err)
		}
		total += len(recs)
	}

	v.log.Info().
		Int("records", total).
		Dur("elapsed", time.Since(start)).
		Msg("mirror synced")
	return nil
}

// mirrorSnapshot converts a table batch into relational form. Object and
// array values are pre-encoded as JSON; dates become RFC 3339 strings.
func mirrorSnapshot(eng *table.Engine, recs []record.Record) (ports.MirrorTable, error) {
	columns := []ports.MirrorColumn{
		{Name: schema.FieldID, SQLType: "TEXT", PrimaryKey: true},
		{Name: schema.FieldContent, SQLType: "TEXT"},
		{Name: "created_at", SQLType: "TEXT"},
	}
	for _, fd := range eng.Schema().Fields() {
		columns = append(columns, ports.MirrorColumn{Name: fd.Name, SQLType: fd.Field.SQLType()})
	}

	snapshot := ports.MirrorTable{
		Name:    eng.MirrorName(),
		Columns: columns,
		Rows:    make([]map[string]any, 0, len(recs)),
	}
	for i := range recs {
		rec := &recs[i]
		row := map[string]any{
			schema.FieldID:      rec.ID,
			schema.FieldContent: rec.Content,
		}
		if created, ok := record.CreatedAt(rec.ID); ok {
			row["created_at"] = created.Format(time.RFC3339)
		}
		for _, fd := range eng.Schema().Fields() {
			value, present := rec.Fields[fd.Name]
			if !present {
				continue
			}
			converted, err := mirrorValue(fd.Field.Type, value)
			if err != nil {
				return ports.MirrorTable{}, fmt.Errorf("record %s field %s: %w", rec.ID, fd.Name, err)
			}
			row[fd.Name] = converted
		}
		snapshot.Rows = append(snapshot.Rows, row)
	}
	return snapshot, nil
}

func mirrorValue(t schema.FieldType, value any) (any, error) {
	switch t {
	case schema.TypeDate:
		if ts, ok := value.(time.Time); ok {
			return ts.Format(time.RFC3339), nil
		}
		return value, nil
	case schema.TypeBool:
		if b, ok := value.(bool); ok {
			if b {
				return 1, nil
			}
			return 0, nil
		}
		return value, nil
	case schema.TypeObject, schema.TypeStrings, schema.TypeNumbers, schema.TypeBools:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		return value, nil
	}
}
