// Package table implements CRUD and query operations over one collection of
// record files. Each engine exclusively owns one directory; one record is
// one file. Operations on the same id are not serialized: concurrent
// updates race at the file write and the last writer wins.
package table

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/vaultkit/core/record"
	"github.com/artpar/vaultkit/core/schema"
	"github.com/artpar/vaultkit/ports"
)

// FileExt is the extension of every record file.
const FileExt = ".md"

// Config assembles an engine's collaborators.
type Config struct {
	// Plugin is the owning plugin id.
	Plugin string

	// Name is the table name.
	Name string

	// Dir is the directory exclusively owned by this table.
	Dir string

	// Schema validates and normalizes every record.
	Schema *schema.Definition

	Hooks    Hooks
	IDs      ports.IDGenerator
	Logger   zerolog.Logger
	Observer Observer
}

// Engine provides CRUD and query operations over one table directory.
type Engine struct {
	plugin string
	name   string
	dir    string
	def    *schema.Definition
	hooks  Hooks
	ids    ports.IDGenerator
	log    zerolog.Logger
	obs    Observer
}

// New creates a table engine and its directory.
func New(cfg Config) (*Engine, error) {
	if !schema.ValidName(cfg.Plugin) {
		return nil, schema.Configf("invalid plugin id %q", cfg.Plugin)
	}
	if !schema.ValidName(cfg.Name) {
		return nil, schema.Configf("invalid table name %q", cfg.Name)
	}
	if cfg.Schema == nil {
		return nil, schema.Configf("table %s.%s: schema is required", cfg.Plugin, cfg.Name)
	}
	if cfg.IDs == nil {
		return nil, schema.Configf("table %s.%s: id generator is required", cfg.Plugin, cfg.Name)
	}
	if cfg.Dir == "" {
		return nil, schema.Configf("table %s.%s: directory is required", cfg.Plugin, cfg.Name)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create table directory: %w", err)
	}
	return &Engine{
		plugin: cfg.Plugin,
		name:   cfg.Name,
		dir:    cfg.Dir,
		def:    cfg.Schema,
		hooks:  cfg.Hooks,
		ids:    cfg.IDs,
		log:    cfg.Logger.With().Str("plugin", cfg.Plugin).Str("table", cfg.Name).Logger(),
		obs:    cfg.Observer,
	}, nil
}

// Plugin returns the owning plugin id.
func (e *Engine) Plugin() string { return e.plugin }

// Name returns the table name.
func (e *Engine) Name() string { return e.name }

// Dir returns the directory owned by this table.
func (e *Engine) Dir() string { return e.dir }

// Schema returns the table's field definition.
func (e *Engine) Schema() *schema.Definition { return e.def }

// Hooks returns the table's hook set.
func (e *Engine) Hooks() Hooks { return e.hooks }

// MirrorName returns the flat relational-mirror name, {plugin}_{table}.
func (e *Engine) MirrorName() string { return e.plugin + "_" + e.name }

// Get reads one record by id. Absence is not an error: a missing id
// returns (nil, nil).
func (e *Engine) Get(ctx context.Context, id string) (rec *record.Record, err error) {
	defer e.observe("get", time.Now(), &err)

	rec, err = e.load(id)
	if err != nil || rec == nil {
		return nil, err
	}
	return runRecordHook(ctx, e.hooks.AfterRead, rec)
}

// List reads the full directory and applies, in order: equality filtering,
// single-key sort, offset, then limit.
func (e *Engine) List(ctx context.Context, opts ListOptions) (recs []record.Record, err error) {
	defer e.observe("list", time.Now(), &err)

	all, err := e.readAll(ctx, true)
	if err != nil {
		return nil, err
	}

	recs = all[:0]
	for i := range all {
		if e.matches(&all[i], opts.Where) {
			recs = append(recs, all[i])
		}
	}

	if opts.OrderBy != "" {
		sortRecords(recs, opts.OrderBy, opts.Desc)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(recs) {
			return []record.Record{}, nil
		}
		recs = recs[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(recs) {
		recs = recs[:opts.Limit]
	}
	return recs, nil
}

// Create validates fields against the schema, mints a new id, and writes
// exactly one new file. The reserved key "content" sets the record body; the
// reserved key "id" is ignored, ids are always minted.
func (e *Engine) Create(ctx context.Context, fields map[string]any) (rec *record.Record, err error) {
	defer e.observe("create", time.Now(), &err)

	body, fields := splitContent(fields)
	rec = &record.Record{
		ID:      e.ids.NewID(e.plugin, e.name),
		Content: body,
		Fields:  fields,
	}

	rec, err = runRecordHook(ctx, e.hooks.BeforeWrite, rec)
	if err != nil {
		return nil, err
	}
	normalized, err := e.def.Normalize(rec.Fields)
	if err != nil {
		return nil, err
	}
	rec.Fields = normalized

	if err := e.checkUnique(ctx, rec); err != nil {
		return nil, err
	}

	data, err := record.Encode(rec, e.def)
	if err != nil {
		return nil, err
	}
	// O_EXCL: a new record never overwrites an existing id.
	f, err := os.OpenFile(e.path(rec.ID), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("write record %s: %w", rec.ID, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, fmt.Errorf("write record %s: %w", rec.ID, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("write record %s: %w", rec.ID, err)
	}

	e.log.Debug().Str("id", rec.ID).Msg("record created")
	return runRecordHook(ctx, e.hooks.AfterWrite, rec)
}

// Update merges partial fields onto the existing record, re-validates the
// merged result, and rewrites the file in place. The rewrite is not atomic:
// a crash mid-write can corrupt the record. A nil partial value clears the
// field; the reserved key "content" replaces the body.
func (e *Engine) Update(ctx context.Context, id string, partial map[string]any) (rec *record.Record, err error) {
	defer e.observe("update", time.Now(), &err)

	existing, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &NotFoundError{Plugin: e.plugin, Table: e.name, ID: id}
	}

	rec = existing.Clone()
	for name, value := range partial {
		if name == schema.FieldID {
			// Ids are immutable; a partial may echo the id but never change it.
			continue
		}
		if name == schema.FieldContent {
			s, ok := value.(string)
			if !ok {
				return nil, schema.NewValidationError([]schema.Issue{
					{Path: schema.FieldContent, Message: "content must be a string"},
				})
			}
			rec.Content = s
			continue
		}
		if value == nil {
			delete(rec.Fields, name)
			continue
		}
		rec.Fields[name] = value
	}

	rec, err = runRecordHook(ctx, e.hooks.BeforeWrite, rec)
	if err != nil {
		return nil, err
	}
	normalized, err := e.def.Normalize(rec.Fields)
	if err != nil {
		return nil, err
	}
	rec.Fields = normalized

	if err := e.checkUnique(ctx, rec); err != nil {
		return nil, err
	}

	data, err := record.Encode(rec, e.def)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(e.path(rec.ID), data, 0o644); err != nil {
		return nil, fmt.Errorf("rewrite record %s: %w", rec.ID, err)
	}

	e.log.Debug().Str("id", rec.ID).Msg("record updated")
	return runRecordHook(ctx, e.hooks.AfterWrite, rec)
}

// Delete removes a record file. It returns true if a file existed and was
// removed, false if absent, and is idempotent.
func (e *Engine) Delete(ctx context.Context, id string) (removed bool, err error) {
	defer e.observe("delete", time.Now(), &err)

	if !validID(id) {
		return false, nil
	}
	if err := os.Remove(e.path(id)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete record %s: %w", id, err)
	}
	e.log.Debug().Str("id", id).Msg("record deleted")
	return true, nil
}

// Count returns the number of records matching the filter.
func (e *Engine) Count(ctx context.Context, where map[string]any) (n int, err error) {
	defer e.observe("count", time.Now(), &err)

	all, err := e.readAll(ctx, true)
	if err != nil {
		return 0, err
	}
	for i := range all {
		if e.matches(&all[i], where) {
			n++
		}
	}
	return n, nil
}

// Exists reports whether a record with the given id exists.
func (e *Engine) Exists(ctx context.Context, id string) (ok bool, err error) {
	defer e.observe("exists", time.Now(), &err)

	rec, err := e.load(id)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// SyncBatch lists every record and applies the BeforeSync hook, producing
// the batch a mirror sync should persist.
func (e *Engine) SyncBatch(ctx context.Context) ([]record.Record, error) {
	recs, err := e.readAll(ctx, false)
	if err != nil {
		return nil, err
	}
	return runBatchHook(ctx, e.hooks.BeforeSync, recs)
}

// FinishSync applies the AfterSync hook to a synced batch.
func (e *Engine) FinishSync(ctx context.Context, recs []record.Record) error {
	_, err := runBatchHook(ctx, e.hooks.AfterSync, recs)
	return err
}

func (e *Engine) path(id string) string {
	return filepath.Join(e.dir, id+FileExt)
}

func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, "/\\") && id != "." && id != ".."
}

// load decodes one record file without running read hooks.
// A missing file returns (nil, nil).
func (e *Engine) load(id string) (*record.Record, error) {
	if !validID(id) {
		return nil, nil
	}
	data, err := os.ReadFile(e.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read record %s: %w", id, err)
	}
	rec, err := record.Decode(data, e.def)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// readAll decodes every record in the directory in file-name order.
func (e *Engine) readAll(ctx context.Context, withHooks bool) ([]record.Record, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return nil, fmt.Errorf("read table directory %s: %w", e.dir, err)
	}

	recs := make([]record.Record, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), FileExt) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(e.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read record file %s: %w", entry.Name(), err)
		}
		rec, err := record.Decode(data, e.def)
		if err != nil {
			return nil, fmt.Errorf("file %s: %w", entry.Name(), err)
		}
		if withHooks {
			rec, err = runRecordHook(ctx, e.hooks.AfterRead, rec)
			if err != nil {
				return nil, err
			}
		}
		recs = append(recs, *rec)
	}
	return recs, nil
}

// checkUnique scans the table for unique-field collisions with rec.
func (e *Engine) checkUnique(ctx context.Context, rec *record.Record) error {
	var uniqueFields []string
	for _, fd := range e.def.Fields() {
		if fd.Field.Unique {
			if _, present := rec.Fields[fd.Name]; present {
				uniqueFields = append(uniqueFields, fd.Name)
			}
		}
	}
	if len(uniqueFields) == 0 {
		return nil
	}

	others, err := e.readAll(ctx, false)
	if err != nil {
		return err
	}
	verr := &schema.ValidationError{}
	for _, name := range uniqueFields {
		for i := range others {
			if others[i].ID == rec.ID {
				continue
			}
			if valuesEqual(others[i].Fields[name], rec.Fields[name]) {
				verr.Add(name, "value must be unique")
				break
			}
		}
	}
	if len(verr.Issues) > 0 {
		return verr
	}
	return nil
}

func (e *Engine) matches(rec *record.Record, where map[string]any) bool {
	for key, want := range where {
		coerced, err := e.def.Coerce(key, want)
		if err != nil {
			// A filter value of the wrong type can never match.
			return false
		}
		got, ok := fieldValue(rec, key)
		if !ok || !valuesEqual(got, coerced) {
			return false
		}
	}
	return true
}

func fieldValue(rec *record.Record, key string) (any, bool) {
	switch key {
	case schema.FieldID:
		return rec.ID, true
	case schema.FieldContent:
		return rec.Content, true
	default:
		v, ok := rec.Fields[key]
		return v, ok
	}
}

func sortRecords(recs []record.Record, orderBy string, desc bool) {
	sort.SliceStable(recs, func(i, j int) bool {
		va, okA := fieldValue(&recs[i], orderBy)
		vb, okB := fieldValue(&recs[j], orderBy)
		// Missing values sort last in both directions.
		if !okA {
			return false
		}
		if !okB {
			return true
		}
		cmp := compareValues(va, vb)
		if desc {
			cmp = -cmp
		}
		return cmp < 0
	})
}

func (e *Engine) observe(op string, start time.Time, errp *error) {
	if e.obs == nil {
		return
	}
	e.obs.ObserveOp(e.plugin, e.name, op, time.Since(start), *errp)
}
