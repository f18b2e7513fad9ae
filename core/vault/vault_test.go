package vault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/vaultkit/adapters/idgen"
	"github.com/artpar/vaultkit/core/action"
	"github.com/artpar/vaultkit/core/record"
	"github.com/artpar/vaultkit/core/schema"
	"github.com/artpar/vaultkit/core/table"
	"github.com/artpar/vaultkit/ports"
)

func simpleSchema(t *testing.T) *schema.Definition {
	t.Helper()
	def, err := schema.NewDefinition([]schema.FieldDef{
		{Name: "title", Field: schema.Field{Type: schema.TypeString, Required: true}},
		{Name: "score", Field: schema.Field{Type: schema.TypeNumber, Default: 0}},
	})
	if err != nil {
		t.Fatalf("NewDefinition failed: %v", err)
	}
	return def
}

func redditConfig(t *testing.T) PluginConfig {
	return PluginConfig{
		ID:          "reddit",
		DisplayName: "Reddit",
		Tables: map[string]TableConfig{
			"posts":    {Schema: simpleSchema(t)},
			"comments": {Schema: simpleSchema(t)},
		},
	}
}

func newTestVault(t *testing.T, plugins ...PluginConfig) *Vault {
	t.Helper()
	v, err := New(Options{
		Root:    t.TempDir(),
		Plugins: plugins,
		IDs:     idgen.NewSequential(1724900000000),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return v
}

func TestMirrorNameCollisionFailsBeforeAnyDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "vault")

	// "blog" + "a_b" and "blog_a" + "b" both mirror to "blog_a_b".
	_, err := New(Options{
		Root: root,
		IDs:  idgen.NewSequential(1),
		Plugins: []PluginConfig{
			{ID: "blog", Tables: map[string]TableConfig{"a_b": {Schema: simpleSchema(t)}}},
			{ID: "blog_a", Tables: map[string]TableConfig{"b": {Schema: simpleSchema(t)}}},
		},
	})
	if err == nil {
		t.Fatal("expected construction error")
	}
	var cerr *schema.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %T: %v", err, err)
	}
	if _, statErr := os.Stat(root); !os.IsNotExist(statErr) {
		t.Error("construction failure must not create the root directory")
	}
}

func TestDuplicatePluginIDFails(t *testing.T) {
	_, err := New(Options{
		Root: filepath.Join(t.TempDir(), "vault"),
		IDs:  idgen.NewSequential(1),
		Plugins: []PluginConfig{
			{ID: "blog", Tables: map[string]TableConfig{"posts": {Schema: simpleSchema(t)}}},
			{ID: "blog", Tables: map[string]TableConfig{"pages": {Schema: simpleSchema(t)}}},
		},
	})
	var cerr *schema.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError for duplicate plugin id, got %v", err)
	}
}

func TestCustomActionCollidingWithBuiltinFails(t *testing.T) {
	cfg := PluginConfig{
		ID: "reddit",
		Tables: map[string]TableConfig{
			"posts": {
				Schema: simpleSchema(t),
				Actions: map[string]action.Definition{
					"create": {Handler: func(ctx context.Context, input any, tables action.TableContext) (any, error) {
						return nil, nil
					}},
				},
			},
		},
	}
	_, err := New(Options{Root: filepath.Join(t.TempDir(), "vault"), IDs: idgen.NewSequential(1), Plugins: []PluginConfig{cfg}})
	var cerr *schema.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestInvalidPluginIDFails(t *testing.T) {
	for _, id := range []string{"", "Bad", "9lives", "has-dash"} {
		cfg := PluginConfig{ID: id, Tables: map[string]TableConfig{"posts": {Schema: simpleSchema(t)}}}
		if _, err := New(Options{Root: t.TempDir(), IDs: idgen.NewSequential(1), Plugins: []PluginConfig{cfg}}); err == nil {
			t.Errorf("plugin id %q should fail construction", id)
		}
	}
}

func TestReferenceToUnknownTableFails(t *testing.T) {
	def, err := schema.NewDefinition([]schema.FieldDef{
		{Name: "post", Field: schema.Field{Type: schema.TypeString, References: "posts"}},
	})
	if err != nil {
		t.Fatalf("NewDefinition failed: %v", err)
	}
	cfg := PluginConfig{ID: "reddit", Tables: map[string]TableConfig{"comments": {Schema: def}}}
	if _, err := New(Options{Root: t.TempDir(), IDs: idgen.NewSequential(1), Plugins: []PluginConfig{cfg}}); err == nil {
		t.Fatal("reference to undeclared table should fail construction")
	}
}

func TestStats(t *testing.T) {
	v := newTestVault(t, redditConfig(t))
	ctx := context.Background()

	posts, _ := v.Table("reddit", "posts")
	comments, _ := v.Table("reddit", "comments")
	for i := 0; i < 3; i++ {
		if _, err := posts.Create(ctx, map[string]any{"title": "p"}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := comments.Create(ctx, map[string]any{"title": "c"}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	stats, err := v.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Tables["reddit.posts"] != 3 {
		t.Errorf("reddit.posts = %d, want 3", stats.Tables["reddit.posts"])
	}
	if stats.Tables["reddit.comments"] != 2 {
		t.Errorf("reddit.comments = %d, want 2", stats.Tables["reddit.comments"])
	}
	if stats.TotalRecords != 5 {
		t.Errorf("TotalRecords = %d, want 5", stats.TotalRecords)
	}
	if stats.TotalTables != 2 || stats.TotalPlugins != 1 {
		t.Errorf("totals = %d tables, %d plugins", stats.TotalTables, stats.TotalPlugins)
	}
}

func TestPluginActionSeesOnlyOwnTables(t *testing.T) {
	other := PluginConfig{ID: "wiki", Tables: map[string]TableConfig{"pages": {Schema: simpleSchema(t)}}}
	cfg := redditConfig(t)
	cfg.Actions = map[string]action.PluginDefinition{
		"table_count": {Handler: func(ctx context.Context, input any, p action.PluginContext) (any, error) {
			if _, ok := p.Table("pages"); ok {
				return nil, errors.New("foreign table visible")
			}
			return len(p.Tables()), nil
		}},
	}
	v := newTestVault(t, cfg, other)

	out, err := v.CallPlugin(context.Background(), "reddit", "table_count", nil)
	if err != nil {
		t.Fatalf("CallPlugin failed: %v", err)
	}
	if out != 2 {
		t.Errorf("table_count = %v, want 2", out)
	}
}

func TestCallTableAction(t *testing.T) {
	cfg := redditConfig(t)
	posts := cfg.Tables["posts"]
	posts.Actions = map[string]action.Definition{
		"upvote": {
			Kind: action.Mutation,
			Handler: func(ctx context.Context, input any, tables action.TableContext) (any, error) {
				fields := input.(map[string]any)
				id := fields["id"].(string)
				rec, err := tables.Get(ctx, id)
				if err != nil || rec == nil {
					return nil, errors.New("post not found")
				}
				return tables.Update(ctx, id, map[string]any{
					"score": rec.Fields["score"].(float64) + 1,
				})
			},
		},
	}
	cfg.Tables["posts"] = posts
	v := newTestVault(t, cfg)
	ctx := context.Background()

	eng, _ := v.Table("reddit", "posts")
	created, err := eng.Create(ctx, map[string]any{"title": "hi"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := v.Call(ctx, "reddit", "posts", "upvote", map[string]any{"id": created.ID}); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	got, _ := eng.Get(ctx, created.ID)
	if got.Fields["score"] != float64(1) {
		t.Errorf("score = %v, want 1", got.Fields["score"])
	}
}

func TestQueryWithoutMirror(t *testing.T) {
	v := newTestVault(t, redditConfig(t))
	if _, err := v.Query(context.Background(), "SELECT 1"); !errors.Is(err, ErrNoMirror) {
		t.Errorf("Query without mirror = %v, want ErrNoMirror", err)
	}
	if err := v.Sync(context.Background()); !errors.Is(err, ErrNoMirror) {
		t.Errorf("Sync without mirror = %v, want ErrNoMirror", err)
	}
}

// fakeMirror records the snapshots pushed during sync.
type fakeMirror struct {
	tables map[string]ports.MirrorTable
}

func (m *fakeMirror) ReplaceTable(ctx context.Context, t ports.MirrorTable) error {
	if m.tables == nil {
		m.tables = make(map[string]ports.MirrorTable)
	}
	m.tables[t.Name] = t
	return nil
}

func (m *fakeMirror) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	return nil, nil
}

func (m *fakeMirror) Close() error { return nil }

func TestSyncPushesSnapshots(t *testing.T) {
	mirror := &fakeMirror{}
	v, err := New(Options{
		Root:    t.TempDir(),
		Plugins: []PluginConfig{redditConfig(t)},
		IDs:     idgen.NewSequential(1724900000000),
		Mirror:  mirror,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	posts, _ := v.Table("reddit", "posts")
	if _, err := posts.Create(ctx, map[string]any{"title": "hi", "content": "body"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := v.Sync(ctx); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	snap, ok := mirror.tables["reddit_posts"]
	if !ok {
		t.Fatalf("reddit_posts not synced; got %v", mirror.tables)
	}
	if len(snap.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(snap.Rows))
	}
	row := snap.Rows[0]
	if row["title"] != "hi" || row["content"] != "body" {
		t.Errorf("row = %v", row)
	}
	if row["created_at"] == nil {
		t.Error("created_at missing from mirror row")
	}
	if _, ok := mirror.tables["reddit_comments"]; !ok {
		t.Error("empty table should still sync its (empty) snapshot")
	}

	// Idempotent: a second sync leaves the same state.
	if err := v.Sync(ctx); err != nil {
		t.Fatalf("second Sync failed: %v", err)
	}
	if len(mirror.tables["reddit_posts"].Rows) != 1 {
		t.Error("second sync changed the snapshot")
	}
}

func TestSyncHooksRun(t *testing.T) {
	var before, after int
	cfg := redditConfig(t)
	posts := cfg.Tables["posts"]
	posts.Hooks = table.Hooks{
		BeforeSync: func(ctx context.Context, recs []record.Record) ([]record.Record, error) {
			before = len(recs)
			return recs, nil
		},
		AfterSync: func(ctx context.Context, recs []record.Record) ([]record.Record, error) {
			after = len(recs)
			return recs, nil
		},
	}
	cfg.Tables["posts"] = posts

	mirror := &fakeMirror{}
	v, err := New(Options{
		Root:    t.TempDir(),
		Plugins: []PluginConfig{cfg},
		IDs:     idgen.NewSequential(1724900000000),
		Mirror:  mirror,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	eng, _ := v.Table("reddit", "posts")
	if _, err := eng.Create(ctx, map[string]any{"title": "a"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := eng.Create(ctx, map[string]any{"title": "b"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := v.Sync(ctx); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if before != 2 || after != 2 {
		t.Errorf("sync hooks saw before=%d after=%d, want 2/2", before, after)
	}
}

// fakeObserver captures every observation the vault emits.
type fakeObserver struct {
	ops    int
	syncs  int
	errs   int
	counts map[string]int
}

func (o *fakeObserver) ObserveOp(plugin, table, op string, d time.Duration, err error) {
	o.ops++
}

func (o *fakeObserver) ObserveSync(d time.Duration, err error) {
	o.syncs++
	if err != nil {
		o.errs++
	}
}

func (o *fakeObserver) SetRecordCount(plugin, table string, n int) {
	if o.counts == nil {
		o.counts = make(map[string]int)
	}
	o.counts[plugin+"."+table] = n
}

func TestSyncNotifiesObserver(t *testing.T) {
	obs := &fakeObserver{}
	v, err := New(Options{
		Root:     t.TempDir(),
		Plugins:  []PluginConfig{redditConfig(t)},
		IDs:      idgen.NewSequential(1724900000000),
		Mirror:   &fakeMirror{},
		Observer: obs,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	if err := v.Sync(ctx); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if obs.syncs != 1 || obs.errs != 0 {
		t.Errorf("observer saw syncs=%d errs=%d, want 1/0", obs.syncs, obs.errs)
	}
}

func TestSyncWithoutMirrorSkipsObserver(t *testing.T) {
	obs := &fakeObserver{}
	v, err := New(Options{
		Root:     t.TempDir(),
		Plugins:  []PluginConfig{redditConfig(t)},
		IDs:      idgen.NewSequential(1724900000000),
		Observer: obs,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := v.Sync(context.Background()); !errors.Is(err, ErrNoMirror) {
		t.Fatalf("Sync without mirror = %v, want ErrNoMirror", err)
	}
	if obs.syncs != 0 {
		t.Errorf("observer saw %d syncs for a vault with no mirror, want 0", obs.syncs)
	}
}

func TestStatsPublishesRecordCounts(t *testing.T) {
	obs := &fakeObserver{}
	v, err := New(Options{
		Root:     t.TempDir(),
		Plugins:  []PluginConfig{redditConfig(t)},
		IDs:      idgen.NewSequential(1724900000000),
		Observer: obs,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	posts, _ := v.Table("reddit", "posts")
	for _, title := range []string{"a", "b", "c"} {
		if _, err := posts.Create(ctx, map[string]any{"title": title}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	if _, err := v.Stats(ctx); err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if got := obs.counts["reddit.posts"]; got != 3 {
		t.Errorf("published count for reddit.posts = %d, want 3", got)
	}
	if got := obs.counts["reddit.comments"]; got != 0 {
		t.Errorf("published count for reddit.comments = %d, want 0", got)
	}
}
