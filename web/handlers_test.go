package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/artpar/vaultkit/adapters/idgen"
	"github.com/artpar/vaultkit/core/action"
	"github.com/artpar/vaultkit/core/schema"
	"github.com/artpar/vaultkit/core/vault"
	"github.com/artpar/vaultkit/web"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	def, err := schema.NewDefinition([]schema.FieldDef{
		{Name: "title", Field: schema.Field{Type: schema.TypeString, Required: true}},
		{Name: "score", Field: schema.Field{Type: schema.TypeNumber, Default: 0}},
	})
	if err != nil {
		t.Fatalf("NewDefinition failed: %v", err)
	}

	v, err := vault.New(vault.Options{
		Root: t.TempDir(),
		IDs:  idgen.NewSequential(1724900000000),
		Plugins: []vault.PluginConfig{{
			ID: "reddit",
			Tables: map[string]vault.TableConfig{
				"posts": {
					Schema: def,
					Actions: map[string]action.Definition{
						"top": {Kind: action.Query, Handler: func(ctx context.Context, input any, tables action.TableContext) (any, error) {
							n, err := tables.Count(ctx, nil)
							if err != nil {
								return nil, err
							}
							return map[string]any{"total": n}, nil
						}},
					},
				},
			},
		}},
	})
	if err != nil {
		t.Fatalf("vault.New failed: %v", err)
	}

	h := web.NewHandler(web.Deps{Vault: v, Logger: zerolog.Nop()})
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestRecordLifecycle(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/v1/reddit/posts"

	resp, created := doJSON(t, http.MethodPost, base, map[string]any{
		"title":   "hello",
		"content": "body text",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("create response has no id: %v", created)
	}
	if created["score"] != float64(0) {
		t.Errorf("default not applied: %v", created["score"])
	}

	resp, got := doJSON(t, http.MethodGet, base+"/"+id, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	if got["title"] != "hello" || got["content"] != "body text" {
		t.Errorf("got = %v", got)
	}

	resp, updated := doJSON(t, http.MethodPatch, base+"/"+id, map[string]any{"score": 10})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d", resp.StatusCode)
	}
	if updated["score"] != float64(10) || updated["title"] != "hello" {
		t.Errorf("updated = %v", updated)
	}

	resp, deleted := doJSON(t, http.MethodDelete, base+"/"+id, nil)
	if resp.StatusCode != http.StatusOK || deleted["deleted"] != true {
		t.Fatalf("delete status = %d body = %v", resp.StatusCode, deleted)
	}

	resp, _ = doJSON(t, http.MethodGet, base+"/"+id, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}

	// Deleting again is a no-op, not an error.
	resp, deleted = doJSON(t, http.MethodDelete, base+"/"+id, nil)
	if resp.StatusCode != http.StatusOK || deleted["deleted"] != false {
		t.Errorf("second delete status = %d body = %v", resp.StatusCode, deleted)
	}
}

func TestValidationFailureReturns422(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/reddit/posts", map[string]any{
		"score": "not a number",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	issues, _ := body["issues"].([]any)
	if len(issues) != 2 {
		t.Errorf("issues = %v, want missing title plus bad score", body["issues"])
	}
}

func TestUpdateMissingRecordReturns404(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPatch, srv.URL+"/v1/reddit/posts/reddit_posts_1_none", map[string]any{"score": 1})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestUnknownTableReturns404(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/v1/reddit/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListFilterSortPaginate(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/v1/reddit/posts"

	for i, score := range []int{5, 1, 9, 5} {
		doJSON(t, http.MethodPost, base, map[string]any{"title": strings.Repeat("x", i+1), "score": score})
	}

	resp, body := doJSON(t, http.MethodGet, base+"?where.score=5", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	if body["count"] != float64(2) {
		t.Errorf("filtered count = %v, want 2", body["count"])
	}

	_, body = doJSON(t, http.MethodGet, base+"?order_by=score&desc=true&limit=2", nil)
	records, _ := body["records"].([]any)
	if len(records) != 2 {
		t.Fatalf("limited records = %d, want 2", len(records))
	}
	first := records[0].(map[string]any)
	if first["score"] != float64(9) {
		t.Errorf("first score = %v, want 9 (descending)", first["score"])
	}
}

func TestTableAction(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/v1/reddit/posts"

	doJSON(t, http.MethodPost, base, map[string]any{"title": "a"})
	doJSON(t, http.MethodPost, base, map[string]any{"title": "b"})

	resp, body := doJSON(t, http.MethodPost, base+"/actions/top", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("action status = %d body = %v", resp.StatusCode, body)
	}
	result, _ := body["result"].(map[string]any)
	if result["total"] != float64(2) {
		t.Errorf("result = %v, want total 2", body["result"])
	}
}

func TestStatsAndExportEndpoints(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/v1/reddit/posts", map[string]any{"title": "a"})

	resp, stats := doJSON(t, http.MethodGet, srv.URL+"/v1/stats", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status = %d", resp.StatusCode)
	}
	if stats["total_records"] != float64(1) {
		t.Errorf("stats = %v", stats)
	}

	res, err := http.Get(srv.URL + "/v1/export?format=markdown")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("export status = %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("export content type = %q", ct)
	}

	res, err = http.Get(srv.URL + "/v1/export?format=xml")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("bad format status = %d, want 400", res.StatusCode)
	}
}

func TestSyncWithoutMirrorReturns409(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/sync", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("sync status = %d, want 409", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/query", map[string]any{"query": "SELECT 1"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("query status = %d, want 409", resp.StatusCode)
	}
}

func TestListPlugins(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/v1/plugins", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("plugins status = %d", resp.StatusCode)
	}
	plugins, _ := body["plugins"].([]any)
	if len(plugins) != 1 {
		t.Fatalf("plugins = %v", body)
	}
	p := plugins[0].(map[string]any)
	if p["id"] != "reddit" {
		t.Errorf("plugin = %v", p)
	}
}
