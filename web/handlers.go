package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/artpar/vaultkit/core/record"
	"github.com/artpar/vaultkit/core/table"
	"github.com/artpar/vaultkit/core/vault"
)

func recordJSON(rec *record.Record) map[string]any {
	out := make(map[string]any, len(rec.Fields)+3)
	for name, value := range rec.Fields {
		out[name] = value
	}
	out["id"] = rec.ID
	out["content"] = rec.Content
	if created, ok := record.CreatedAt(rec.ID); ok {
		out["created_at"] = created
	}
	return out
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListPlugins returns every composed plugin with its tables and actions.
func (h *Handler) ListPlugins(w http.ResponseWriter, r *http.Request) {
	type pluginInfo struct {
		ID          string   `json:"id"`
		DisplayName string   `json:"display_name"`
		Tables      []string `json:"tables"`
		Actions     []string `json:"actions,omitempty"`
	}
	var out []pluginInfo
	for _, id := range h.vault.Plugins() {
		p, _ := h.vault.Plugin(id)
		out = append(out, pluginInfo{
			ID:          p.ID(),
			DisplayName: p.DisplayName(),
			Tables:      p.Tables(),
			Actions:     p.Actions(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"plugins": out})
}

// Stats returns record counts across the whole vault.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.vault.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Export streams the vault in the requested format (?format=json|sql|markdown).
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = "json"
	}
	format, err := vault.ParseFormat(name)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	out, err := h.vault.Export(r.Context(), format)
	if err != nil {
		writeError(w, err)
		return
	}
	switch format {
	case vault.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
	case vault.FormatMarkdown:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.Write(out)
}

// Sync rebuilds the relational mirror.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	if err := h.vault.Sync(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}

// Query runs a read query against the mirror. Body: {"query": "...", "args": [...]}.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query string `json:"query"`
		Args  []any  `json:"args"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "query is required"})
		return
	}

	rows, err := h.vault.Query(r.Context(), body.Query, body.Args...)
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (h *Handler) engine(w http.ResponseWriter, r *http.Request) (*table.Engine, bool) {
	plugin := chi.URLParam(r, "plugin")
	name := chi.URLParam(r, "table")
	eng, ok := h.vault.Table(plugin, name)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown table " + plugin + "/" + name})
		return nil, false
	}
	return eng, true
}

// ListRecords lists a table with filtering, sorting and pagination.
//
//	GET /v1/reddit/posts/?where.score=5&order_by=score&desc=true&offset=0&limit=20
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}

	opts, err := listOptions(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	recs, err := eng.List(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(recs))
	for i := range recs {
		out = append(out, recordJSON(&recs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": out, "count": len(out)})
}

// CreateRecord creates one record from a JSON field map. A "content" key
// becomes the record body.
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	rec, err := eng.Create(r.Context(), fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, recordJSON(rec))
}

// GetRecord returns one record by id.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}

	rec, err := eng.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "record not found"})
		return
	}
	writeJSON(w, http.StatusOK, recordJSON(rec))
}

// UpdateRecord applies a partial update. Explicit JSON nulls clear fields.
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}

	var partial map[string]any
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	rec, err := eng.Update(r.Context(), chi.URLParam(r, "id"), partial)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordJSON(rec))
}

// DeleteRecord removes a record; deleting an absent id is a no-op.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}

	deleted, err := eng.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

// CallTableAction invokes a custom table action with the JSON body as input.
func (h *Handler) CallTableAction(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeActionInput(w, r)
	if !ok {
		return
	}
	out, err := h.vault.Call(r.Context(),
		chi.URLParam(r, "plugin"), chi.URLParam(r, "table"), chi.URLParam(r, "action"), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": out})
}

// CallPluginAction invokes a plugin-level action.
func (h *Handler) CallPluginAction(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeActionInput(w, r)
	if !ok {
		return
	}
	out, err := h.vault.CallPlugin(r.Context(),
		chi.URLParam(r, "plugin"), chi.URLParam(r, "action"), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": out})
}

func decodeActionInput(w http.ResponseWriter, r *http.Request) (any, bool) {
	if r.ContentLength == 0 {
		return nil, true
	}
	var input any
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return nil, false
	}
	return input, true
}

// listOptions parses the list query string. Filter values arrive as strings;
// each is JSON-parsed first so numbers and booleans keep their types.
func listOptions(r *http.Request) (table.ListOptions, error) {
	q := r.URL.Query()
	opts := table.ListOptions{
		OrderBy: q.Get("order_by"),
	}

	if v := q.Get("desc"); v != "" {
		desc, err := strconv.ParseBool(v)
		if err != nil {
			return opts, err
		}
		opts.Desc = desc
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			return opts, err
		}
		opts.Offset = offset
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return opts, err
		}
		opts.Limit = limit
	}

	for key, values := range q {
		if !strings.HasPrefix(key, "where.") || len(values) == 0 {
			continue
		}
		if opts.Where == nil {
			opts.Where = make(map[string]any)
		}
		opts.Where[strings.TrimPrefix(key, "where.")] = parseScalar(values[0])
	}
	return opts, nil
}

func parseScalar(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	switch v.(type) {
	case float64, bool, string, nil:
		return v
	default:
		return s
	}
}
