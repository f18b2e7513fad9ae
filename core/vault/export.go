package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/artpar/vaultkit/core/record"
	"github.com/artpar/vaultkit/core/schema"
	"github.com/artpar/vaultkit/core/table"
)

// Format selects an export representation.
type Format string

const (
	FormatJSON     Format = "json"
	FormatSQL      Format = "sql"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatSQL, FormatMarkdown:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown export format %q (json, sql, markdown)", s)
	}
}

// Export renders the whole vault in the requested format: a full nested
// JSON dump, CREATE TABLE statements for the relational mirror, or a
// human-readable markdown summary.
func (v *Vault) Export(ctx context.Context, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return v.exportJSON(ctx)
	case FormatSQL:
		return v.exportSQL()
	case FormatMarkdown:
		return v.exportMarkdown(ctx)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

type exportedTable struct {
	Name    string           `json:"name"`
	Mirror  string           `json:"mirror"`
	Records []map[string]any `json:"records"`
}

type exportedPlugin struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Tables      []exportedTable `json:"tables"`
}

func (v *Vault) exportJSON(ctx context.Context) ([]byte, error) {
	var plugins []exportedPlugin
	for _, pluginID := range v.pluginOrder {
		p := v.plugins[pluginID]
		exported := exportedPlugin{ID: p.id, DisplayName: p.displayName}
		for _, tableName := range p.tableNames {
			eng := p.tables[tableName]
			recs, err := eng.List(ctx, table.ListOptions{})
			if err != nil {
				return nil, err
			}
			et := exportedTable{
				Name:    tableName,
				Mirror:  eng.MirrorName(),
				Records: make([]map[string]any, 0, len(recs)),
			}
			for i := range recs {
				et.Records = append(et.Records, flattenRecord(&recs[i]))
			}
			exported.Tables = append(exported.Tables, et)
		}
		plugins = append(plugins, exported)
	}
	return json.MarshalIndent(map[string]any{"plugins": plugins}, "", "  ")
}

func flattenRecord(rec *record.Record) map[string]any {
	out := make(map[string]any, len(rec.Fields)+2)
	for name, value := range rec.Fields {
		out[name] = value
	}
	out[schema.FieldID] = rec.ID
	out[schema.FieldContent] = rec.Content
	if created, ok := record.CreatedAt(rec.ID); ok {
		out["created_at"] = created
	}
	return out
}

func (v *Vault) exportSQL() ([]byte, error) {
	var b strings.Builder
	for _, eng := range v.engines() {
		b.WriteString(createTableSQL(eng))
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

// createTableSQL emits the mirror DDL for one table: the fixed columns
// id, content, created_at plus one column per schema field.
func createTableSQL(eng *table.Engine) string {
	columns := []string{
		"  id TEXT PRIMARY KEY",
		"  content TEXT",
		"  created_at TEXT",
	}
	var constraints []string
	for _, fd := range eng.Schema().Fields() {
		col := fmt.Sprintf("  %s %s", fd.Name, fd.Field.SQLType())
		if fd.Field.IsRequired() {
			col += " NOT NULL"
		}
		columns = append(columns, col)

		if fd.Field.Unique {
			constraints = append(constraints, fmt.Sprintf("  UNIQUE(%s)", fd.Name))
		}
		if fd.Field.References != "" {
			constraints = append(constraints, fmt.Sprintf(
				"  FOREIGN KEY(%s) REFERENCES %s(id)",
				fd.Name, MirrorName(eng.Plugin(), fd.Field.References),
			))
		}
	}

	lines := append(columns, constraints...)
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n);\n",
		eng.MirrorName(), strings.Join(lines, ",\n"))
}

func (v *Vault) exportMarkdown(ctx context.Context) ([]byte, error) {
	var b strings.Builder
	b.WriteString("# Vault Export\n")
	for _, pluginID := range v.pluginOrder {
		p := v.plugins[pluginID]
		fmt.Fprintf(&b, "\n## %s (`%s`)\n", p.displayName, p.id)
		for _, tableName := range p.tableNames {
			eng := p.tables[tableName]
			n, err := eng.Count(ctx, nil)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(&b, "\n### %s\n\n", tableName)
			fmt.Fprintf(&b, "- mirror: `%s`\n", eng.MirrorName())
			fmt.Fprintf(&b, "- records: %d\n", n)
			fmt.Fprintf(&b, "- fields:\n")
			for _, fd := range eng.Schema().Fields() {
				attrs := []string{string(fd.Field.Type)}
				if fd.Field.IsRequired() {
					attrs = append(attrs, "required")
				}
				if fd.Field.Default != nil {
					attrs = append(attrs, fmt.Sprintf("default %v", fd.Field.Default))
				}
				if fd.Field.Unique {
					attrs = append(attrs, "unique")
				}
				if fd.Field.References != "" {
					attrs = append(attrs, "references "+fd.Field.References)
				}
				fmt.Fprintf(&b, "  - `%s` (%s)\n", fd.Name, strings.Join(attrs, ", "))
			}
		}
	}
	return []byte(b.String()), nil
}
