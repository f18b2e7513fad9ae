package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/artpar/vaultkit/core/schema"
)

// ParseFile parses a declarative plugin definition from a YAML file.
// Declarative plugins carry schemas only; hooks and custom actions are
// attached in code.
//
//	plugin: reddit
//	display_name: Reddit
//	tables:
//	  posts:
//	    schema:
//	      title: { type: string, required: true }
//	      score: { type: number, default: 0 }
func ParseFile(path string) (PluginConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PluginConfig{}, fmt.Errorf("read file %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return PluginConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

type pluginFile struct {
	Plugin      string               `yaml:"plugin"`
	DisplayName string               `yaml:"display_name"`
	Tables      map[string]tableFile `yaml:"tables"`
}

type tableFile struct {
	Schema yaml.Node `yaml:"schema"`
}

// Parse parses a plugin definition from YAML bytes.
func Parse(data []byte) (PluginConfig, error) {
	var pf pluginFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return PluginConfig{}, fmt.Errorf("parse yaml: %w", err)
	}
	if pf.Plugin == "" {
		return PluginConfig{}, schema.Configf("missing plugin id")
	}

	cfg := PluginConfig{
		ID:          pf.Plugin,
		DisplayName: pf.DisplayName,
		Tables:      make(map[string]TableConfig, len(pf.Tables)),
	}
	for tableName, tf := range pf.Tables {
		def, err := parseSchema(&tf.Schema)
		if err != nil {
			return PluginConfig{}, fmt.Errorf("table %s: %w", tableName, err)
		}
		cfg.Tables[tableName] = TableConfig{Schema: def}
	}

	if err := validatePluginConfig(cfg); err != nil {
		return PluginConfig{}, err
	}
	return cfg, nil
}

// parseSchema decodes a schema mapping, preserving the declared field order.
func parseSchema(node *yaml.Node) (*schema.Definition, error) {
	if node.Kind == 0 || node.IsZero() {
		return nil, schema.Configf("missing schema")
	}
	if node.Kind != yaml.MappingNode {
		return nil, schema.Configf("schema must be a mapping")
	}

	var fields []schema.FieldDef
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		var field schema.Field
		if err := valueNode.Decode(&field); err != nil {
			return nil, fmt.Errorf("field %s: %w", keyNode.Value, err)
		}
		fields = append(fields, schema.FieldDef{Name: keyNode.Value, Field: field})
	}
	return schema.NewDefinition(fields)
}

// ParseDir parses every plugin definition in a directory, including
// subdirectories. Files without a .yaml/.yml suffix are skipped.
func ParseDir(dir string) ([]PluginConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var configs []PluginConfig
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			sub, err := ParseDir(path)
			if err != nil {
				return nil, err
			}
			configs = append(configs, sub...)
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		cfg, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ID < configs[j].ID })
	return configs, nil
}
