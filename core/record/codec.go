package record

import (
	"bytes"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/artpar/vaultkit/core/schema"
)

const (
	headerOpen  = "---\n"
	headerClose = "\n---\n"
)

// Encode serializes a record to its file form: a YAML front-matter header
// followed by a blank line and the body text. Header keys are written in a
// stable order: id first, then schema fields in declaration order, then any
// extra fields sorted by name.
func Encode(rec *Record, def *schema.Definition) ([]byte, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("encode record: empty id")
	}

	header := &yaml.Node{Kind: yaml.MappingNode}
	appendEntry := func(key string, value any) error {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(value); err != nil {
			return fmt.Errorf("encode field %q: %w", key, err)
		}
		header.Content = append(header.Content, keyNode, valueNode)
		return nil
	}

	if err := appendEntry(schema.FieldID, rec.ID); err != nil {
		return nil, err
	}
	written := map[string]bool{}
	for _, name := range def.Names() {
		value, present := rec.Fields[name]
		if !present {
			continue
		}
		if err := appendEntry(name, value); err != nil {
			return nil, err
		}
		written[name] = true
	}
	var extras []string
	for name := range rec.Fields {
		// A stray "id" entry would duplicate the header's first key and
		// make the file undecodable.
		if name == schema.FieldID {
			continue
		}
		if !written[name] && !def.Has(name) {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		if err := appendEntry(name, rec.Fields[name]); err != nil {
			return nil, err
		}
	}

	headerBytes, err := yaml.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(headerOpen)
	buf.Write(headerBytes)
	buf.WriteString("---\n")
	if rec.Content != "" {
		buf.WriteString("\n")
		buf.WriteString(rec.Content)
	}
	return buf.Bytes(), nil
}

// Decode parses a record file. The header must open with "---" and be
// terminated by a "---" line; anything else fails decode. Header fields not
// declared in the schema pass through untyped; declared fields are
// normalized, so a record that no longer satisfies its schema is a
// validation error at read time.
func Decode(data []byte, def *schema.Definition) (*Record, error) {
	if !bytes.HasPrefix(data, []byte(headerOpen)) {
		return nil, fmt.Errorf("decode record: missing front-matter header")
	}
	rest := data[len(headerOpen):]

	var headerBytes, body []byte
	if idx := bytes.Index(rest, []byte(headerClose)); idx >= 0 {
		headerBytes = rest[:idx+1]
		body = rest[idx+len(headerClose):]
	} else if bytes.HasSuffix(rest, []byte("\n---")) {
		headerBytes = rest[:len(rest)-len("---")]
	} else {
		return nil, fmt.Errorf("decode record: unterminated front-matter header")
	}

	var header map[string]any
	if err := yaml.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}

	id, ok := header[schema.FieldID].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("decode record: missing or invalid id")
	}
	delete(header, schema.FieldID)

	fields, err := def.Normalize(header)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", id, err)
	}

	content := string(body)
	if len(content) > 0 && content[0] == '\n' {
		content = content[1:]
	}

	return &Record{ID: id, Content: content, Fields: fields}, nil
}
