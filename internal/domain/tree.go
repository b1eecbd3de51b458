package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type ContentType string

const (
	ContentText  ContentType = "text"
	ContentTable ContentType = "table"
	ContentImage ContentType = "image"
)

type ContentItem struct {
	Type    ContentType `json:"type"`
	Content string      `json:"content"`
}

// DocumentTree is the parsed output_tree.json of a document. A decoded tree
// keeps its source bytes and encodes back to them unchanged, so fields the
// typed view does not model survive the round trip.
type DocumentTree struct {
	Root DocumentNode `json:"root"`

	raw json.RawMessage
}

type treeFields struct {
	Root DocumentNode `json:"root"`
}

func (t *DocumentTree) UnmarshalJSON(data []byte) error {
	var fields treeFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	t.Root = fields.Root
	t.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (t DocumentTree) MarshalJSON() ([]byte, error) {
	if t.raw != nil {
		return t.raw, nil
	}
	return json.Marshal(treeFields{Root: t.Root})
}

type DocumentNode struct {
	Content  []ContentItem `json:"content"`
	Children []NamedChild  `json:"children"`
}

// NamedChild is one labelled subtree. On the wire it is a single-key object,
// {"<label>": {...node...}}. In the typed view an object carrying several
// labels expands into several children in document order.
type NamedChild struct {
	Label string
	Node  DocumentNode
}

func (c NamedChild) MarshalJSON() ([]byte, error) {
	label, err := json.Marshal(c.Label)
	if err != nil {
		return nil, err
	}
	node, err := json.Marshal(c.Node)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.Write(label)
	buf.WriteByte(':')
	buf.Write(node)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (n *DocumentNode) UnmarshalJSON(data []byte) error {
	var raw struct {
		Content  []ContentItem     `json:"content"`
		Children []json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	n.Content = raw.Content
	if n.Content == nil {
		n.Content = []ContentItem{}
	}
	n.Children = make([]NamedChild, 0, len(raw.Children))
	for i, msg := range raw.Children {
		children, err := decodeNamedChildren(msg)
		if err != nil {
			return fmt.Errorf("children[%d]: %w", i, err)
		}
		n.Children = append(n.Children, children...)
	}
	return nil
}

// decodeNamedChildren walks the object token by token so label order survives.
func decodeNamedChildren(msg json.RawMessage) ([]NamedChild, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var out []NamedChild
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		label, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected label, got %v", tok)
		}
		var node DocumentNode
		if err := dec.Decode(&node); err != nil {
			return nil, fmt.Errorf("%q: %w", label, err)
		}
		out = append(out, NamedChild{Label: label, Node: node})
	}
	return out, nil
}
