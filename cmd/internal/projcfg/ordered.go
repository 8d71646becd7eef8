package projcfg

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

type jsonKind int

const (
	jsonScalar jsonKind = iota
	jsonObject
	jsonArray
)

// jsonNode is a decoded JSON value that remembers the order of object keys.
type jsonNode struct {
	kind    jsonKind
	members []jsonMember
	items   []*jsonNode
	scalar  any
}

type jsonMember struct {
	key   string
	value *jsonNode
}

func decodeOrdered(data []byte) (*jsonNode, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	node, err := decodeNode(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err == nil {
		return nil, errors.New("unexpected data after top-level value")
	}
	return node, nil
}

func decodeNode(dec *json.Decoder) (*jsonNode, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return &jsonNode{kind: jsonScalar, scalar: tok}, nil
	}

	switch delim {
	case '{':
		node := &jsonNode{kind: jsonObject}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)
			value, err := decodeNode(dec)
			if err != nil {
				return nil, err
			}
			node.members = append(node.members, jsonMember{key: key, value: value})
		}
		_, err = dec.Token()
		return node, err
	case '[':
		node := &jsonNode{kind: jsonArray}
		for dec.More() {
			item, err := decodeNode(dec)
			if err != nil {
				return nil, err
			}
			node.items = append(node.items, item)
		}
		_, err = dec.Token()
		return node, err
	default:
		return nil, errors.Newf("unexpected delimiter %q", delim)
	}
}

// get returns the value stored under key, or nil.
func (n *jsonNode) get(key string) *jsonNode {
	if n == nil || n.kind != jsonObject {
		return nil
	}
	for _, m := range n.members {
		if m.key == key {
			return m.value
		}
	}
	return nil
}

func (n *jsonNode) keys() []string {
	keys := make([]string, 0, len(n.members))
	for _, m := range n.members {
		keys = append(keys, m.key)
	}
	return keys
}

// set replaces the value under key, appending the key when it is new.
func (n *jsonNode) set(key string, value *jsonNode) {
	for i, m := range n.members {
		if m.key == key {
			n.members[i].value = value
			return
		}
	}
	n.members = append(n.members, jsonMember{key: key, value: value})
}

// encode writes n with the given indent and no HTML escaping.
func (n *jsonNode) encode(indent string) ([]byte, error) {
	var buf bytes.Buffer
	if err := n.write(&buf, indent, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *jsonNode) write(buf *bytes.Buffer, indent string, depth int) error {
	pad := strings.Repeat(indent, depth+1)
	switch n.kind {
	case jsonObject:
		if len(n.members) == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteString("{\n")
		for i, m := range n.members {
			buf.WriteString(pad)
			if err := writeScalar(buf, m.key); err != nil {
				return err
			}
			buf.WriteString(": ")
			if err := m.value.write(buf, indent, depth+1); err != nil {
				return err
			}
			if i < len(n.members)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(strings.Repeat(indent, depth))
		buf.WriteByte('}')
	case jsonArray:
		if len(n.items) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteString("[\n")
		for i, item := range n.items {
			buf.WriteString(pad)
			if err := item.write(buf, indent, depth+1); err != nil {
				return err
			}
			if i < len(n.items)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(strings.Repeat(indent, depth))
		buf.WriteByte(']')
	default:
		return writeScalar(buf, n.scalar)
	}
	return nil
}

func writeScalar(buf *bytes.Buffer, v any) error {
	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(out.Bytes(), []byte("\n")))
	return nil
}
