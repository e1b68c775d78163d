package format

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/zbxport/internal/tree"
)

type yamlWriter struct{}

func (yamlWriter) Write(root *tree.Node) ([]byte, error) {
	if !root.IsObject() {
		return nil, errors.New("yaml: document root must be an object")
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(toYAML(root)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toYAML(n *tree.Node) *yaml.Node {
	switch n.Kind() {
	case tree.KindObject:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		if n.Len() == 0 {
			out.Style = yaml.FlowStyle
		}
		for _, k := range n.Keys() {
			out.Content = append(out.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				toYAML(n.Get(k)),
			)
		}
		return out
	case tree.KindArray:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if n.Len() == 0 {
			out.Style = yaml.FlowStyle
		}
		for _, it := range n.Items() {
			out.Content = append(out.Content, toYAML(it))
		}
		return out
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.Value()}
}

type yamlReader struct{}

func (yamlReader) Read(data []byte) (*tree.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, syntaxError(YAML, "%v", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, syntaxError(YAML, "empty document")
	}
	n, err := fromYAML(doc.Content[0])
	if err != nil {
		return nil, err
	}
	if !n.IsObject() {
		return nil, syntaxError(YAML, "document root must be a mapping")
	}
	return n, nil
}

func fromYAML(y *yaml.Node) (*tree.Node, error) {
	switch y.Kind {
	case yaml.AliasNode:
		return fromYAML(y.Alias)
	case yaml.MappingNode:
		obj := tree.NewObject()
		for i := 0; i+1 < len(y.Content); i += 2 {
			key := y.Content[i].Value
			if obj.Has(key) {
				return nil, syntaxError(YAML, "line %d: duplicate key %q", y.Content[i].Line, key)
			}
			v, err := fromYAML(y.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj.Set(key, v)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := tree.NewArray()
		for _, c := range y.Content {
			v, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			arr.Append(v)
		}
		return arr, nil
	case yaml.ScalarNode:
		if y.Tag == "!!null" {
			return tree.Scalar(""), nil
		}
		return tree.Scalar(y.Value), nil
	}
	return nil, syntaxError(YAML, "line %d: unsupported node", y.Line)
}
