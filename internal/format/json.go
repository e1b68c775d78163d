package format

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/AaronLay10/zbxport/internal/tree"
)

type jsonWriter struct{}

func (jsonWriter) Write(root *tree.Node) ([]byte, error) {
	if !root.IsObject() {
		return nil, errors.New("json: document root must be an object")
	}
	var buf bytes.Buffer
	if err := writeJSON(&buf, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, n *tree.Node) error {
	switch n.Kind() {
	case tree.KindObject:
		buf.WriteByte('{')
		for i, k := range n.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeJSON(buf, n.Get(k)); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case tree.KindArray:
		buf.WriteByte('[')
		for i, it := range n.Items() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, it); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return writeJSONString(buf, n.Value())
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

type jsonReader struct{}

func (jsonReader) Read(data []byte) (*tree.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := readJSON(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, syntaxError(JSON, "trailing data after document")
	}
	if !n.IsObject() {
		return nil, syntaxError(JSON, "document root must be an object")
	}
	return n, nil
}

func readJSON(dec *json.Decoder) (*tree.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, syntaxError(JSON, "%v", err)
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := tree.NewObject()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, syntaxError(JSON, "%v", err)
				}
				key, ok := kt.(string)
				if !ok {
					return nil, syntaxError(JSON, "object key expected")
				}
				if obj.Has(key) {
					return nil, syntaxError(JSON, "duplicate key %q", key)
				}
				v, err := readJSON(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, syntaxError(JSON, "%v", err)
			}
			return obj, nil
		case '[':
			arr := tree.NewArray()
			for dec.More() {
				v, err := readJSON(dec)
				if err != nil {
					return nil, err
				}
				arr.Append(v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, syntaxError(JSON, "%v", err)
			}
			return arr, nil
		}
		return nil, syntaxError(JSON, "unexpected %v", t)
	case string:
		return tree.Scalar(t), nil
	case json.Number:
		return tree.Scalar(t.String()), nil
	case nil:
		return tree.Scalar(""), nil
	case bool:
		return nil, syntaxError(JSON, "boolean values are not allowed")
	}
	return nil, syntaxError(JSON, "unexpected token %s", fmt.Sprint(tok))
}
