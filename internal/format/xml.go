package format

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/AaronLay10/zbxport/internal/tree"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"\r", "&#13;",
)

// xmlChar reports whether r is allowed in an XML 1.0 document, raw or as a
// character reference.
func xmlChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}

// xmlText escapes s for element content. Invalid UTF-8 and characters
// outside the XML 1.0 range fail with the path of the element.
func xmlText(path, s string) (string, error) {
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				return "", fmt.Errorf("%w: xml: %s: invalid UTF-8 at byte %d", ErrUnrepresentable, path, i)
			}
		}
		if !xmlChar(r) {
			return "", fmt.Errorf("%w: xml: %s: character %U at byte %d", ErrUnrepresentable, path, r, i)
		}
	}
	return xmlEscaper.Replace(s), nil
}

type xmlWriter struct{}

func (xmlWriter) Write(root *tree.Node) ([]byte, error) {
	if !root.IsObject() {
		return nil, errors.New("xml: document root must be an object")
	}
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	for _, tag := range root.Keys() {
		if err := writeXMLElement(&buf, tag, "/"+tag, root.Get(tag), 0); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func writeXMLElement(buf *bytes.Buffer, tag, path string, n *tree.Node, depth int) error {
	indent := strings.Repeat("    ", depth)
	buf.WriteString(indent)
	if n.IsEmpty() {
		buf.WriteString("<" + tag + "/>\n")
		return nil
	}
	switch n.Kind() {
	case tree.KindScalar:
		text, err := xmlText(path, n.Value())
		if err != nil {
			return err
		}
		buf.WriteString("<" + tag + ">")
		buf.WriteString(text)
		buf.WriteString("</" + tag + ">\n")
		return nil
	case tree.KindObject:
		buf.WriteString("<" + tag + ">\n")
		for _, k := range n.Keys() {
			if err := writeXMLElement(buf, k, path+"/"+k, n.Get(k), depth+1); err != nil {
				return err
			}
		}
	case tree.KindArray:
		item := Singular(tag)
		if item == tag {
			return errors.New("xml: cannot name the items of " + tag)
		}
		buf.WriteString("<" + tag + ">\n")
		for i, it := range n.Items() {
			p := fmt.Sprintf("%s/%s(%d)", path, item, i+1)
			if err := writeXMLElement(buf, item, p, it, depth+1); err != nil {
				return err
			}
		}
	}
	buf.WriteString(indent + "</" + tag + ">\n")
	return nil
}

type xmlElement struct {
	name     string
	text     strings.Builder
	children []*xmlElement
}

type xmlReader struct{}

func (xmlReader) Read(data []byte) (*tree.Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		stack []*xmlElement
		root  *xmlElement
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, syntaxError(XML, "%v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			e := &xmlElement{name: t.Name.Local}
			if len(stack) == 0 {
				if root != nil {
					return nil, syntaxError(XML, "more than one root element")
				}
				root = e
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, e)
			}
			stack = append(stack, e)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	if root == nil {
		return nil, syntaxError(XML, "empty document")
	}
	n, err := root.node()
	if err != nil {
		return nil, err
	}
	return tree.NewObject().Set(root.name, n), nil
}

func (e *xmlElement) node() (*tree.Node, error) {
	if len(e.children) == 0 {
		return tree.Scalar(e.text.String()), nil
	}
	if item := Singular(e.name); item != e.name && e.allNamed(item) {
		arr := tree.NewArray()
		for _, c := range e.children {
			n, err := c.node()
			if err != nil {
				return nil, err
			}
			arr.Append(n)
		}
		return arr, nil
	}
	obj := tree.NewObject()
	for _, c := range e.children {
		if obj.Has(c.name) {
			return nil, syntaxError(XML, "duplicate tag %q in %q", c.name, e.name)
		}
		n, err := c.node()
		if err != nil {
			return nil, err
		}
		obj.Set(c.name, n)
	}
	return obj, nil
}

func (e *xmlElement) allNamed(name string) bool {
	for _, c := range e.children {
		if c.name != name {
			return false
		}
	}
	return true
}
