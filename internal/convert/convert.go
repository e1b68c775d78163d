// Package convert upgrades portable documents one version at a time until
// they reach the current version.
package convert

import (
	"fmt"

	"github.com/AaronLay10/zbxport/internal/schema"
	"github.com/AaronLay10/zbxport/internal/tree"
)

// Func turns a document of one version into the next. It receives its own
// deep copy and never touches the store.
type Func func(doc *tree.Node) (*tree.Node, error)

// Converter upgrades documents from From to To.
type Converter struct {
	From    string
	To      string
	Convert Func
}

// Check validates a converted document against the schema of version.
type Check func(doc *tree.Node, version string) (*tree.Node, error)

var chain = []Converter{
	{From: "2.0", To: "3.0", Convert: to30},
	{From: "3.0", To: "3.2", Convert: to32},
	{From: "3.2", To: "3.4", Convert: to34},
	{From: "3.4", To: "4.0", Convert: to40},
	{From: "4.0", To: "4.2", Convert: to42},
	{From: "4.2", To: "4.4", Convert: to44},
	{From: "4.4", To: "5.0", Convert: to50},
}

// Chain returns the converters in upgrade order.
func Chain() []Converter {
	return append([]Converter(nil), chain...)
}

// Steps returns the converters that upgrade from to the current version.
func Steps(from string) ([]Converter, error) {
	if !schema.Supported(from) {
		return nil, &schema.UnsupportedVersionError{Version: from}
	}
	for i, c := range chain {
		if c.From == from {
			return append([]Converter(nil), chain[i:]...), nil
		}
	}
	return nil, nil
}

// Upgrade runs every converter from version from onwards. check, when not
// nil, runs after each step against the step's target version and its result
// feeds the next step. A document already at the current version is returned
// unchanged.
func Upgrade(doc *tree.Node, from string, check Check) (*tree.Node, error) {
	steps, err := Steps(from)
	if err != nil {
		return nil, err
	}
	cur := doc
	for _, c := range steps {
		next, err := c.Convert(cur.Clone())
		if err != nil {
			return nil, fmt.Errorf("convert %s to %s: %w", c.From, c.To, err)
		}
		setVersion(next, c.To)
		if check != nil {
			if next, err = check(next, c.To); err != nil {
				return nil, fmt.Errorf("convert %s to %s: %w", c.From, c.To, err)
			}
		}
		cur = next
	}
	return cur, nil
}

func setVersion(doc *tree.Node, version string) {
	if body := doc.Get("zabbix_export"); body.IsObject() {
		body.SetString("version", version)
	}
}
