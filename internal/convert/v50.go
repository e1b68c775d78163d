package convert

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AaronLay10/zbxport/internal/model"
	"github.com/AaronLay10/zbxport/internal/schema"
	"github.com/AaronLay10/zbxport/internal/tree"
	"github.com/AaronLay10/zbxport/internal/validate"
)

// to50 moves SNMP settings from items into interface details, folds the
// legacy SNMP item types into SNMP_AGENT and replaces raw values with
// constant names.
func to50(doc *tree.Node) (*tree.Node, error) {
	for _, h := range doc.Select("zabbix_export/hosts/*") {
		moveSNMP(h)
	}
	for _, t := range doc.Select("zabbix_export/templates/*") {
		for _, it := range hostItems(t) {
			if legacySNMP(it) {
				it.SetString("type", model.ItemSNMP.Value())
			}
			dropSNMP(it)
		}
	}
	rule := schema.Current()
	return portable(doc, rule, nil, "")
}

// hostItems lists items, discovery rules and item prototypes of a host.
func hostItems(h *tree.Node) []*tree.Node {
	var out []*tree.Node
	out = append(out, h.Get("items").Items()...)
	for _, r := range h.Get("discovery_rules").Items() {
		out = append(out, r)
		out = append(out, r.Get("item_prototypes").Items()...)
	}
	return out
}

func legacySNMP(it *tree.Node) bool {
	switch it.String("type") {
	case model.ItemSNMPv1.Value(), model.ItemSNMPv2.Value(), model.ItemSNMPv3.Value():
		return true
	}
	return false
}

func dropSNMP(it *tree.Node) {
	for _, tag := range schema.SNMPItemTags() {
		it.Delete(tag)
	}
}

// snmpDetails builds the interface details an SNMP item of 4.4 implies.
func snmpDetails(it *tree.Node) *tree.Node {
	d := tree.NewObject()
	switch it.String("type") {
	case model.ItemSNMPv1.Value():
		d.SetString("version", "1")
		d.SetString("community", it.String("snmp_community"))
	case model.ItemSNMPv2.Value():
		d.SetString("version", "2")
		d.SetString("community", it.String("snmp_community"))
	case model.ItemSNMPv3.Value():
		d.SetString("version", "3")
		d.SetString("contextname", it.String("snmpv3_contextname"))
		d.SetString("securityname", it.String("snmpv3_securityname"))
		d.SetString("securitylevel", orDefault(it.String("snmpv3_securitylevel"), "0"))
		d.SetString("authprotocol", orDefault(it.String("snmpv3_authprotocol"), "0"))
		d.SetString("authpassphrase", it.String("snmpv3_authpassphrase"))
		d.SetString("privprotocol", orDefault(it.String("snmpv3_privprotocol"), "0"))
		d.SetString("privpassphrase", it.String("snmpv3_privpassphrase"))
	}
	return d
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func detailsKey(d *tree.Node, port string) string {
	var b strings.Builder
	for _, k := range d.Keys() {
		b.WriteString(k + "=" + d.String(k) + "\x00")
	}
	b.WriteString("port=" + port)
	return b.String()
}

// moveSNMP rewrites the items and interfaces of one host. The first SNMP
// item bound to an interface decides its details; an item whose settings
// differ gets a copy of the interface under a new ref.
func moveSNMP(h *tree.Node) {
	ifaces := h.Get("interfaces")
	byRef := make(map[string]*tree.Node)
	maxRef := 0
	for _, i := range ifaces.Items() {
		ref := i.String("interface_ref")
		byRef[ref] = i
		if n, err := strconv.Atoi(strings.TrimPrefix(ref, "if")); err == nil && n > maxRef {
			maxRef = n
		}
	}
	assigned := make(map[string]string)
	split := make(map[string]string)
	for _, it := range hostItems(h) {
		if !legacySNMP(it) {
			dropSNMP(it)
			continue
		}
		details := snmpDetails(it)
		port := it.String("port")
		it.SetString("type", model.ItemSNMP.Value())
		dropSNMP(it)
		ref := it.String("interface_ref")
		iface := byRef[ref]
		if iface == nil {
			continue
		}
		key := detailsKey(details, port)
		switch cur, ok := assigned[ref]; {
		case !ok:
			assigned[ref] = key
			iface.Set("details", details)
			if port != "" {
				iface.SetString("port", port)
			}
		case cur != key:
			if newRef, ok := split[ref+"\x00"+key]; ok {
				it.SetString("interface_ref", newRef)
				continue
			}
			maxRef++
			newRef := fmt.Sprintf("if%d", maxRef)
			c := iface.Clone()
			c.SetString("default", "0")
			c.Set("details", details)
			if port != "" {
				c.SetString("port", port)
			}
			c.SetString("interface_ref", newRef)
			ifaces.Append(c)
			byRef[newRef] = c
			assigned[newRef] = key
			split[ref+"\x00"+key] = newRef
			it.SetString("interface_ref", newRef)
		}
	}
	for _, i := range ifaces.Items() {
		bulk := i.Get("bulk")
		i.Delete("bulk")
		if i.String("type") != strconv.Itoa(int(model.InterfaceSNMP)) {
			i.Delete("details")
			continue
		}
		d := i.Get("details")
		if !d.IsObject() {
			d = tree.NewObject()
			i.Set("details", d)
		}
		if bulk != nil {
			d.Set("bulk", bulk)
		}
	}
}

// portable replaces internal values with constant names following rule.
func portable(n *tree.Node, r *schema.Rule, record *tree.Node, path string) (*tree.Node, error) {
	r = r.Resolve(record, n)
	if r.Export != nil && n.IsScalar() {
		out, err := r.Export(n, record)
		if err != nil {
			return nil, &validate.ValidationError{Path: path, Reason: err.Error()}
		}
		return out, nil
	}
	switch n.Kind() {
	case tree.KindScalar:
		if r.Enum == nil {
			return n, nil
		}
		name, ok := r.Enum.Name(n.Value())
		if !ok {
			return nil, &validate.ValidationError{Path: path, Reason: fmt.Sprintf("unexpected value %q", n.Value())}
		}
		return tree.Scalar(name), nil
	case tree.KindObject:
		out := tree.NewObject()
		for _, k := range n.Keys() {
			child := n.Get(k)
			fr := r.Field(k)
			if r.Kind == schema.KindArray {
				fr = r.Elem
			}
			if fr == nil {
				out.Set(k, child)
				continue
			}
			v, err := portable(child, fr, n, path+"/"+k)
			if err != nil {
				return nil, err
			}
			out.Set(k, v)
		}
		return out, nil
	case tree.KindArray:
		out := tree.NewArray()
		for i, it := range n.Items() {
			if r.Elem == nil {
				out.Append(it)
				continue
			}
			v, err := portable(it, r.Elem, nil, fmt.Sprintf("%s/%s(%d)", path, r.Prefix, i+1))
			if err != nil {
				return nil, err
			}
			out.Append(v)
		}
		return out, nil
	}
	return n, nil
}
