package schema

import (
	"fmt"
	"time"

	"github.com/AaronLay10/zbxport/internal/model"
)

// DateLayout is the format of zabbix_export/date.
const DateLayout = "2006-01-02T15:04:05Z"

// DefaultJMXEndpoint is the endpoint given to JMX items that carry none.
const DefaultJMXEndpoint = "service:jmx:rmi:///jndi/rmi://{HOST.CONN}:{HOST.PORT}/jmxrmi"

func checkDate(v string) error {
	if _, err := time.Parse(DateLayout, v); err != nil {
		return fmt.Errorf("%q is not a date in %s format", v, "YYYY-MM-DDThh:mm:ssZ")
	}
	return nil
}

func named() *Rule { return Obj(F("name", Str().Req())) }

func namedList(prefix string) *Rule { return List(prefix, named()).SortBy("name") }

func itemRef() *Rule { return Obj(F("host", Str().Req()), F("key", Str().Req())) }

func pairs(prefix string, valueRequired bool) *Rule {
	value := Str()
	if valueRequired {
		value.Req()
	}
	return List(prefix, Obj(F("name", Str().Req()), F("value", value))).Keep()
}

func macros() *Rule {
	return List("macro", Obj(
		F("macro", Str().Req()),
		F("value", Str()),
		F("description", Str()),
	)).SortBy("macro")
}

func tags() *Rule {
	return List("tag", Obj(F("tag", Str().Req()), F("value", Str()))).SortBy("tag", "value")
}

func preprocessing() *Rule {
	return List("step", Obj(
		F("type", Str().Req().In(enumPreprocessing)),
		F("params", Str().Req()),
		F("error_handler", Str().Def("0").In(enumErrorHandler)),
		F("error_handler_params", Str()),
	)).Keep()
}

func authType() *Rule {
	return &Rule{
		Kind:   KindScalar,
		Select: selectAuthType,
		Variants: map[string]*Rule{
			"":     Str().Def("0").In(enumSSHAuthType),
			"http": Str().Def("0").In(enumHTTPAuthType),
		},
	}
}

// httpAgentFields are the item tags that belong to the HTTP agent type.
func httpAgentFields() []Field {
	return []Field{
		F("timeout", Str().Def("3s")),
		F("url", Str()),
		F("query_fields", pairs("query_field", false)),
		F("posts", Str()),
		F("status_codes", Str().Def("200")),
		F("follow_redirects", Str().Def("1").In(enumNoYes)),
		F("post_type", Str().Def("0").In(enumPostType)),
		F("http_proxy", Str()),
		F("headers", pairs("header", true)),
		F("retrieve_mode", Str().Def("0").In(enumRetrieveMode)),
		F("request_method", Str().Def("0").In(enumMethod)),
		F("allow_traps", Str().Def("0").In(enumNoYes)),
		F("ssl_cert_file", Str()),
		F("ssl_key_file", Str()),
		F("ssl_key_password", Str()),
		F("verify_peer", Str().Def("0").In(enumNoYes)),
		F("verify_host", Str().Def("0").In(enumNoYes)),
	}
}

type itemShape int

const (
	shapeItem itemShape = iota
	shapePrototype
	shapeDiscoveryRule
)

func item(shape itemShape) *Rule {
	fields := []Field{
		F("name", Str().Req()),
		F("type", Str().Def("0").In(itemTypeEnum())),
		F("snmp_oid", Str()),
		F("key", Str().Req()),
		F("delay", Str().Def("1m")),
	}
	if shape != shapeDiscoveryRule {
		fields = append(fields,
			F("history", Str().Def("90d")),
			F("trends", Str().Def("365d")),
		)
	}
	fields = append(fields, F("status", Str().Def("0").In(enumStatus)))
	if shape == shapePrototype {
		fields = append(fields, F("discover", Str().Def("0").In(enumDiscover)))
	}
	if shape != shapeDiscoveryRule {
		fields = append(fields,
			F("value_type", Str().Def("3").In(enumValueType)),
			F("units", Str()),
		)
	}
	fields = append(fields,
		F("allowed_hosts", Str()),
		F("params", Str()),
		F("ipmi_sensor", Str()),
		F("authtype", authType()),
		F("username", Str()),
		F("password", Str()),
		F("publickey", Str()),
		F("privatekey", Str()),
		F("description", Str()),
	)
	switch shape {
	case shapeItem:
		fields = append(fields,
			F("inventory_link", Str().Def("0").In(inventoryLinkEnum())),
			F("applications", namedList("application")),
			F("valuemap", named()),
			F("logtimefmt", Str()),
		)
	case shapePrototype:
		fields = append(fields,
			F("applications", namedList("application")),
			F("application_prototypes", namedList("application_prototype")),
			F("valuemap", named()),
			F("logtimefmt", Str()),
		)
	case shapeDiscoveryRule:
		fields = append(fields,
			F("filter", Obj(
				F("evaltype", Str().Def("0").In(enumEvalType)),
				F("formula", Str()),
				F("conditions", List("condition", Obj(
					F("macro", Str().Req()),
					F("value", Str()),
					F("operator", Str().Def("8").In(enumCondition)),
					F("formulaid", Str().Req()),
				)).SortBy("formulaid", "macro")),
			)),
			F("lifetime", Str().Def("30d")),
		)
	}
	fields = append(fields, F("preprocessing", preprocessing()))
	fields = append(fields, F("jmx_endpoint", Str()))
	fields = append(fields, httpAgentFields()...)
	if shape != shapeDiscoveryRule {
		fields = append(fields, F("output_format", Str().Def("0").In(enumOutputFormat)))
	}
	fields = append(fields, F("master_item", Obj(F("key", Str().Req()))))
	switch shape {
	case shapeItem:
		fields = append(fields, F("triggers", List("trigger", trigger(false)).SortBy("name", "expression", "recovery_expression")))
	case shapePrototype:
		fields = append(fields, F("trigger_prototypes", List("trigger_prototype", trigger(true)).SortBy("name", "expression", "recovery_expression")))
	case shapeDiscoveryRule:
		fields = append(fields,
			F("lld_macro_paths", List("lld_macro_path", Obj(
				F("lld_macro", Str().Req()),
				F("path", Str().Req()),
			)).SortBy("lld_macro")),
			F("item_prototypes", List("item_prototype", item(shapePrototype)).SortBy("key")),
			F("trigger_prototypes", List("trigger_prototype", trigger(true)).SortBy("name", "expression", "recovery_expression")),
			F("graph_prototypes", List("graph_prototype", graph(true)).SortBy("name")),
			F("host_prototypes", List("host_prototype", hostPrototype()).SortBy("host")),
		)
	}
	fields = append(fields, F("interface_ref", Str()))
	return Obj(fields...)
}

func trigger(prototype bool) *Rule {
	fields := []Field{
		F("expression", Str().Req()),
		F("recovery_mode", Str().Def("0").In(enumRecoveryMode)),
		F("recovery_expression", Str()),
		F("name", Str().Req()),
		F("opdata", Str()),
		F("correlation_mode", Str().Def("0").In(enumCorrelationMode)),
		F("correlation_tag", Str()),
		F("url", Str()),
		F("status", Str().Def("0").In(enumStatus)),
	}
	if prototype {
		fields = append(fields, F("discover", Str().Def("0").In(enumDiscover)))
	}
	fields = append(fields,
		F("priority", Str().Def("0").In(enumPriority)),
		F("description", Str()),
		F("type", Str().Def("0").In(enumTriggerType)),
		F("manual_close", Str().Def("0").In(enumNoYes)),
		F("dependencies", List("dependency", Obj(
			F("name", Str().Req()),
			F("expression", Str().Req()),
			F("recovery_expression", Str()),
		)).SortBy("name", "expression", "recovery_expression")),
		F("tags", tags()),
	)
	return Obj(fields...)
}

func graph(prototype bool) *Rule {
	fields := []Field{
		F("name", Str().Req()),
		F("width", Str().Def("900")),
		F("height", Str().Def("200")),
		F("yaxismin", Str().Def("0")),
		F("yaxismax", Str().Def("100")),
		F("show_work_period", Str().Def("1").In(enumNoYes)),
		F("show_triggers", Str().Def("1").In(enumNoYes)),
		F("type", Str().Def("0").In(enumGraphType)),
		F("show_legend", Str().Def("1").In(enumNoYes)),
		F("show_3d", Str().Def("0").In(enumNoYes)),
		F("percent_left", Str().Def("0")),
		F("percent_right", Str().Def("0")),
		F("ymin_type_1", Str().Def("0").In(enumYAxisType)),
		F("ymax_type_1", Str().Def("0").In(enumYAxisType)),
		F("ymin_item_1", itemRef()),
		F("ymax_item_1", itemRef()),
	}
	if prototype {
		fields = append(fields, F("discover", Str().Def("0").In(enumDiscover)))
	}
	fields = append(fields, F("graph_items", List("graph_item", Obj(
		F("sortorder", Str().Def("0")),
		F("drawtype", Str().Def("0").In(enumDrawType)),
		F("color", Str().Def("009600")),
		F("yaxisside", Str().Def("0").In(enumYAxisSide)),
		F("calc_fnc", Str().Def("2").In(enumCalcFnc)),
		F("type", Str().Def("0").In(enumGraphItem)),
		F("item", itemRef().Req()),
	)).SortBy("#sortorder").Req()))
	return Obj(fields...)
}

func hostPrototype() *Rule {
	return Obj(
		F("host", Str().Req()),
		F("name", Str()),
		F("status", Str().Def("0").In(enumStatus)),
		F("discover", Str().Def("0").In(enumDiscover)),
		F("group_links", List("group_link", Obj(F("group", named().Req()))).SortBy("group/name")),
		F("group_prototypes", namedList("group_prototype")),
		F("templates", namedList("template")),
		F("inventory_mode", Str().Def("0").In(enumInventoryMode)),
	)
}

func httptest() *Rule {
	return Obj(
		F("name", Str().Req()),
		F("application", named()),
		F("delay", Str().Def("1m")),
		F("attempts", Str().Def("1")),
		F("agent", Str().Def("Zabbix")),
		F("http_proxy", Str()),
		F("variables", pairs("variable", true)),
		F("headers", pairs("header", true)),
		F("status", Str().Def("0").In(enumStatus)),
		F("authentication", Str().Def("0").In(enumWebAuth)),
		F("http_user", Str()),
		F("http_password", Str()),
		F("verify_peer", Str().Def("0").In(enumNoYes)),
		F("verify_host", Str().Def("0").In(enumNoYes)),
		F("ssl_cert_file", Str()),
		F("ssl_key_file", Str()),
		F("ssl_key_password", Str()),
		F("steps", List("step", Obj(
			F("name", Str().Req()),
			F("url", Str().Req()),
			F("query_fields", pairs("query_field", false)),
			F("posts", Str()),
			F("variables", pairs("variable", true)),
			F("headers", pairs("header", true)),
			F("follow_redirects", Str().Def("1").In(enumNoYes)),
			F("retrieve_mode", Str().Def("0").In(enumRetrieveMode)),
			F("timeout", Str().Def("15s")),
			F("required", Str()),
			F("status_codes", Str()),
		)).Keep().Req()),
	)
}

func iface() *Rule {
	return Obj(
		F("default", Str().Def("1").In(enumNoYes)),
		F("type", Str().Def("1").In(enumInterfaceType)),
		F("useip", Str().Def("1").In(enumNoYes)),
		F("ip", Str().Def("127.0.0.1")),
		F("dns", Str()),
		F("port", Str().Def("10050")),
		F("details", Obj(
			F("version", Str().Def("2").In(enumSNMPVersion)),
			F("community", Str().Def("{$SNMP_COMMUNITY}")),
			F("contextname", Str()),
			F("securityname", Str()),
			F("securitylevel", Str().Def("0").In(enumSNMPSecLevel)),
			F("authprotocol", Str().Def("0").In(enumSNMPAuthProto)),
			F("authpassphrase", Str()),
			F("privprotocol", Str().Def("0").In(enumSNMPPrivProto)),
			F("privpassphrase", Str()),
			F("bulk", Str().Def("1").In(enumNoYes)),
		)),
		F("interface_ref", Str().Req()),
	)
}

func inventory() *Rule {
	r := Obj()
	for _, f := range model.InventoryFields {
		r.Fields = append(r.Fields, F(f, Str()))
	}
	return r
}

func tlsAcceptRule() *Rule {
	r := List("option", Str().In(tlsAccept)).Def("1")
	r.Export = exportTLSAccept
	r.Import = importTLSAccept
	return r
}

func host(template bool) *Rule {
	var fields []Field
	if template {
		fields = append(fields,
			F("template", Str().Req()),
			F("name", Str()),
			F("description", Str()),
			F("templates", namedList("template")),
			F("groups", namedList("group").Req()),
			F("applications", namedList("application")),
		)
	} else {
		fields = append(fields,
			F("host", Str().Req()),
			F("name", Str()),
			F("description", Str()),
			F("proxy", named()),
			F("status", Str().Def("0").In(enumStatus)),
			F("ipmi_authtype", Str().Def("-1").In(enumIPMIAuthType)),
			F("ipmi_privilege", Str().Def("2").In(enumIPMIPrivilege)),
			F("ipmi_username", Str()),
			F("ipmi_password", Str()),
			F("tls_connect", Str().Def("1").In(enumTLSConnect)),
			F("tls_accept", tlsAcceptRule()),
			F("tls_issuer", Str()),
			F("tls_subject", Str()),
			F("tls_psk_identity", Str()),
			F("tls_psk", Str()),
			F("templates", namedList("template")),
			F("groups", namedList("group").Req()),
			F("interfaces", List("interface", iface()).SortBy("#type", "ip", "dns", "port")),
			F("applications", namedList("application")),
		)
	}
	fields = append(fields,
		F("items", List("item", item(shapeItem)).SortBy("key")),
		F("discovery_rules", List("discovery_rule", item(shapeDiscoveryRule)).SortBy("key")),
		F("httptests", List("httptest", httptest()).SortBy("name")),
		F("macros", macros()),
	)
	if template {
		fields = append(fields, F("screens", List("screen", screen()).SortBy("name")))
	} else {
		fields = append(fields,
			F("inventory", inventory()),
			F("inventory_mode", Str().Def("0").In(enumInventoryMode)),
			F("tags", tags()),
		)
	}
	return Obj(fields...)
}

func valueMap() *Rule {
	return Obj(
		F("name", Str().Req()),
		F("mappings", List("mapping", Obj(
			F("value", Str()),
			F("newvalue", Str().Req()),
		)).SortBy("value")),
	)
}

func mediaType() *Rule {
	return Obj(
		F("name", Str().Req()),
		F("type", Str().Req().In(mediaTypeEnum())),
		F("smtp_server", Str().Def("localhost")),
		F("smtp_port", Str().Def("25")),
		F("smtp_helo", Str().Def("localhost")),
		F("smtp_email", Str()),
		F("smtp_security", Str().Def("0").In(enumSMTPSecurity)),
		F("smtp_verify_host", Str().Def("0").In(enumNoYes)),
		F("smtp_verify_peer", Str().Def("0").In(enumNoYes)),
		F("smtp_authentication", Str().Def("0").In(enumSMTPAuth)),
		F("username", Str()),
		F("password", Str()),
		F("content_type", Str().Def("1").In(enumContentType)),
		F("script_name", Str()),
		F("parameters", &Rule{
			Kind:   KindIndexedArray,
			Select: selectMediaParameters,
			Variants: map[string]*Rule{
				"":        List("parameter", Str()).Keep(),
				"webhook": List("parameter", Obj(F("name", Str().Req()), F("value", Str()))).SortBy("name"),
			},
		}),
		F("gsm_modem", Str()),
		F("status", Str().Def("0").In(enumStatus)),
		F("max_sessions", Str().Def("1")),
		F("attempts", Str().Def("3")),
		F("attempt_interval", Str().Def("10s")),
		F("script", Str()),
		F("timeout", Str().Def("30s")),
		F("process_tags", Str().Def("0").In(enumNoYes)),
		F("show_event_menu", Str().Def("0").In(enumNoYes)),
		F("event_menu_url", Str()),
		F("event_menu_name", Str()),
		F("description", Str()),
		F("message_templates", List("message_template", Obj(
			F("event_source", Str().Req().In(enumEventSource)),
			F("operation_mode", Str().Req().In(enumOperation)),
			F("subject", Str()),
			F("message", Str()),
		)).SortBy("#event_source", "#operation_mode")),
	)
}

// Screens, images and maps are written by fixed-shape builders. Their rules
// carry no defaults or enums, so values pass through unchanged.

func screen() *Rule {
	return Obj(
		F("name", Str().Req()),
		F("hsize", Str().Req()),
		F("vsize", Str().Req()),
		F("screen_items", List("screen_item", Obj(
			F("resourcetype", Str().Req()),
			F("width", Str()),
			F("height", Str()),
			F("x", Str()),
			F("y", Str()),
			F("colspan", Str()),
			F("rowspan", Str()),
			F("elements", Str()),
			F("valign", Str()),
			F("halign", Str()),
			F("style", Str()),
			F("url", Str()),
			F("dynamic", Str()),
			F("sort_triggers", Str()),
			F("resource", Map(Str())),
			F("max_columns", Str()),
			F("application", Str()),
		)).SortBy("#y", "#x")),
	)
}

func image() *Rule {
	return Obj(
		F("name", Str().Req()),
		F("imagetype", Str().Req()),
		F("encodedImage", Str().Req()),
	)
}

func sysmap() *Rule {
	urls := func(withType bool) *Rule {
		fs := []Field{F("name", Str().Req()), F("url", Str().Req())}
		if withType {
			fs = append(fs, F("elementtype", Str()))
		}
		return List("url", Obj(fs...)).SortBy("name")
	}
	fields := []Field{F("name", Str().Req())}
	for _, tag := range mapScalars {
		fields = append(fields, F(tag, Str()))
	}
	fields = append(fields,
		F("background", named()),
		F("iconmap", named()),
		F("urls", urls(true)),
		F("selements", List("selement", Obj(
			F("elementtype", Str().Req()),
			F("elements", List("element", Map(Str())).Keep()),
			F("label", Str()),
			F("label_location", Str()),
			F("x", Str()),
			F("y", Str()),
			F("elementsubtype", Str()),
			F("areatype", Str()),
			F("width", Str()),
			F("height", Str()),
			F("viewtype", Str()),
			F("use_iconmap", Str()),
			F("selementid", Str().Req()),
			F("icon_off", named()),
			F("icon_on", named()),
			F("icon_disabled", named()),
			F("icon_maintenance", named()),
			F("application", Str()),
			F("urls", urls(false)),
		)).SortBy("#selementid")),
		F("shapes", List("shape", shapeRule(mapShapeScalars)).Keep()),
		F("lines", List("line", shapeRule(mapLineScalars)).Keep()),
		F("links", List("link", Obj(
			F("drawtype", Str()),
			F("color", Str()),
			F("label", Str()),
			F("selementid1", Str().Req()),
			F("selementid2", Str().Req()),
			F("linktriggers", List("linktrigger", Obj(
				F("drawtype", Str()),
				F("color", Str()),
				F("trigger", Obj(
					F("description", Str().Req()),
					F("expression", Str().Req()),
					F("recovery_expression", Str()),
				).Req()),
			)).SortBy("trigger/description", "trigger/expression")),
		)).SortBy("#selementid1", "#selementid2")),
	)
	return Obj(fields...)
}

func shapeRule(scalars []string) *Rule {
	r := Obj()
	for _, tag := range scalars {
		r.Fields = append(r.Fields, F(tag, Str()))
	}
	return r
}

var mapScalars = []string{
	"width", "height", "label_type", "label_location", "highlight", "expandproblem",
	"markelements", "show_unack", "severity_min", "show_suppressed", "grid_size",
	"grid_show", "grid_align", "label_format", "label_type_host", "label_type_hostgroup",
	"label_type_trigger", "label_type_map", "label_type_image", "label_string_host",
	"label_string_hostgroup", "label_string_trigger", "label_string_map",
	"label_string_image", "expand_macros",
}

var mapShapeScalars = []string{
	"type", "x", "y", "width", "height", "text", "font", "font_size", "font_color",
	"text_halign", "text_valign", "border_type", "border_width", "border_color",
	"background_color", "zindex",
}

var mapLineScalars = []string{
	"x1", "y1", "x2", "y2", "line_type", "line_width", "line_color", "zindex",
}

// MapScalars lists the opaque scalar tags of a map in document order.
func MapScalars() []string { return append([]string(nil), mapScalars...) }

// MapShapeScalars lists the tags of a map shape.
func MapShapeScalars() []string { return append([]string(nil), mapShapeScalars...) }

// MapLineScalars lists the tags of a map line.
func MapLineScalars() []string { return append([]string(nil), mapLineScalars...) }

func v50() *Rule {
	date := Str()
	date.Check = checkDate
	return Obj(F("zabbix_export", Obj(
		F("version", Str().Req()),
		F("date", date),
		F("groups", namedList("group")),
		F("templates", List("template", host(true)).SortBy("template")),
		F("hosts", List("host", host(false)).SortBy("host")),
		F("triggers", List("trigger", trigger(false)).SortBy("name", "expression", "recovery_expression")),
		F("graphs", List("graph", graph(false)).SortBy("name")),
		F("value_maps", List("value_map", valueMap()).SortBy("name")),
		F("media_types", List("media_type", mediaType()).SortBy("name")),
		F("screens", List("screen", screen()).SortBy("name")),
		F("images", List("image", image()).SortBy("name")),
		F("maps", List("map", sysmap()).SortBy("name")),
	).Req()))
}
