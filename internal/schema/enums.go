package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AaronLay10/zbxport/internal/model"
	"github.com/AaronLay10/zbxport/internal/tree"
)

var (
	enumStatus    = E("0", "ENABLED", "1", "DISABLED")
	enumNoYes     = E("0", "NO", "1", "YES")
	enumDiscover  = E("0", "DISCOVER", "1", "NO_DISCOVER")
	enumValueType = E("0", "FLOAT", "1", "CHAR", "2", "LOG", "3", "UNSIGNED", "4", "TEXT")

	enumIPMIAuthType = E(
		"-1", "DEFAULT", "0", "NONE", "1", "MD2", "2", "MD5",
		"4", "STRAIGHT", "5", "OEM", "6", "RMCP_PLUS",
	)
	enumIPMIPrivilege = E("1", "CALLBACK", "2", "USER", "3", "OPERATOR", "4", "ADMIN", "5", "OEM")
	enumTLSConnect    = E("1", "NO_ENCRYPTION", "2", "TLS_PSK", "4", "TLS_CERTIFICATE")
	enumInventoryMode = E("-1", "DISABLED", "0", "MANUAL", "1", "AUTOMATIC")

	enumInterfaceType = E("1", "ZABBIX", "2", "SNMP", "3", "IPMI", "4", "JMX")
	enumSNMPVersion   = E("1", "SNMPV1", "2", "SNMPV2", "3", "SNMPV3")
	enumSNMPSecLevel  = E("0", "NOAUTHNOPRIV", "1", "AUTHNOPRIV", "2", "AUTHPRIV")
	enumSNMPAuthProto = E("0", "MD5", "1", "SHA")
	enumSNMPPrivProto = E("0", "DES", "1", "AES")

	enumHTTPAuthType = E("0", "NONE", "1", "BASIC", "2", "NTLM", "3", "KERBEROS")
	enumSSHAuthType  = E("0", "PASSWORD", "1", "PUBLIC_KEY")
	enumPostType     = E("0", "RAW", "2", "JSON", "3", "XML")
	enumRetrieveMode = E("0", "BODY", "1", "HEADERS", "2", "BOTH")
	enumMethod       = E("0", "GET", "1", "POST", "2", "PUT", "3", "HEAD")
	enumOutputFormat = E("0", "RAW", "1", "JSON")

	enumPreprocessing = E(
		"1", "MULTIPLIER", "2", "RTRIM", "3", "LTRIM", "4", "TRIM", "5", "REGEX",
		"6", "BOOL_TO_DECIMAL", "7", "OCTAL_TO_DECIMAL", "8", "HEX_TO_DECIMAL",
		"9", "SIMPLE_CHANGE", "10", "CHANGE_PER_SECOND", "11", "XMLPATH", "12", "JSONPATH",
		"13", "IN_RANGE", "14", "MATCHES_REGEX", "15", "NOT_MATCHES_REGEX",
		"16", "CHECK_JSON_ERROR", "17", "CHECK_XML_ERROR", "18", "CHECK_REGEX_ERROR",
		"19", "DISCARD_UNCHANGED", "20", "DISCARD_UNCHANGED_HEARTBEAT", "21", "JAVASCRIPT",
		"22", "PROMETHEUS_PATTERN", "23", "PROMETHEUS_TO_JSON", "24", "CSV_TO_JSON",
		"25", "STR_REPLACE", "26", "CHECK_NOT_SUPPORTED",
	)
	enumErrorHandler = E("0", "ORIGINAL_ERROR", "1", "DISCARD_VALUE", "2", "CUSTOM_VALUE", "3", "CUSTOM_ERROR")

	enumEvalType  = E("0", "AND_OR", "1", "AND", "2", "OR", "3", "FORMULA")
	enumCondition = E("8", "MATCHES_REGEX", "9", "NOT_MATCHES_REGEX")

	enumRecoveryMode    = E("0", "EXPRESSION", "1", "RECOVERY_EXPRESSION", "2", "NONE")
	enumCorrelationMode = E("0", "DISABLED", "1", "TAG_VALUE")
	enumPriority        = E(
		"0", "NOT_CLASSIFIED", "1", "INFO", "2", "WARNING",
		"3", "AVERAGE", "4", "HIGH", "5", "DISASTER",
	)
	enumTriggerType = E("0", "SINGLE", "1", "MULTIPLE")

	enumGraphType = E("0", "NORMAL", "1", "STACKED", "2", "PIE", "3", "EXPLODED")
	enumYAxisType = E("0", "CALCULATED", "1", "FIXED", "2", "ITEM")
	enumDrawType  = E(
		"0", "SINGLE_LINE", "1", "FILLED_REGION", "2", "BOLD_LINE",
		"3", "DOTTED_LINE", "4", "DASHED_LINE", "5", "GRADIENT_LINE",
	)
	enumYAxisSide = E("0", "LEFT", "1", "RIGHT")
	enumCalcFnc   = E("1", "MIN", "2", "AVG", "4", "MAX", "7", "ALL", "9", "LAST")
	enumGraphItem = E("0", "SIMPLE", "2", "GRAPH_SUM")

	enumWebAuth = E("0", "NONE", "1", "BASIC", "2", "NTLM", "3", "KERBEROS")

	enumSMTPSecurity = E("0", "NONE", "1", "STARTTLS", "2", "SSL_OR_TLS")
	enumSMTPAuth     = E("0", "NONE", "1", "PASSWORD")
	enumContentType  = E("0", "TEXT", "1", "HTML")
	enumEventSource  = E("0", "TRIGGERS", "1", "DISCOVERY", "2", "AUTOREGISTRATION", "3", "INTERNAL")
	enumOperation    = E("0", "PROBLEM", "1", "RECOVERY", "2", "UPDATE")
)

func itemTypeEnum() Enum {
	e := make(Enum, 0, len(model.ExportedItemTypes))
	for _, t := range model.ExportedItemTypes {
		e = append(e, Constant{Value: t.Value(), Name: t.String()})
	}
	return e
}

func mediaTypeEnum() Enum {
	var e Enum
	for _, k := range []model.MediaTypeKind{model.MediaEmail, model.MediaScript, model.MediaSMS, model.MediaWebhook} {
		e = append(e, Constant{Value: strconv.Itoa(int(k)), Name: k.String()})
	}
	return e
}

// inventoryLinkEnum maps 0 to NONE and every inventory field to its
// upper-cased name, numbered from 1.
func inventoryLinkEnum() Enum {
	e := Enum{{Value: "0", Name: "NONE"}}
	for i, f := range model.InventoryFields {
		e = append(e, Constant{Value: strconv.Itoa(i + 1), Name: strings.ToUpper(f)})
	}
	return e
}

// tlsAccept lists the bits of the tls_accept bitmask in export order.
var tlsAccept = E("1", "NO_ENCRYPTION", "2", "TLS_PSK", "4", "TLS_CERTIFICATE")

// exportTLSAccept turns the internal bitmask into a list of constant names.
func exportTLSAccept(value, _ *tree.Node) (*tree.Node, error) {
	mask, err := strconv.Atoi(value.Value())
	if err != nil || mask < 1 || mask > 7 {
		return nil, fmt.Errorf("invalid tls_accept bitmask %q", value.Value())
	}
	out := tree.NewArray()
	for _, c := range tlsAccept {
		bit, _ := strconv.Atoi(c.Value)
		if mask&bit != 0 {
			out.Append(tree.Scalar(c.Name))
		}
	}
	return out, nil
}

// importTLSAccept folds a list of constant names back into the bitmask.
func importTLSAccept(value, _ *tree.Node) (*tree.Node, error) {
	if value.IsScalar() {
		return value, nil
	}
	mask := 0
	for _, it := range value.Items() {
		v, ok := tlsAccept.Value(it.Value())
		if !ok {
			return nil, fmt.Errorf("unexpected tls_accept constant %q", it.Value())
		}
		bit, _ := strconv.Atoi(v)
		mask |= bit
	}
	if mask == 0 {
		mask = 1
	}
	return tree.Scalar(strconv.Itoa(mask)), nil
}

// hasType reports whether record's type tag holds the item type either as an
// internal value or as its constant name.
func hasType(record *tree.Node, t model.ItemType) bool {
	v := record.String("type")
	return v == t.Value() || v == t.String()
}

func selectAuthType(record, _ *tree.Node) string {
	if hasType(record, model.ItemHTTPAgent) {
		return "http"
	}
	return ""
}

func selectMediaParameters(record, _ *tree.Node) string {
	v := record.String("type")
	if v == "4" || v == model.MediaWebhook.String() {
		return "webhook"
	}
	return ""
}
