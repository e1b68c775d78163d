package model

import "strconv"

// ItemType is the internal item type.
type ItemType int

const (
	ItemZabbixPassive ItemType = 0
	ItemSNMPv1        ItemType = 1
	ItemTrap          ItemType = 2
	ItemSimple        ItemType = 3
	ItemSNMPv2        ItemType = 4
	ItemInternal      ItemType = 5
	ItemSNMPv3        ItemType = 6
	ItemZabbixActive  ItemType = 7
	ItemAggregate     ItemType = 8
	ItemHTTPTest      ItemType = 9
	ItemExternal      ItemType = 10
	ItemDBMonitor     ItemType = 11
	ItemIPMI          ItemType = 12
	ItemSSH           ItemType = 13
	ItemTelnet        ItemType = 14
	ItemCalculated    ItemType = 15
	ItemJMX           ItemType = 16
	ItemSNMPTrap      ItemType = 17
	ItemDependent     ItemType = 18
	ItemHTTPAgent     ItemType = 19
	ItemSNMP          ItemType = 20
)

// ExportedItemTypes lists the item types a current document may carry, in
// constant order.
var ExportedItemTypes = []ItemType{
	ItemZabbixPassive, ItemTrap, ItemSimple, ItemInternal, ItemZabbixActive,
	ItemAggregate, ItemExternal, ItemDBMonitor, ItemIPMI, ItemSSH, ItemTelnet,
	ItemCalculated, ItemJMX, ItemSNMPTrap, ItemDependent, ItemHTTPAgent, ItemSNMP,
}

// String returns the portable constant name of the type.
func (t ItemType) String() string {
	switch t {
	case ItemZabbixPassive:
		return "ZABBIX_PASSIVE"
	case ItemSNMPv1:
		return "SNMPV1"
	case ItemTrap:
		return "TRAP"
	case ItemSimple:
		return "SIMPLE"
	case ItemSNMPv2:
		return "SNMPV2"
	case ItemInternal:
		return "INTERNAL"
	case ItemSNMPv3:
		return "SNMPV3"
	case ItemZabbixActive:
		return "ZABBIX_ACTIVE"
	case ItemAggregate:
		return "AGGREGATE"
	case ItemHTTPTest:
		return "HTTPTEST"
	case ItemExternal:
		return "EXTERNAL"
	case ItemDBMonitor:
		return "ODBC"
	case ItemIPMI:
		return "IPMI"
	case ItemSSH:
		return "SSH"
	case ItemTelnet:
		return "TELNET"
	case ItemCalculated:
		return "CALCULATED"
	case ItemJMX:
		return "JMX"
	case ItemSNMPTrap:
		return "SNMP_TRAP"
	case ItemDependent:
		return "DEPENDENT"
	case ItemHTTPAgent:
		return "HTTP_AGENT"
	case ItemSNMP:
		return "SNMP_AGENT"
	}
	return "UNKNOWN(" + strconv.Itoa(int(t)) + ")"
}

// Value returns the internal value as it appears in documents.
func (t ItemType) Value() string { return strconv.Itoa(int(t)) }

// IsLegacySNMP reports whether the type is one of the pre-5.0 SNMP types.
func (t ItemType) IsLegacySNMP() bool {
	switch t {
	case ItemSNMPv1, ItemSNMPv2, ItemSNMPv3:
		return true
	}
	return false
}

// Flags marks how an entity came to exist.
type Flags int

const (
	FlagNormal        Flags = 0
	FlagDiscoveryRule Flags = 1
	FlagPrototype     Flags = 2
	FlagDiscovered    Flags = 4
)

func (f Flags) String() string {
	switch f {
	case FlagNormal:
		return "normal"
	case FlagDiscoveryRule:
		return "discovery_rule"
	case FlagPrototype:
		return "prototype"
	case FlagDiscovered:
		return "discovered"
	}
	return "flags(" + strconv.Itoa(int(f)) + ")"
}

// InterfaceType is the host interface type.
type InterfaceType int

const (
	InterfaceAgent InterfaceType = 1
	InterfaceSNMP  InterfaceType = 2
	InterfaceIPMI  InterfaceType = 3
	InterfaceJMX   InterfaceType = 4
)

func (t InterfaceType) String() string {
	switch t {
	case InterfaceAgent:
		return "ZABBIX"
	case InterfaceSNMP:
		return "SNMP"
	case InterfaceIPMI:
		return "IPMI"
	case InterfaceJMX:
		return "JMX"
	}
	return "UNKNOWN(" + strconv.Itoa(int(t)) + ")"
}

// ScreenResourceType selects what a screen cell displays.
type ScreenResourceType int

const (
	ScreenGraph             ScreenResourceType = 0
	ScreenSimpleGraph       ScreenResourceType = 1
	ScreenMap               ScreenResourceType = 2
	ScreenPlainText         ScreenResourceType = 3
	ScreenHostInfo          ScreenResourceType = 4
	ScreenTriggerInfo       ScreenResourceType = 5
	ScreenServerInfo        ScreenResourceType = 6
	ScreenClock             ScreenResourceType = 7
	ScreenScreen            ScreenResourceType = 8
	ScreenTriggerOverview   ScreenResourceType = 9
	ScreenDataOverview      ScreenResourceType = 10
	ScreenURL               ScreenResourceType = 11
	ScreenActions           ScreenResourceType = 12
	ScreenEvents            ScreenResourceType = 13
	ScreenHostgroupTriggers ScreenResourceType = 14
	ScreenSystemStatus      ScreenResourceType = 15
	ScreenHostTriggers      ScreenResourceType = 16
	ScreenHistory           ScreenResourceType = 17
	ScreenChart             ScreenResourceType = 18
	ScreenLLDSimpleGraph    ScreenResourceType = 19
	ScreenLLDGraph          ScreenResourceType = 20
)

// ResourceKind names the entity kind a screen resource type points at, or ""
// for resource types that reference nothing.
func (t ScreenResourceType) ResourceKind() Kind {
	switch t {
	case ScreenGraph:
		return KindGraph
	case ScreenSimpleGraph, ScreenPlainText:
		return KindItem
	case ScreenMap:
		return KindMap
	case ScreenScreen:
		return KindScreen
	case ScreenHostInfo, ScreenTriggerInfo, ScreenTriggerOverview, ScreenDataOverview, ScreenHostgroupTriggers:
		return KindGroup
	case ScreenHostTriggers:
		return KindHost
	case ScreenLLDGraph:
		return KindGraphPrototype
	case ScreenLLDSimpleGraph:
		return KindItemPrototype
	case ScreenServerInfo, ScreenClock, ScreenURL, ScreenActions, ScreenEvents,
		ScreenSystemStatus, ScreenHistory, ScreenChart:
		return ""
	}
	return ""
}

// MapElementType is the type of a map element.
type MapElementType int

const (
	MapElementHost      MapElementType = 0
	MapElementMap       MapElementType = 1
	MapElementTrigger   MapElementType = 2
	MapElementHostGroup MapElementType = 3
	MapElementImage     MapElementType = 4
)

// ResourceKind names the entity kind the element points at.
func (t MapElementType) ResourceKind() Kind {
	switch t {
	case MapElementHost:
		return KindHost
	case MapElementMap:
		return KindMap
	case MapElementTrigger:
		return KindTrigger
	case MapElementHostGroup:
		return KindGroup
	case MapElementImage:
		return ""
	}
	return ""
}

// MediaTypeKind is the delivery method of a media type.
type MediaTypeKind int

const (
	MediaEmail   MediaTypeKind = 0
	MediaScript  MediaTypeKind = 1
	MediaSMS     MediaTypeKind = 2
	MediaWebhook MediaTypeKind = 4
)

func (k MediaTypeKind) String() string {
	switch k {
	case MediaEmail:
		return "EMAIL"
	case MediaScript:
		return "SCRIPT"
	case MediaSMS:
		return "SMS"
	case MediaWebhook:
		return "WEBHOOK"
	}
	return "UNKNOWN(" + strconv.Itoa(int(k)) + ")"
}
