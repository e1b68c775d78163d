package schema

import (
	"slices"
	"sync"
)

// CurrentVersion is the version written on export.
const CurrentVersion = "5.0"

var versions = []string{"2.0", "3.0", "3.2", "3.4", "4.0", "4.2", "4.4", "5.0"}

var (
	buildOnce sync.Once
	rules     map[string]*Rule
)

func load() {
	buildOnce.Do(func() {
		rules = make(map[string]*Rule, len(versions))
		cur := v50()
		rules[CurrentVersion] = cur
		// Walk backwards: every historical tree is derived from its successor.
		for i := len(versions) - 2; i >= 0; i-- {
			next := rules[versions[i+1]]
			rules[versions[i]] = derive(versions[i], next.Clone())
		}
	})
}

// Versions lists the supported versions in ascending order.
func Versions() []string {
	return append([]string(nil), versions...)
}

// Supported reports whether version has a schema.
func Supported(version string) bool {
	return slices.Contains(versions, version)
}

// Get returns a copy of the root rule of version.
func Get(version string) (*Rule, error) {
	if !Supported(version) {
		return nil, &UnsupportedVersionError{Version: version}
	}
	load()
	return rules[version].Clone(), nil
}

// Current returns a copy of the root rule of CurrentVersion.
func Current() *Rule {
	r, _ := Get(CurrentVersion)
	return r
}

// Body returns the rule of the zabbix_export object below root.
func Body(root *Rule) *Rule {
	return root.Field(exportRoot)
}
