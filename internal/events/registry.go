package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// export
	"export.started":   {},
	"export.completed": {},
	"export.failed":    {},

	// import
	"import.started":   {},
	"import.converted": {},
	"import.completed": {},
	"import.failed":    {},

	// store
	"store.seeded": {},
	"store.error":  {},

	// api
	"api.request": {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

// Validate reports whether event is a known event name.
func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
