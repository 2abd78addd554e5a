package activity

import (
	"strings"
	"time"
)

// Verbs emitted for query option changes.
const (
	VerbParamsUpdated = "queryopts.params.updated"
	VerbOptionChanged = "queryopts.option.changed"
	VerbOptionReset   = "queryopts.option.reset"
)

// Object types used by change events.
const (
	ObjectRoute  = "route"
	ObjectOption = "option"
)

// OptionChange records one option whose canonical wire value changed. An
// empty OldWire or NewWire with the matching Present flag unset means the
// parameter was elided because it held the default.
type OptionChange struct {
	Key        string
	WireCode   string
	OldWire    string
	NewWire    string
	OldPresent bool
	NewPresent bool
	OldValue   any
	NewValue   any
}

// Reset reports whether the change returned the option to its default.
func (c OptionChange) Reset() bool {
	return c.OldPresent && !c.NewPresent
}

// ChangeInput describes a committed parameter update.
type ChangeInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	Route      string
	SnapshotID string
	Channel    string
	Query      string
	Changes    []OptionChange
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildParamsUpdatedEvent summarises a whole commit on a route.
func BuildParamsUpdatedEvent(input ChangeInput) Event {
	metadata := baseMetadata(input)
	keys := make([]string, 0, len(input.Changes))
	for _, change := range input.Changes {
		keys = append(keys, change.Key)
	}
	metadata["changed"] = keys
	metadata["query"] = input.Query
	return Event{
		Verb:       VerbParamsUpdated,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectRoute,
		ObjectID:   routeID(input.Route),
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

// BuildOptionChangedEvents returns one event per changed option. Options that
// went back to their default use VerbOptionReset.
func BuildOptionChangedEvents(input ChangeInput) []Event {
	events := make([]Event, 0, len(input.Changes))
	for _, change := range input.Changes {
		metadata := baseMetadata(input)
		metadata["key"] = change.Key
		metadata["wire_code"] = change.WireCode
		if change.OldPresent {
			metadata["old_wire"] = change.OldWire
		}
		if change.NewPresent {
			metadata["new_wire"] = change.NewWire
		}
		if change.OldValue != nil {
			metadata["old_value"] = change.OldValue
		}
		if change.NewValue != nil {
			metadata["new_value"] = change.NewValue
		}
		verb := VerbOptionChanged
		if change.Reset() {
			verb = VerbOptionReset
		}
		events = append(events, Event{
			Verb:       verb,
			ActorID:    strings.TrimSpace(input.ActorID),
			UserID:     strings.TrimSpace(input.UserID),
			TenantID:   strings.TrimSpace(input.TenantID),
			ObjectType: ObjectOption,
			ObjectID:   routeID(input.Route) + "#" + change.Key,
			Channel:    strings.TrimSpace(input.Channel),
			Metadata:   metadata,
			OccurredAt: input.OccurredAt,
		})
	}
	return events
}

func baseMetadata(input ChangeInput) map[string]any {
	metadata := cloneMap(input.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["route"] = routeID(input.Route)
	if input.SnapshotID != "" {
		metadata["snapshot_id"] = input.SnapshotID
	}
	return metadata
}

func routeID(route string) string {
	route = strings.TrimSpace(route)
	if route == "" {
		return "/"
	}
	return route
}
