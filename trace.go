package queryopts

import (
	"encoding/json"
)

// Source records where a decoded option value came from.
type Source string

const (
	// SourceParam means the value was decoded from its query parameter.
	SourceParam Source = "param"
	// SourceDefault means the parameter was absent.
	SourceDefault Source = "default"
	// SourceFallback means the parameter was present but unusable, so the
	// schema default was substituted.
	SourceFallback Source = "fallback"
	// SourceCoerced means the parameter was not a canonical wire value but
	// still produced a value (a boolean other than "1" or "0").
	SourceCoerced Source = "coerced"
)

// Trace captures provenance for every option decoded from a Params map.
type Trace struct {
	Options []Provenance `json:"options"`
	// Unknown lists parameter names that match no registered option, sorted.
	Unknown []string `json:"unknown,omitempty"`
}

// Provenance details how one option obtained its decoded value.
type Provenance struct {
	Key      string `json:"key"`
	WireCode string `json:"wire_code"`
	Raw      string `json:"raw,omitempty"`
	Present  bool   `json:"present"`
	Source   Source `json:"source"`
	// Dropped lists set ids that were discarded as unknown.
	Dropped []string `json:"dropped,omitempty"`
	Value   any      `json:"value,omitempty"`
}

// Degraded reports whether decoding had to discard or replace input.
func (p Provenance) Degraded() bool {
	return p.Source == SourceFallback || p.Source == SourceCoerced || len(p.Dropped) > 0
}

// Lookup returns the provenance recorded for key.
func (t Trace) Lookup(key string) (Provenance, bool) {
	for _, entry := range t.Options {
		if entry.Key == key {
			return entry, true
		}
	}
	return Provenance{}, false
}

// Degraded returns the entries whose input was discarded or replaced.
func (t Trace) Degraded() []Provenance {
	var out []Provenance
	for _, entry := range t.Options {
		if entry.Degraded() {
			out = append(out, entry)
		}
	}
	return out
}

// Clean reports whether every parameter was recognised and decoded as-is.
func (t Trace) Clean() bool {
	return len(t.Unknown) == 0 && len(t.Degraded()) == 0
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
