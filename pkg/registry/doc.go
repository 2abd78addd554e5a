// Package registry loads option schemas and their universes from a YAML
// registry document.
//
// A document is validated against an embedded JSON Schema, its version is
// checked against SupportedVersions, and the result is turned into an
// immutable queryopts.Schema. Loading happens once at startup; nothing in
// this package is consulted on the encode/decode path.
//
//	version: 1.0.0
//	universes:
//	  - name: kanaSets
//	    members:
//	      - {id: "01", key: hiragana, defaultEnabled: true}
//	options:
//	  - {key: mode, type: enum, wireCode: m, default: flip, values: [...]}
//	  - {key: enabledSets, type: set, wireCode: a, universe: kanaSets}
package registry
