// Package flashcards holds the option registry of the flashcard practice
// screen and a typed view of its state.
package flashcards

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	queryopts "github.com/goliatone/go-queryopts"
	"github.com/goliatone/go-queryopts/pkg/registry"
)

//go:embed data/registry.yaml
var registryYAML []byte

// Option keys.
const (
	KeyMode        = "mode"
	KeyEnabledSets = "enabledSets"
	KeyReverse     = "reverse"
	KeyShowHints   = "showHints"
)

// UniverseKanaSets names the universe backing KeyEnabledSets.
const UniverseKanaSets = "kanaSets"

// Practice modes.
const (
	ModeFlip   = "flip"
	ModeTyping = "typing"
	ModeChoice = "choice"
)

// ErrNoCards is returned by Validate when every set is disabled.
var ErrNoCards = errors.New("flashcards: at least one set must be enabled")

var (
	loadOnce sync.Once
	loaded   *registry.Registry
	loadErr  error
)

// RegistryYAML returns a copy of the embedded registry document.
func RegistryYAML() []byte {
	return append([]byte(nil), registryYAML...)
}

// Registry parses the embedded registry once and returns it.
func Registry() (*registry.Registry, error) {
	loadOnce.Do(func() {
		loaded, loadErr = registry.Load(registryYAML)
		if loadErr != nil {
			loadErr = fmt.Errorf("flashcards: %w", loadErr)
		}
	})
	return loaded, loadErr
}

// NewCodec returns a codec over the embedded registry.
func NewCodec(opts ...queryopts.Option) (*queryopts.Codec, error) {
	reg, err := Registry()
	if err != nil {
		return nil, err
	}
	return reg.Codec(opts...)
}

// Settings is the typed view of the practice options.
type Settings struct {
	Mode        string          `json:"mode"`
	EnabledSets map[string]bool `json:"enabledSets"`
	Reverse     bool            `json:"reverse"`
	ShowHints   bool            `json:"showHints"`
}

// Validate rejects settings that cannot produce a deck. Decoding never yields
// an invalid mode, so only the selection is checked.
func (s Settings) Validate() error {
	for _, enabled := range s.EnabledSets {
		if enabled {
			return nil
		}
	}
	return ErrNoCards
}

// SettingsFrom binds state onto Settings.
func SettingsFrom(state queryopts.State) (Settings, error) {
	return queryopts.Bind[Settings](state, queryopts.BindRoute("flashcards"))
}

// State converts s back into an option state.
func (s Settings) State() (queryopts.State, error) {
	return queryopts.StateOf(s)
}

// EnabledSetKeys lists the keys of enabled sets in registry order.
func (s Settings) EnabledSetKeys() []string {
	reg, err := Registry()
	if err != nil {
		return nil
	}
	universe, ok := reg.Universe(UniverseKanaSets)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(s.EnabledSets))
	for _, key := range universe.Keys() {
		if s.EnabledSets[key] {
			keys = append(keys, key)
		}
	}
	return keys
}
