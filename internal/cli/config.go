package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	queryopts "github.com/goliatone/go-queryopts"
	"github.com/goliatone/go-queryopts/flashcards"
	"github.com/goliatone/go-queryopts/pkg/registry"
)

// EnvPrefix prefixes every environment override, e.g. QUERYOPTS_REGISTRY.
const EnvPrefix = "QUERYOPTS"

// Config keys.
const (
	keyRegistry = "registry"
	keyOutput   = "output"
	keyEngine   = "engine"
	keyVerbose  = "verbose"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault(keyOutput, "json")
	v.SetDefault(keyEngine, "expr")
	return v
}

// loadConfigFile reads an optional config file. A missing explicit file is an
// error; no file at all is not.
func loadConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	return nil
}

func (a *app) loadRegistry() (*registry.Registry, error) {
	path := a.v.GetString(keyRegistry)
	if path == "" {
		return flashcards.Registry()
	}
	return registry.LoadFile(path)
}

func (a *app) codec() (*queryopts.Codec, error) {
	reg, err := a.loadRegistry()
	if err != nil {
		return nil, err
	}
	return a.codecFor(reg)
}

// codecFor builds a codec over reg with the configured rule engine.
func (a *app) codecFor(reg *registry.Registry) (*queryopts.Codec, error) {
	opts := []queryopts.Option{
		queryopts.WithEvaluatorLogger(queryopts.SlogEvaluatorLogger(a.logger())),
	}
	switch engine := a.v.GetString(keyEngine); engine {
	case "", "expr":
	case "cel":
		opts = append(opts, queryopts.WithEvaluator(queryopts.NewCELEvaluator(
			queryopts.CELWithFunctionRegistry(queryopts.NewSelectionFunctions()),
		)))
	case "js":
		if !queryopts.JSEvaluatorAvailable() {
			return nil, fmt.Errorf("engine js requires a build with -tags js_eval")
		}
		opts = append(opts, queryopts.WithEvaluator(queryopts.NewJSEvaluator(
			queryopts.JSWithFunctionRegistry(queryopts.NewSelectionFunctions()),
		)))
	default:
		return nil, fmt.Errorf("unknown engine %q (want expr, cel or js)", engine)
	}
	return reg.Codec(opts...)
}

func (a *app) logger() *slog.Logger {
	level := slog.LevelWarn
	if a.v.GetBool(keyVerbose) {
		level = slog.LevelDebug
	}
	errOut := a.errOut
	if errOut == nil {
		errOut = os.Stderr
	}
	return slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))
}
