package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	queryopts "github.com/goliatone/go-queryopts"
	"github.com/goliatone/go-queryopts/flashcards"
	"github.com/goliatone/go-queryopts/pkg/registry"
	"github.com/goliatone/go-queryopts/schema/openapi"
)

func (a *app) decodeCommand() *cobra.Command {
	var withTrace bool
	cmd := &cobra.Command{
		Use:   "decode [query]",
		Short: "Decode a query string into option state",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			codec, err := a.codec()
			if err != nil {
				return err
			}
			state, trace := codec.DeserializeWithTrace(queryopts.ParseQuery(firstArg(args)))
			a.logTrace(trace)
			if !withTrace {
				return a.print(printableState(codec, state))
			}
			return a.print(map[string]any{
				"state": printableState(codec, state),
				"trace": trace,
			})
		},
	}
	cmd.Flags().BoolVar(&withTrace, "trace", false, "Include per-option provenance")
	return cmd
}

func (a *app) encodeCommand() *cobra.Command {
	var (
		from string
		sets []string
	)
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Apply option values and print the canonical query string",
		Example: `  queryopts encode --set mode=typing --set enabledSets=hiragana,katakana
  queryopts encode --from 'm=t' --set reverse=true`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			codec, err := a.codec()
			if err != nil {
				return err
			}
			patch, err := parseAssignments(codec.Schema(), sets)
			if err != nil {
				return err
			}
			params := codec.Update(queryopts.ParseQuery(from), patch)
			_, err = fmt.Fprintln(a.out, params.Encode())
			return err
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Query string to start from")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Assignment key=value; sets take a comma separated list of member keys")
	return cmd
}

func (a *app) normalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [query]",
		Short: "Rewrite a query string into its canonical minimal form",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			codec, err := a.codec()
			if err != nil {
				return err
			}
			_, trace := codec.DeserializeWithTrace(queryopts.ParseQuery(firstArg(args)))
			a.logTrace(trace)
			_, err = fmt.Fprintln(a.out, codec.Normalize(queryopts.ParseQuery(firstArg(args))).Encode())
			return err
		},
	}
}

func (a *app) schemaCommand() *cobra.Command {
	var (
		format string
		path   string
	)
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the option schema",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			reg, err := a.loadRegistry()
			if err != nil {
				return err
			}
			var generator queryopts.SchemaGenerator
			switch format {
			case string(queryopts.SchemaFormatDescriptors):
				generator = queryopts.DefaultSchemaGenerator()
			case string(queryopts.SchemaFormatOpenAPI):
				generator = openapi.NewGenerator(openapi.WithOperation(path, "", ""))
			default:
				return fmt.Errorf("unknown schema format %q (want descriptors or openapi)", format)
			}
			codec, err := reg.Codec(queryopts.WithSchemaGenerator(generator))
			if err != nil {
				return err
			}
			doc, err := codec.SchemaDocument()
			if err != nil {
				return err
			}
			return a.print(doc.Document)
		},
	}
	cmd.Flags().StringVar(&format, "format", string(queryopts.SchemaFormatDescriptors), "descriptors or openapi")
	cmd.Flags().StringVar(&path, "path", "/", "Route path used in the openapi document")
	return cmd
}

func (a *app) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a registry document",
		Long:  "Validate a registry document against the registry JSON Schema and build it. Defaults to --registry, then the embedded registry.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := firstArg(args)
			if path == "" {
				path = a.v.GetString(keyRegistry)
			}
			data := flashcards.RegistryYAML()
			if path != "" {
				raw, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}
				data = raw
			}
			result, err := registry.Validate(data)
			if err != nil {
				return err
			}
			if !result.Valid {
				for _, issue := range result.Issues {
					fmt.Fprintf(a.out, "  %s\n", issue)
				}
				return errors.New(result.Error())
			}
			reg, err := registry.Load(data)
			if err != nil {
				return err
			}
			codec, err := a.codecFor(reg)
			if err != nil {
				return err
			}
			if err := codec.CompileRules(); err != nil {
				for _, ruleErr := range queryopts.EvaluationErrors(err) {
					fmt.Fprintf(a.out, "  rule %s: %v\n", ruleErr.Option, ruleErr.Err)
				}
				return fmt.Errorf("registry: visibility rules do not compile: %w", err)
			}
			_, err = fmt.Fprintf(a.out, "ok: %d options, %d universes, version %s\n",
				reg.Schema.Len(), len(reg.Universes), reg.Version)
			return err
		},
	}
}

func (a *app) visibleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "visible [query]",
		Short: "List the options whose visibility rules pass for a query string",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			codec, err := a.codec()
			if err != nil {
				return err
			}
			keys, err := codec.VisibleKeys(codec.Deserialize(queryopts.ParseQuery(firstArg(args))))
			if err != nil {
				return err
			}
			return a.print(keys)
		},
	}
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			version := a.build.Version
			if version == "" {
				version = "dev"
			}
			_, err := fmt.Fprintf(a.out, "queryopts %s (%s, %s)\n", version, a.build.Commit, a.build.Date)
			return err
		},
	}
}

func (a *app) logTrace(trace queryopts.Trace) {
	logger := a.logger()
	for _, entry := range trace.Degraded() {
		logger.Warn("query value replaced",
			slog.String("key", entry.Key),
			slog.String("raw", entry.Raw),
			slog.String("source", string(entry.Source)),
			slog.Any("dropped", entry.Dropped),
		)
	}
	if len(trace.Unknown) > 0 {
		logger.Debug("unknown query parameters ignored", slog.Any("params", trace.Unknown))
	}
}

// printableState lists set options as enabled member keys in universe order.
func printableState(codec *queryopts.Codec, state queryopts.State) map[string]any {
	out := make(map[string]any, len(state))
	for _, def := range codec.Schema().Definitions() {
		value := state[def.Key]
		if def.Type == queryopts.TypeSet {
			enabled := []string{}
			selection := state.Set(def.Key)
			for _, key := range def.Universe.Keys() {
				if selection[key] {
					enabled = append(enabled, key)
				}
			}
			value = enabled
		}
		out[def.Key] = value
	}
	return out
}

// parseAssignments turns key=value flags into a state patch. Set values list
// the member keys to enable; every other member is disabled.
func parseAssignments(schema *queryopts.Schema, assignments []string) (queryopts.State, error) {
	patch := queryopts.State{}
	for _, assignment := range assignments {
		key, raw, ok := strings.Cut(assignment, "=")
		if !ok {
			return nil, fmt.Errorf("invalid assignment %q (want key=value)", assignment)
		}
		def, found := schema.ByKey(strings.TrimSpace(key))
		if !found {
			return nil, fmt.Errorf("%w: %s", queryopts.ErrUnknownOption, key)
		}
		switch def.Type {
		case queryopts.TypeEnum:
			if _, ok := def.EnumValueByName(raw); !ok {
				return nil, fmt.Errorf("%s: unknown value %q", def.Key, raw)
			}
			patch[def.Key] = raw
		case queryopts.TypeBoolean:
			on, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", def.Key, err)
			}
			patch[def.Key] = on
		case queryopts.TypeSet:
			selection := def.Universe.EmptySelection()
			for _, member := range strings.Split(raw, ",") {
				member = strings.TrimSpace(member)
				if member == "" {
					continue
				}
				if _, ok := selection[member]; !ok {
					return nil, fmt.Errorf("%s: unknown member %q", def.Key, member)
				}
				selection[member] = true
			}
			patch[def.Key] = selection
		}
	}
	return patch, nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
