package cli

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// BuildInfo is injected by the binary at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

type app struct {
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer
	build  BuildInfo
}

// NewRootCommand builds the queryopts command tree. Each call has its own
// configuration so commands can be executed repeatedly in tests.
func NewRootCommand(build BuildInfo) *cobra.Command {
	a := &app{v: newViper(), build: build}
	var configFile string

	root := &cobra.Command{
		Use:   "queryopts",
		Short: "Encode and decode option query strings",
		Long: `queryopts maps option state to compact URL query strings and back using a
registry document. Without --registry the embedded flashcards registry is used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			a.errOut = cmd.ErrOrStderr()
			return loadConfigFile(a.v, configFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")
	flags.String(keyRegistry, "", "Registry document (env QUERYOPTS_REGISTRY)")
	flags.StringP(keyOutput, "o", "json", "Output format: json or yaml")
	flags.String(keyEngine, "expr", "Rule engine: expr, cel or js")
	flags.BoolP(keyVerbose, "v", false, "Log decode fallbacks and rule evaluations")
	for _, key := range []string{keyRegistry, keyOutput, keyEngine, keyVerbose} {
		_ = a.v.BindPFlag(key, flags.Lookup(key))
	}

	root.AddCommand(
		a.decodeCommand(),
		a.encodeCommand(),
		a.normalizeCommand(),
		a.schemaCommand(),
		a.validateCommand(),
		a.visibleCommand(),
		a.versionCommand(),
	)
	return root
}

// Execute runs the root command against os.Args.
func Execute(build BuildInfo) error {
	return NewRootCommand(build).Execute()
}
