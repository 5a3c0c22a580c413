package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chis/kbcatalog/internal/bootstrap"
	"github.com/chis/kbcatalog/internal/client"
	"github.com/chis/kbcatalog/internal/config"
	"github.com/chis/kbcatalog/internal/logging"
	"github.com/chis/kbcatalog/internal/output"
)

// app carries state shared by every command of one invocation.
type app struct {
	v          *viper.Viper
	cfg        *config.Config
	configFile string
	jsonOut    bool
	styles     styles

	// runServer serves the catalog once serve has resolved its config
	runServer func(ctx context.Context, cfg *config.Config) error
}

// commandFlags maps subcommand-local flags to config keys. Several
// subcommands declare the same flag, so each is bound only for the command
// being executed.
var commandFlags = map[string]string{
	"manifest":       config.KeyManifestPath,
	"port":           config.KeyPort,
	"static-dir":     config.KeyStaticDir,
	"watch":          config.KeyWatch,
	"watch-debounce": config.KeyWatchDebounce,
}

func newApp() *app {
	return &app{v: config.NewViper(), styles: newStyles(), runServer: serveCatalog}
}

func newRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kbcatalog",
		Short: "Script knowledge-base catalog",
		Long: `kbcatalog seeds, serves and queries a catalog of administrative scripts,
each carrying a knowledge article that moves through a KCS lifecycle.

Query commands read the local SQLite catalog, or a running API when
--server (or KBCATALOG_SERVER) is set.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.bindCommandFlags(cmd); err != nil {
				return err
			}
			cfg, err := config.Load(a.v, a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logging.Configure(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default ./kbcatalog.yaml or /etc/kbcatalog/kbcatalog.yaml)")
	flags.String("db", "", "path to the SQLite catalog")
	flags.String("server", "", "base URL of a kbcatalog API to query instead of the local catalog")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.BoolVar(&a.jsonOut, "json", false, "write results as JSON")

	// Flags override the config file and environment only when set
	_ = a.v.BindPFlag(config.KeyDBPath, flags.Lookup("db"))
	_ = a.v.BindPFlag(config.KeyServer, flags.Lookup("server"))
	_ = a.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))

	root.AddCommand(
		newSeedCmd(a),
		newServeCmd(a),
		newSearchCmd(a),
		newShowCmd(a),
		newCategoriesCmd(a),
		newStatsCmd(a),
		newRDFCmd(a),
		newTransitionCmd(a),
		newContributeCmd(a),
		newComponentsCmd(a),
		newMCPCmd(a),
		newValidateCmd(a),
		newVersionCmd(a),
	)
	return root
}

// bindCommandFlags binds the local flags of the executing command.
func (a *app) bindCommandFlags(cmd *cobra.Command) error {
	for name, key := range commandFlags {
		f := cmd.LocalFlags().Lookup(name)
		if f == nil {
			continue
		}
		if err := a.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

// openCatalog returns the remote API client when a server is configured,
// the local store otherwise. The returned func releases it.
func (a *app) openCatalog(ctx context.Context, withDocker bool) (catalog, func(), error) {
	if a.cfg.Remote() {
		c, err := client.New(a.cfg.Server)
		if err != nil {
			return nil, nil, err
		}
		return remoteCatalog{c}, func() {}, nil
	}

	deps, cleanup, err := bootstrap.InitializeServices(ctx, bootstrap.InitOptions{
		Config:     a.cfg,
		WithDocker: withDocker,
	})
	if err != nil {
		return nil, nil, err
	}
	return &localCatalog{deps: deps}, cleanup, nil
}

// emit writes v as JSON when --json is set, otherwise calls human.
func (a *app) emit(w io.Writer, v any, human func() string) error {
	if a.jsonOut {
		return output.WriteJSONData(w, v)
	}
	_, err := fmt.Fprintln(w, human())
	return err
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
