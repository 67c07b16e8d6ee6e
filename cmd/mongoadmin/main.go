// Command mongoadmin exposes the admin resource operations of a schema
// catalog over a configured document store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pedrohavay/mongoadmin/admin"
	"github.com/pedrohavay/mongoadmin/internal/config"
	"github.com/pedrohavay/mongoadmin/odm"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		var ve *admin.ValidationError
		if errors.As(err, &ve) {
			printValidationError(ve)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func printValidationError(ve *admin.ValidationError) {
	keys := make([]string, 0, len(ve.PropertyErrors))
	for k := range ve.PropertyErrors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msg := ve.Message
	if msg == "" {
		msg = "validation failed"
	}
	fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	for _, k := range keys {
		e := ve.PropertyErrors[k]
		fmt.Fprintf(os.Stderr, "  %s: %s (%s)\n", k, e.Message, e.Type)
	}
}

type globalOptions struct {
	configPath string
	schemas    string
	backend    string
	uri        string
	database   string
	badgerPath string
	logLevel   string
	logFormat  string
}

// app holds what the commands share once the root command has connected.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	conn   *odm.Connection
	db     *admin.Database
}

func (a *app) resource(name string) (*admin.Resource, error) {
	return a.db.Resource(name)
}

// close releases the backend. It is safe to call more than once.
func (a *app) close() error {
	if a.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := a.conn.Close(ctx)
	a.conn = nil
	return err
}

func run(ctx context.Context, args []string) error {
	root, a := newRoot()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func newRootCmd() *cobra.Command {
	root, _ := newRoot()
	return root
}

func newRoot() (*cobra.Command, *app) {
	opts := &globalOptions{}
	a := &app{}

	root := &cobra.Command{
		Use:           "mongoadmin",
		Short:         "Admin operations over schema-described document collections",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd, opts)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Config file (mongoadmin.yaml)")
	f.StringVar(&opts.schemas, "schemas", "", "Directory of YAML schema files")
	f.StringVar(&opts.backend, "backend", "", "Backend kind: mongo, badger or memory")
	f.StringVar(&opts.uri, "uri", "", "MongoDB connection URI")
	f.StringVar(&opts.database, "database", "", "Database name")
	f.StringVar(&opts.badgerPath, "badger-path", "", "Badger directory (empty for in-memory)")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringVar(&opts.logFormat, "log-format", "", "Log format (console, json)")

	root.AddCommand(
		newModelsCmd(a),
		newPropertiesCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newCreateCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root, a
}

func (a *app) open(cmd *cobra.Command, opts *globalOptions) error {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	flags := cmd.Flags()
	for name, field := range map[string]*string{
		"schemas":     &cfg.Schemas,
		"backend":     &cfg.Backend.Kind,
		"uri":         &cfg.Backend.URI,
		"database":    &cfg.Backend.Database,
		"badger-path": &cfg.Backend.Path,
		"log-level":   &cfg.Log.Level,
		"log-format":  &cfg.Log.Format,
	} {
		if flags.Changed(name) {
			v, _ := flags.GetString(name)
			*field = v
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	a.logger = logger

	catalog, err := odm.LoadCatalog(cfg.Schemas)
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}
	ctx := cmd.Context()
	backend, err := openBackend(ctx, cfg.Backend)
	if err != nil {
		return err
	}
	a.conn = odm.NewConnection(odm.ConnectionConfig{Catalog: catalog, Backend: backend, Logger: logger})
	if err := a.conn.EnsureIndexes(ctx); err != nil {
		return err
	}
	a.db = admin.NewDatabase(a.conn, a.conn.DatabaseName(), logger)
	logger.Debug().Str("backend", cfg.Backend.Kind).Int("models", len(catalog.Models)).Msg("connected")
	return nil
}

func newLogger(cfg config.Log) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level: %w", err)
		}
		level = l
	}
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger(), nil
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).Level(level).With().Timestamp().Logger(), nil
}

func openBackend(ctx context.Context, cfg config.Backend) (odm.Backend, error) {
	switch cfg.Kind {
	case config.BackendMongo:
		return odm.ConnectMongo(ctx, cfg.URI, cfg.Database)
	case config.BackendBadger:
		return odm.OpenBadger(cfg.Path, cfg.Database)
	case config.BackendMemory:
		return odm.NewMemoryBackend(cfg.Database), nil
	}
	return nil, fmt.Errorf("unknown backend kind %q", cfg.Kind)
}
