package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gitswitch/gitswitch/pkg/gitswitch/config"
	"github.com/gitswitch/gitswitch/pkg/gitswitch/github"
	"github.com/gitswitch/gitswitch/pkg/gitswitch/resolver"
	"github.com/gitswitch/gitswitch/pkg/gitswitch/secret"
	"github.com/gitswitch/gitswitch/pkg/gitswitch/store"
)

type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
}

type runtimeState struct {
	configPath     string
	cfg            *config.Config
	dbOverride     string
	outputFormat   string
	nonInteractive bool
	verbose        bool
	writer         io.Writer
	log            *zap.SugaredLogger

	// Injection points for tests; built lazily otherwise.
	store   *store.Store
	secrets secret.Store
	github  *github.Client
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultConfigPath(),
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{configPath: cfg.ConfigPath, writer: cfg.OutputWriter}

	root := &cobra.Command{
		Use:           "gitswitch",
		Short:         "Manage multiple GitHub accounts and supply git credentials",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.configPath == "" {
				rt.configPath = config.DefaultConfigPath()
			}
			if rt.dbOverride == "" {
				rt.dbOverride = os.Getenv("GITSWITCH_DB")
			}
			if rt.outputFormat == "" {
				rt.outputFormat = os.Getenv("GITSWITCH_OUTPUT")
			}
			if !rt.nonInteractive {
				rt.nonInteractive = strings.EqualFold(os.Getenv("GITSWITCH_NON_INTERACTIVE"), "true")
			}
			if !rt.verbose {
				rt.verbose = strings.EqualFold(os.Getenv("GITSWITCH_VERBOSE"), "true")
			}
			rt.log = newLogger(rt.verbose)

			if cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}
			loaded, err := config.LoadOrDefault(rt.configPath)
			if err != nil {
				return err
			}
			if err := loaded.Validate(); err != nil {
				return err
			}
			rt.cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file")
	root.PersistentFlags().StringVar(&rt.dbOverride, "db", "", "Path to the account database")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: table, json, yaml")
	root.PersistentFlags().BoolVar(&rt.nonInteractive, "non-interactive", false, "Fail instead of prompting")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Enable verbose diagnostics on stderr")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewAccountCommand(),
		NewMappingCommand(),
		NewCredentialHelperCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
		NewStatusCommand(),
		NewSSHCommand(),
		NewCompletionCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

// newLogger builds the diagnostics logger. It always writes to stderr:
// stdout may carry protocol output consumed verbatim by git.
func newLogger(verbose bool) *zap.SugaredLogger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core).Sugar()
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) Logger() *zap.SugaredLogger {
	if rt.log == nil {
		rt.log = newLogger(rt.verbose)
	}
	return rt.log
}

func (rt *runtimeState) OutputFormat() string {
	if rt.outputFormat != "" {
		return rt.outputFormat
	}
	if rt.cfg != nil {
		return rt.cfg.OutputFormat()
	}
	return "table"
}

func (rt *runtimeState) databasePath() (string, error) {
	if rt.dbOverride != "" {
		return rt.dbOverride, nil
	}
	if rt.cfg != nil && rt.cfg.Settings.DatabasePath != "" {
		return rt.cfg.Settings.DatabasePath, nil
	}
	return config.DefaultDatabasePath()
}

func (rt *runtimeState) Store(ctx context.Context) (*store.Store, error) {
	if rt.store != nil {
		return rt.store, nil
	}
	path, err := rt.databasePath()
	if err != nil {
		return nil, err
	}
	s, err := store.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	rt.store = s
	return s, nil
}

func (rt *runtimeState) Secrets() secret.Store {
	if rt.secrets == nil {
		rt.secrets = secret.NewKeyring(secret.DefaultService)
	}
	return rt.secrets
}

func (rt *runtimeState) GitHub() (*github.Client, error) {
	if rt.github != nil {
		return rt.github, nil
	}
	client, err := github.New(
		github.WithClientID(rt.cfg.ClientID()),
		github.WithDeviceURL(rt.cfg.DeviceURL()),
		github.WithAPIURL(rt.cfg.APIURL()),
		github.WithScopes(rt.cfg.Scopes()),
	)
	if err != nil {
		return nil, err
	}
	rt.github = client
	return client, nil
}

func (rt *runtimeState) Resolver(ctx context.Context) (*resolver.Resolver, error) {
	s, err := rt.Store(ctx)
	if err != nil {
		return nil, err
	}
	return resolver.New(s, rt.Secrets(), resolver.MostRecent{}), nil
}
