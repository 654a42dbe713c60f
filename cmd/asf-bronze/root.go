package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/nestauk/asf-mission-data-tool/pkg/artifacts"
	"github.com/nestauk/asf-mission-data-tool/pkg/config"
	"github.com/nestauk/asf-mission-data-tool/pkg/provenance"
	"github.com/nestauk/asf-mission-data-tool/pkg/registry"
)

const (
	configFlag   = "config"
	registryFlag = "registry"
)

// app carries what the subcommands share. Fields set before Execute are
// test seams; the rest is filled in by the persistent pre-run.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	newStore   func(ctx context.Context, cfg artifacts.StoreConfig) (artifacts.Store, error)
	identity   provenance.IdentityProvider
	httpClient *http.Client

	cfg    *config.Config
	logger *slog.Logger
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		newStore: artifacts.NewStore,
		identity: provenance.NewGitIdentity(nil),
	}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asf-bronze [sub-command]",
		Short: "Archive versioned mission datasets into the bronze layer",
		Long: `asf-bronze resolves the latest release of a dataset from the version
registry, downloads its files, stores them with provenance metadata in the
bronze layer and records the archived locations back in the registry.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	cmd.PersistentFlags().String(configFlag, "", "path to a YAML config file overlaying the environment")
	cmd.PersistentFlags().String(registryFlag, "", "path to the dataset version registry")
	registerLoggingFlags(cmd.PersistentFlags())

	cmd.AddCommand(newGetCmd(a))
	cmd.AddCommand(newLatestCmd(a))
	cmd.AddCommand(newDatasetsCmd(a))
	cmd.AddCommand(newHistoryCmd(a))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if path, _ := cmd.Flags().GetString(configFlag); path != "" {
		if err := config.LoadFile(cfg, path); err != nil {
			return err
		}
	}
	if path, _ := cmd.Flags().GetString(registryFlag); path != "" {
		cfg.RegistryPath = path
	}
	if v, _ := cmd.Flags().GetString(levelFlagName); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString(formatFlagName); v != "" {
		cfg.LogFormat = v
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) registryStore() *registry.FileStore {
	return registry.NewFileStore(a.cfg.RegistryPath)
}
