// Package cli provides the federa command line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/federa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/federa/internal/app"
	"github.com/custodia-labs/federa/internal/core/ports/driving"
	"github.com/custodia-labs/federa/internal/logger"
)

var (
	version = "dev"

	configPath string
	verbose    bool

	// federation answers queries for every command. Tests replace it.
	federation driving.FederationService

	// application is set when federation was built from the config file.
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "federa",
	Short: "Federated item catalog queries",
	Long: `federa answers item catalog queries across several independent sources.

Each configured source serves a set of identifier namespaces. Queries are
routed to the sources that can answer them, fetched concurrently, merged,
deduplicated and paged with a resume cursor.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.federa/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer closeApplication()
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// resolveConfigPath returns --config or the default location.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return file.DefaultPath()
}

// federationService returns the configured federation, loading it from the
// config file on first use.
func federationService(cmd *cobra.Command) (driving.FederationService, error) {
	if federation != nil {
		return federation, nil
	}
	a, err := loadApplication(cmd)
	if err != nil {
		return nil, err
	}
	return a.Federation, nil
}

// loadApplication builds the App from the config file once.
func loadApplication(cmd *cobra.Command) (*app.App, error) {
	if application != nil {
		return application, nil
	}
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	a, err := app.Load(commandContext(cmd), path)
	if err != nil {
		return nil, err
	}
	application = a
	federation = a.Federation
	return a, nil
}

func closeApplication() {
	if application == nil {
		return
	}
	if err := application.Close(); err != nil {
		logger.Warn("Closing sources: %v", err)
	}
	application = nil
	federation = nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// errNoApplication is returned by commands that need the config file when
// federation was injected without one.
var errNoApplication = errors.New("command requires a configuration file")
