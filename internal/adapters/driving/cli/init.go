package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/federa/internal/adapters/driven/config/file"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Write a sample configuration with a local SQLite catalog as the
wildcard source and a GraphQL indexer for one namespace.

Edit the file, then run 'federa sources' to check it.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := file.Save(path, sampleConfig()); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	cmd.Printf("Wrote sample configuration to %s\n", path)
	return nil
}

func sampleConfig() *file.Config {
	return &file.Config{
		Federation: file.FederationConfig{FailurePolicy: "fail"},
		Server:     file.ServerConfig{Addr: DefaultAddr},
		Sources: []file.SourceConfig{
			{
				Key:        "teztok",
				Type:       file.TypeGraphQL,
				Namespaces: []string{"KT1RJ6PbjHpwc3M5rw5s2Nbmefwbuwbdxton"},
				GraphQL: &file.GraphQLConfig{
					Endpoint: "https://api.teztok.com/v1/graphql",
					Rate:     5,
					Burst:    5,
				},
			},
			{
				Key:      "local",
				Type:     file.TypeSQLite,
				Wildcard: true,
				SQLite:   &file.SQLiteConfig{Path: "~/.federa/data/catalog.db"},
			},
		},
	}
}
