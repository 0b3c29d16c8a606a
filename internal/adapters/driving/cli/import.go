package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/federa/internal/adapters/driven/sources/memory"
	"github.com/custodia-labs/federa/internal/adapters/driven/sources/sqlite"
)

var importDB string

var importCmd = &cobra.Command{
	Use:   "import [items.json]",
	Short: "Import items into a local SQLite catalog",
	Long: `Import a JSON array of items into a SQLite catalog that can be
configured as a source of type "sqlite".

Existing items with the same canonical id are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importDB, "db", "", "catalog path (default ~/.federa/data/catalog.db)")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	items, err := memory.ReadItems(args[0])
	if err != nil {
		return err
	}

	store, err := sqlite.Open(importDB)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := commandContext(cmd)
	if err := store.Put(ctx, items...); err != nil {
		return err
	}

	total, err := store.Count(ctx)
	if err != nil {
		return err
	}
	namespaces, err := store.Namespaces(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Imported %d items into %s\n", len(items), store.Path())
	cmd.Printf("Catalog holds %d items in %d namespaces\n", total, len(namespaces))
	return nil
}
