package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/federa/internal/adapters/driving/tui"
)

var browseFilter string

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the catalog interactively",
	Long: `Open an interactive browser over all configured sources.

Type a filter expression such as "owner:tz1abc mime:image/png" and press
enter; n fetches the next page and enter shows the selected item.`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVar(&browseFilter, "filter", "", "initial filter expression")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	svc, err := federationService(cmd)
	if err != nil {
		return err
	}

	browser, err := tui.NewApp(tui.NewPorts(svc))
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	browser.WithContext(commandContext(cmd))
	browser.Browse().SetFilter(browseFilter)
	return browser.Run()
}
