package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources",
	Long:  `List the configured sources in configuration order with the namespaces each one serves.`,
	Args:  cobra.NoArgs,
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	svc, err := federationService(cmd)
	if err != nil {
		return err
	}

	descs := svc.Sources()
	if len(descs) == 0 {
		cmd.Println("No sources configured.")
		cmd.Println("Run 'federa init' to write a sample configuration.")
		return nil
	}

	cmd.Println("Sources:")
	for _, d := range descs {
		namespaces := strings.Join(d.Namespaces, ", ")
		if d.Wildcard {
			if namespaces != "" {
				namespaces += ", "
			}
			namespaces += "*"
		}
		if namespaces == "" {
			namespaces = "(none)"
		}
		cmd.Printf("  %s\n", d.Key)
		cmd.Printf("      Namespaces: %s\n", namespaces)
		if len(d.Exclude) > 0 {
			cmd.Printf("      Excludes: %s\n", strings.Join(d.Exclude, ", "))
		}
	}
	return nil
}
