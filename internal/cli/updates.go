package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cperrin88/reposync/pkg/orchestrator"
)

// NewUpdatesCmd creates the updates command.
func NewUpdatesCmd() *cobra.Command {
	var notify bool

	cmd := &cobra.Command{
		Use:   "updates",
		Short: "List available app updates",
		Long: `Compare the installed apps with the catalog and list the updates that can
be installed. Nothing is downloaded; run sync first to refresh the catalog.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), nil, func(a *app) error {
				updates, err := a.scanner.Scan(cmd.Context())
				if err != nil {
					return err
				}
				n := orchestrator.NewUpdatesNotification(updates)
				if notify && n.Count > 0 {
					if err := a.notifier.NotifyUpdates(cmd.Context(), n); err != nil {
						return err
					}
				}
				if jsonOutput(a.cfg) {
					return printJSON(n)
				}
				printUpdates(n)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&notify, "notify", false, "Run the updates-available hook for the result")

	return cmd
}

func printUpdates(n orchestrator.UpdatesNotification) {
	if n.Count == 0 {
		fmt.Println("All apps are up to date.")
		return
	}

	tw := newTable()
	_, _ = fmt.Fprintln(tw, "PACKAGE\tNAME\tINSTALLED\tAVAILABLE")
	for _, app := range n.Apps {
		from := app.FromVersion
		if from == "" {
			from = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s (%d)\n", app.PackageName, app.Name, from, app.ToVersion, app.VersionCode)
	}
	_ = tw.Flush()
	fmt.Printf("\n%d updates available\n", n.Count)
}
